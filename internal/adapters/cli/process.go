package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/corpus"
	"github.com/spf13/cobra"
)

func newProcessCmd(a *app) *cobra.Command {
	var (
		textField string
		noDedup   bool
		force     bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Normalize a dataset file in-process",
		Long: `Parses a CSV, JSON, JSONL, Excel or text file, normalizes its text column
and writes normalized.jsonl plus model-input chunks under the storage path.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.LogConfig(a.logger)

			service, release, err := a.buildCorpusService(cmd)
			if err != nil {
				return err
			}
			defer release()

			req := corpus.ProcessRequest{
				FilePath:  args[0],
				TextField: textField,
				Force:     force,
			}
			if noDedup {
				off := false
				req.Deduplicate = &off
			}

			result, err := service.ProcessFile(commandContext(cmd), req)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal result: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			printProcessResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&textField, "text-field", "", "column holding the text (default from config)")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "keep empty and duplicate texts")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess a file already completed with the same settings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func printProcessResult(cmd *cobra.Command, result *corpus.ProcessResult) {
	if result.Reused {
		cmd.Printf("Job %s already completed with fingerprint %s.\n", result.JobID, result.Fingerprint)
	} else {
		cmd.Printf("Job %s completed in %s.\n", result.JobID, result.Duration.Round(time.Millisecond))
	}
	cmd.Printf("  Records:    %d total, %d written\n", result.TotalRecords, result.ProcessedRecords)
	cmd.Printf("  Dropped:    %d empty, %d duplicate\n", result.EmptyRecords, result.DuplicateRecords)
	if result.CacheHits > 0 {
		cmd.Printf("  Cache hits: %d\n", result.CacheHits)
	}
	cmd.Printf("  Output:     %s\n", result.OutputPath)
	if n := len(result.LLMInputFiles); n > 0 {
		cmd.Printf("  Chunks:     %d in %s\n", n, filepath.Dir(result.LLMInputFiles[0]))
	}
}
