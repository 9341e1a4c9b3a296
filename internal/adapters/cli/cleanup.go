package cli

import (
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/storage"
	"github.com/spf13/cobra"
)

func newCleanupCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove job directories older than a cutoff",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: a.cfg.Storage.BasePath}, a.logger)
			if err != nil {
				return err
			}

			removed, err := files.CleanupOldFiles(commandContext(cmd), olderThan)
			if err != nil {
				return err
			}

			cmd.Printf("Removed %d job directories older than %s\n", removed, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age after which job directories are removed")

	return cmd
}
