package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/refinery"
	"github.com/spf13/cobra"
)

func newStepsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the registered refineries and their steps",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			available := refinery.ListAvailableWithMetadata()

			if asJSON {
				data, err := json.MarshalIndent(available, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal refineries: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			versions := make([]string, 0, len(available))
			for v := range available {
				versions = append(versions, v)
			}
			sort.Strings(versions)

			for _, v := range versions {
				meta := available[v]
				if msg, ok := meta["error"]; ok {
					cmd.Printf("%s: unavailable (%v)\n", v, msg)
					continue
				}

				cmd.Printf("%s  %v\n", v, meta["name"])
				if aliases, ok := meta["aliases"].([]string); ok && len(aliases) > 0 {
					cmd.Printf("  aliases: %s\n", strings.Join(aliases, ", "))
				}
				if steps, ok := meta["steps"].([]string); ok {
					for i, step := range steps {
						cmd.Printf("  %d. %s\n", i+1, step)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the registry as JSON")

	return cmd
}
