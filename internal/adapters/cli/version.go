package cli

import (
	"strings"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/refinery"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		// configuration is irrelevant here
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("arnorm version %s (refinery %s)\n", version, strings.Join(refinery.ListAvailable(), ", "))
		},
	}
}
