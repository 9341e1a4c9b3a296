package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/config"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/logger"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X ...cli.version=..."
var version = "dev"

// app carries the state shared by every command of one invocation
type app struct {
	configFile string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger

	normalizer normalizerFlags
}

// NewRootCmd builds the arnorm command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "arnorm",
		Short: "Normalize Arabic text for language-model pretraining",
		Long: `arnorm cleans Arabic text the way the AraBERT preprocessing does:
it strips tashkeel and tatweel, replaces URLs, emails and mentions with
placeholders, drops HTML, collapses repetitions and keeps only Arabic
letters, digits and (optionally) emojis.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	a.normalizer.register(rootCmd)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.InvalidInput(err.Error())
	})

	rootCmd.AddCommand(
		newNormalizeCmd(a),
		newProcessCmd(a),
		newEnqueueCmd(a),
		newWorkerCmd(a),
		newStepsCmd(),
		newCleanupCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// setup loads configuration and installs the logger before any command runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid configuration", apperrors.ExitUsage)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	a.cfg = cfg
	a.logger = logger.InitializeWithWriter(cmd.ErrOrStderr(), cfg.Environment, cfg.LogLevel)

	return nil
}

// Execute runs the CLI and returns the process exit status
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "arnorm: %v\n", err)
	}
	return apperrors.ExitCodeOf(err)
}

// exactArgs is cobra.ExactArgs with a usage exit status
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return apperrors.InvalidInput(err.Error())
		}
		return nil
	}
}
