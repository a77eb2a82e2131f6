// Package cli provides the defcheck command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/lint"
	"github.com/GlintPay/defcheck/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

// ErrIssuesFound is returned by `lint` when any diagnostic was reported or any file failed
var ErrIssuesFound = errors.New("lint issues found")

type settingsKey struct{}

type rootOptions struct {
	settingsFile string
	logLevel     string
	verbose      bool
}

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "defcheck",
		Short: "Lint printer definition inheritance chains",
		Long: `defcheck loads printer definition files (<name>.def.json), follows their
"inherits" chains down to the root definition and reports overrides that
only repeat what an ancestor already defines.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return opts.prepare(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.settingsFile, "settings", config.DefaultLintSettingsFile, "lint settings file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output, same as --log-level debug")

	rootCmd.AddCommand(NewLintCommand())
	rootCmd.AddCommand(NewResolveCommand())
	rootCmd.AddCommand(NewRulesCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}

func (o *rootOptions) prepare(cmd *cobra.Command) error {
	level := o.logLevel
	if o.verbose {
		level = "debug"
	}
	if err := logging.Setup(cmd.ErrOrStderr(), logging.Options{Level: level, Console: true}); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	settings, err := config.LoadLintSettings(o.settingsFile, cmd.Flags())
	if err != nil {
		return err
	}
	if settings.Source != "" {
		log.Debug().Msgf("Using settings file: %s", settings.Source)
	}
	warnUnknownRules(settings)

	cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, settings))
	return nil
}

func warnUnknownRules(settings *config.LintSettings) {
	for id := range settings.Checks {
		if _, ok := lint.LookupRule(id); !ok {
			log.Warn().Msgf("Unknown rule %q in settings, known rules: %v", id, lint.RuleIDs())
		}
	}
}

// GetSettings retrieves the lint settings loaded for the running command
func GetSettings(ctx context.Context) *config.LintSettings {
	if s, ok := ctx.Value(settingsKey{}).(*config.LintSettings); ok {
		return s
	}
	return &config.LintSettings{Format: "text"}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrIssuesFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}
