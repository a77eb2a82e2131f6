package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/filetypes"
	"github.com/GlintPay/defcheck/lint"
	"github.com/GlintPay/defcheck/report"
	"github.com/GlintPay/defcheck/utils"
	"github.com/spf13/cobra"
)

type LintOptions struct {
	Dirs  []string
	Raw   bool
	Watch bool
}

// NewLintCommand creates the lint command
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}

	cmd := &cobra.Command{
		Use:   "lint [files...]",
		Short: "Check definition files for redundant overrides",
		Long: `Load each definition file with its ancestors, found alongside it as
<inherits>.def.json, and report overrides whose value an ancestor already defines.

Exits with a non-zero status when anything is reported.`,
		Example: `  # Lint one printer
  defcheck lint resources/definitions/creality_ender3.def.json

  # Lint every definition in a directory, as JSON
  defcheck lint --dir resources/definitions --format json

  # Disable a rule for this run
  defcheck lint --dir resources/definitions --check diagnostic-definition-redundant-override=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := GetSettings(cmd.Context())

			inputs, err := collectInputs(args, opts.Dirs)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no definition files given, pass files or --dir")
			}

			reporter, err := report.New(report.Options{Format: settings.Format, Template: settings.Template, Raw: opts.Raw})
			if err != nil {
				return err
			}

			if opts.Watch {
				return watch(cmd.Context(), watchDirs(inputs), func() error {
					current, e := collectInputs(args, opts.Dirs)
					if e != nil {
						return e
					}
					_, e = runLint(cmd.Context(), cmd.OutOrStdout(), reporter, settings, current)
					return e
				})
			}

			issues, err := runLint(cmd.Context(), cmd.OutOrStdout(), reporter, settings, inputs)
			if err != nil {
				return err
			}
			if issues {
				return ErrIssuesFound
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.Dirs, "dir", nil, "lint every *.def.json in these directories")
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, table")
	cmd.Flags().String("template", "", "Go template for each text diagnostic, sprig functions available")
	cmd.Flags().Bool("strict", false, "fail when an ancestor definition file is missing")
	cmd.Flags().StringSlice("check", nil, "enable or disable a rule, e.g. rule-id=false")
	cmd.Flags().Int("concurrency", 0, "files linted in parallel, 0 for one per CPU")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "keep **emphasis** markup in messages")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "lint again whenever a definition changes")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return report.Formats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("check", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return lint.RuleIDs(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runLint(ctx context.Context, w io.Writer, reporter report.Reporter, settings *config.LintSettings, inputs []string) (bool, error) {
	linter := &lint.Linter{
		Settings:  settings,
		Strict:    settings.Strict,
		Decrypter: filetypes.SopsDecrypter{},
	}

	results := lint.LintAll(ctx, inputs, settings.Concurrency, linter.LintFile)

	if err := reporter.Report(w, results); err != nil {
		return false, err
	}

	diagnostics, failures := lint.Count(results)
	return diagnostics > 0 || failures > 0, nil
}

// collectInputs lists explicit files first, then each directory's definitions by name
func collectInputs(files []string, dirs []string) ([]string, error) {
	inputs := append([]string{}, files...)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}

		found := []string{}
		for _, e := range entries {
			if !e.IsDir() && utils.IsDefinitionFile(e.Name()) {
				found = append(found, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}

	return inputs, nil
}
