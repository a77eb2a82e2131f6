package cli

import (
	"github.com/GlintPay/defcheck/definition"
	"github.com/GlintPay/defcheck/filetypes"
	"github.com/GlintPay/defcheck/report"
	"github.com/GlintPay/defcheck/resolution"
	"github.com/spf13/cobra"
)

type ResolveOptions struct {
	Format string
	Nested bool
}

// NewResolveCommand creates the resolve command
func NewResolveCommand() *cobra.Command {
	opts := &ResolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Print the effective settings of a definition",
		Long: `Apply every definition in the chain from the root down and print the value
each setting ends up with, and which definition supplied it.`,
		Example: `  defcheck resolve resources/definitions/creality_ender3.def.json --format table
  defcheck resolve resources/definitions/creality_ender3.def.json --nested --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := GetSettings(cmd.Context())

			chain, err := definition.LoadFile(args[0], settings.Strict, filetypes.SopsDecrypter{})
			if err != nil {
				return err
			}

			resolver := resolution.Resolver{}
			resolved := resolver.Resolve(cmd.Context(), chain)

			return report.WriteResolved(cmd.OutOrStdout(), resolved, opts.Format, opts.Nested)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", report.FormatJSON, "output format: json, yaml, table")
	cmd.Flags().BoolVar(&opts.Nested, "nested", false, "group settings by category")
	cmd.Flags().Bool("strict", false, "fail when an ancestor definition file is missing")

	return cmd
}
