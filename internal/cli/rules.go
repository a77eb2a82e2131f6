package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GlintPay/defcheck/lint"
	"github.com/GlintPay/defcheck/report"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type ruleView struct {
	lint.Rule
	Enabled bool `json:"enabled"`
}

// NewRulesCommand creates the rules command
func NewRulesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List available lint rules",
		Example: `  defcheck rules
  defcheck rules --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := GetSettings(cmd.Context())

			views := make([]ruleView, 0, len(lint.Rules))
			for _, r := range lint.Rules {
				views = append(views, ruleView{Rule: r, Enabled: settings.Enabled(r.ID)})
			}

			switch strings.ToLower(format) {
			case report.FormatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			case "", report.FormatTable:
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Rule", "Severity", "Enabled", "Description"})
				for _, v := range views {
					t.AppendRow(table.Row{v.ID, v.Severity, v.Enabled, v.Description})
				}
				t.Render()
				return nil
			}
			return fmt.Errorf("unknown format %q, expected table or json", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json")
	return cmd
}
