package report

import (
	"fmt"
	"io"

	"github.com/GlintPay/defcheck/lint"
	"github.com/jedib0t/go-pretty/v6/table"
)

type tableReporter struct {
	raw bool
}

func (r tableReporter) Report(w io.Writer, results []*lint.Result) error {
	diagnostics, failures := lint.Count(results)
	if diagnostics == 0 && failures == 0 {
		_, err := fmt.Fprintln(w, "(0 diagnostics)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Line", "Severity", "Rule", "Message"})

	for _, result := range results {
		if result.Error != "" {
			t.AppendRow(table.Row{result.Name, "", "error", "", result.Error})
			continue
		}
		for _, d := range result.Diagnostics {
			t.AppendRow(table.Row{d.File, d.Line, d.Severity.String(), d.RuleID, message(d, r.raw)})
		}
	}

	t.Render()
	_, err := fmt.Fprintf(w, "(%d diagnostics, %d failed)\n", diagnostics, failures)
	return err
}
