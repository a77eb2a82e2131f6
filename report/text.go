package report

import (
	"fmt"
	"io"
	"text/template"

	"github.com/GlintPay/defcheck/lint"
	"github.com/Masterminds/sprig"
)

const DefaultTemplate = "{{.File}}:{{.Line}}: [{{.RuleID}}] {{.Message}}"

type textReporter struct {
	tmpl *template.Template
	raw  bool
}

func newTextReporter(opts Options) (*textReporter, error) {
	text := opts.Template
	if text == "" {
		text = DefaultTemplate
	}

	tmpl, err := template.New("diagnostic").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &textReporter{tmpl: tmpl, raw: opts.Raw}, nil
}

func (r *textReporter) Report(w io.Writer, results []*lint.Result) error {
	for _, result := range results {
		if result.Error != "" {
			if _, err := fmt.Fprintf(w, "%s: error: %s\n", result.Name, result.Error); err != nil {
				return err
			}
			continue
		}

		for _, d := range result.Diagnostics {
			d.Message = message(d, r.raw)
			if err := r.tmpl.Execute(w, d); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
