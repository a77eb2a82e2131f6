package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/GlintPay/defcheck/definition"
	"github.com/GlintPay/defcheck/resolution"
	"github.com/jedib0t/go-pretty/v6/table"
	"sigs.k8s.io/yaml"
)

const FormatYAML = "yaml"

type resolvedView struct {
	*resolution.Resolved
	Settings any `json:"settings"`
}

// WriteResolved renders effective settings as json, yaml or a table. Nested groups them by category.
func WriteResolved(w io.Writer, resolved *resolution.Resolved, format string, nested bool) error {
	view := resolvedView{Resolved: resolved, Settings: resolved.Settings()}
	if nested {
		view.Settings = resolved.Nested()
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case FormatYAML:
		b, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case FormatTable:
		return resolvedTable(w, resolved)
	}
	return fmt.Errorf("unknown format %q, expected one of json, yaml, table", format)
}

func resolvedTable(w io.Writer, resolved *resolution.Resolved) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(resolved.Precedence)
	t.AppendHeader(table.Row{"Setting", "Value", "Type", "Source"})

	for _, s := range resolved.Settings() {
		t.AppendRow(table.Row{s.Key, definition.FormatValue(s.Value), s.Type, s.Source})
	}

	t.Render()
	_, err := fmt.Fprintf(w, "(%d settings, %d pointless overrides)\n", resolved.Len(), len(resolved.PointlessOverrides))
	return err
}
