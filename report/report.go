package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/GlintPay/defcheck/lint"
)

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatTable = "table"
)

var Formats = []string{FormatText, FormatJSON, FormatTable}

type Options struct {
	Format   string
	Template string

	// Raw keeps the `**emphasis**` markup in messages
	Raw bool
}

// Reporter writes lint results for humans or machines
type Reporter interface {
	Report(w io.Writer, results []*lint.Result) error
}

func New(opts Options) (Reporter, error) {
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return newTextReporter(opts)
	case FormatJSON:
		return jsonReporter{}, nil
	case FormatTable:
		return tableReporter{raw: opts.Raw}, nil
	}
	return nil, fmt.Errorf("unknown format %q, expected one of %s", opts.Format, strings.Join(Formats, ", "))
}

// StripEmphasis removes the `**` markers that highlight keys and values in messages
func StripEmphasis(message string) string {
	return strings.ReplaceAll(message, "**", "")
}

func message(d lint.Diagnostic, raw bool) string {
	if raw {
		return d.Message
	}
	return StripEmphasis(d.Message)
}
