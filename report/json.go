package report

import (
	"encoding/json"
	"io"

	"github.com/GlintPay/defcheck/lint"
)

type jsonReporter struct{}

func (jsonReporter) Report(w io.Writer, results []*lint.Result) error {
	if results == nil {
		results = []*lint.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
