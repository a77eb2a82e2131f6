package lint

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// LintAll runs lint for each input concurrently, returning results in input order.
// A failure for one input is recorded in its Result rather than stopping the rest.
func LintAll(ctxt context.Context, inputs []string, concurrency int, lint func(context.Context, string) (*Result, error)) []*Result {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(inputs))

	g, gctx := errgroup.WithContext(ctxt)
	g.SetLimit(concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = &Result{Name: input, Diagnostics: []Diagnostic{}, Error: err.Error()}
				return nil
			}

			result, err := lint(gctx, input)
			if err != nil {
				results[i] = &Result{Name: input, Diagnostics: []Diagnostic{}, Error: err.Error()}
				return nil
			}
			results[i] = result
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Count totals the diagnostics across results and the results that failed
func Count(results []*Result) (diagnostics int, failures int) {
	for _, r := range results {
		diagnostics += len(r.Diagnostics)
		if r.Error != "" {
			failures++
		}
	}
	return diagnostics, failures
}
