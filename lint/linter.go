package lint

import (
	"context"

	"github.com/GlintPay/defcheck/definition"
	"github.com/GlintPay/defcheck/filetypes"
	gotel "github.com/GlintPay/defcheck/otel"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type Linter struct {
	Settings    Settings
	Strict      bool
	Decrypter   filetypes.Decrypter
	EnableTrace bool
}

// Result is the outcome of linting one definition
type Result struct {
	Name        string       `json:"name"`
	File        string       `json:"file,omitempty"`
	Chain       []string     `json:"chain,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Error       string       `json:"error,omitempty"`
}

func (l *Linter) settings() Settings {
	if l.Settings == nil {
		return AllRules
	}
	return l.Settings
}

// Lint loads the named definition and its ancestors from store, then checks it
func (l *Linter) Lint(ctxt context.Context, store definition.Store, name string) (*Result, error) {
	loader := definition.Loader{Store: store, Decrypter: l.Decrypter, Strict: l.Strict}
	return l.run(ctxt, name, func() (*definition.Chain, error) { return loader.Load(name) })
}

// LintFile checks a definition file on disk, resolving its ancestors in the same directory
func (l *Linter) LintFile(ctxt context.Context, path string) (*Result, error) {
	return l.run(ctxt, path, func() (*definition.Chain, error) { return definition.LoadFile(path, l.Strict, l.Decrypter) })
}

func (l *Linter) run(ctxt context.Context, name string, load func() (*definition.Chain, error)) (*Result, error) {
	if l.EnableTrace {
		_, span := gotel.GetTracer(ctxt).Start(ctxt, "lint", gotel.InternalOptions)
		span.SetAttributes(attribute.String("definition", name))
		defer span.End()
	}

	chain, err := load()
	if err != nil {
		return nil, err
	}

	result := &Result{Name: chain.Leaf().Name, File: chain.Leaf().File, Chain: chain.Names()}

	result.Diagnostics, err = Collect(Check(chain, l.settings()))
	if err != nil {
		return nil, err
	}

	log.Debug().Msgf("%s: %d diagnostic(s)", result.File, len(result.Diagnostics))
	return result, nil
}
