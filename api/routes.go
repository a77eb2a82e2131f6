package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/definition"
	"github.com/GlintPay/defcheck/filetypes"
	"github.com/GlintPay/defcheck/lint"
	"github.com/GlintPay/defcheck/report"
	"github.com/GlintPay/defcheck/resolution"
	"github.com/GlintPay/defcheck/utils"
	"github.com/go-chi/chi/v5"
	"github.com/riandyrn/otelchi"
	"github.com/rs/zerolog/log"
)

const (
	applicationJSON = "application/json"
	applicationYAML = "application/yaml"
)

type Routing struct {
	ServerName   string
	ParentRouter chi.Router

	AppConfig config.ApplicationConfiguration
	Backends  backend.Backends

	// Settings decides which rules run; every rule when nil
	Settings lint.Settings
	Metrics  *Metrics
}

func (rtr *Routing) SetupFunctionalRoutes(r chi.Router) error {
	if len(rtr.Backends) == 0 {
		return errors.New("no backends configured")
	}

	if e := rtr.enableOTelForRouter(r); e != nil {
		return e
	}

	r.Get("/definitions", rtr.definitionsHandler())
	r.Get("/lint", rtr.lintAllHandler())
	r.Get("/lint/{definition}", rtr.lintHandler())
	r.Get("/resolve/{definition}", rtr.resolveHandler())

	return nil
}

func (rtr *Routing) definitionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := rtr.newRequestFromChi(r)

		state, err := rtr.loadState(r.Context(), req)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		names, err := ListDefinitions(state.Files)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		writeHeaders(w.Header(), state)
		rtr.handleJSON(w, names, req)
	}
}

func (rtr *Routing) lintHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := rtr.newRequestFromChi(r)

		state, err := rtr.loadState(r.Context(), req)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		linter := rtr.newLinter(req)

		started := time.Now()
		result, err := linter.Lint(r.Context(), state.Files, req.Definition)
		rtr.Metrics.observe(result, err, time.Since(started))
		if err != nil {
			rtr.writeLoadError(w, err)
			return
		}

		writeHeaders(w.Header(), state)
		w.Header().Set("X-Lint-Chain", strings.Join(result.Chain, ","))

		rtr.handleJSON(w, result.Diagnostics, req)
	}
}

func (rtr *Routing) lintAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := rtr.newRequestFromChi(r)

		state, err := rtr.loadState(r.Context(), req)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		names, err := ListDefinitions(state.Files)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		linter := rtr.newLinter(req)

		results := lint.LintAll(r.Context(), names, rtr.AppConfig.Lint.Concurrency, func(ctxt context.Context, name string) (*lint.Result, error) {
			started := time.Now()
			result, e := linter.Lint(ctxt, state.Files, name)
			rtr.Metrics.observe(result, e, time.Since(started))
			return result, e
		})

		diagnostics, failures := lint.Count(results)
		log.Debug().Msgf("Linted %d definition(s): %d diagnostic(s), %d failure(s)", len(results), diagnostics, failures)

		writeHeaders(w.Header(), state)
		rtr.handleJSON(w, results, req)
	}
}

func (rtr *Routing) resolveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := rtr.newRequestFromChi(r)

		state, err := rtr.loadState(r.Context(), req)
		if err != nil {
			rtr.writeError(w, err)
			return
		}

		loader := definition.Loader{Store: state.Files, Decrypter: filetypes.SopsDecrypter{}, Strict: req.Strict}
		chain, err := loader.Load(req.Definition)
		if err != nil {
			rtr.writeLoadError(w, err)
			return
		}

		resolver := resolution.Resolver{EnableTrace: req.EnableTrace}
		resolved := resolver.Resolve(r.Context(), chain)

		format := report.FormatJSON
		contentType := applicationJSON
		if strings.EqualFold(req.Queries.Get("format"), report.FormatYAML) {
			format = report.FormatYAML
			contentType = applicationYAML
		}

		var buf bytes.Buffer
		outputErr := report.WriteResolved(&buf, resolved, format, req.Nested)

		writeHeaders(w.Header(), state)
		w.Header().Set("X-Resolution-Precedence", resolved.Precedence)

		rtr.handleOutput(w, outputErr, buf.Bytes(), contentType, req.LogResponses)
	}
}

func (rtr *Routing) newLinter(req Request) *lint.Linter {
	return &lint.Linter{
		Settings:    rtr.Settings,
		Strict:      req.Strict,
		Decrypter:   filetypes.SopsDecrypter{},
		EnableTrace: req.EnableTrace,
	}
}

func writeHeaders(header http.Header, state *backend.State) {
	header.Set("X-Backend-Version", state.Version)
}

func (rtr *Routing) handleJSON(w http.ResponseWriter, val any, req Request) {
	bs, err := marshalResponseJson(val, req.PrettyPrintJson)
	rtr.handleOutput(w, err, bs, applicationJSON, req.LogResponses)
}

func marshalResponseJson(val any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(val, "", "  ")
	}
	return json.Marshal(val)
}

func (rtr *Routing) handleOutput(w http.ResponseWriter, err error, bytes []byte, contentType string, logResponses bool) {
	if err != nil {
		rtr.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(bytes)

	if logResponses {
		log.Debug().Msgf("Response: %s", string(bytes))
	}
}

// writeLoadError reports a definition that does not exist as a 404, anything else as a 500
func (rtr *Routing) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, definition.ErrDefinitionNotFound) {
		rtr.writeErrorStatus(w, http.StatusNotFound, err)
		return
	}
	rtr.writeError(w, err)
}

func (rtr *Routing) writeError(w http.ResponseWriter, err error) {
	rtr.writeErrorStatus(w, http.StatusInternalServerError, err)
}

func (rtr *Routing) writeErrorStatus(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", applicationJSON)
	w.WriteHeader(status)

	info := map[string]any{"message": err.Error()}
	_ = json.NewEncoder(w).Encode(info)

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Stack().Msg("Response error")
	} else {
		log.Debug().Err(err).Msgf("Response status %d", status)
	}
}

func (rtr *Routing) newRequestFromChi(r *http.Request) Request {
	queries := r.URL.Query()
	defaults := rtr.AppConfig.Lint

	return Request{
		Definition: strings.TrimSuffix(chi.URLParam(r, "definition"), utils.DefinitionSuffix),
		Queries:    queries,

		RefreshBackend:  !queries.Has("norefresh"),
		Strict:          overrideBooleanDefault(queries.Get("strict"), defaults.Strict),
		Nested:          overrideBooleanDefault(queries.Get("nested"), false),
		LogResponses:    overrideBooleanDefault(queries.Get("logResponses"), false),
		PrettyPrintJson: overrideBooleanDefault(queries.Get("pretty"), false),

		EnableTrace: rtr.AppConfig.Tracing.Enabled,
	}
}

func (rtr *Routing) enableOTelForRouter(r chi.Router) error {
	if !rtr.AppConfig.Tracing.Enabled {
		return nil
	}

	if rtr.ServerName == "" || rtr.ParentRouter == nil {
		return errors.New("OTel not configured")
	}

	r.Use(otelchi.Middleware(rtr.ServerName, otelchi.WithChiRoutes(rtr.ParentRouter)))

	log.Info().Msgf("OpenTelemetry trace is enabled")
	return nil
}

func overrideBooleanDefault(queryValue string, defaultVal bool) bool {
	reqVal := strings.ToLower(queryValue)
	if reqVal == "true" {
		return true
	} else if reqVal == "false" {
		return false
	}
	return defaultVal
}
