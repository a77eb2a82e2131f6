package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/backend/file"
	"github.com/GlintPay/defcheck/backend/git"
	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/internal/test"
	"github.com/GlintPay/defcheck/lint"
	"github.com/GlintPay/defcheck/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var traceServerName = fmt.Sprintf("server-%d", rand.Int())

var definitions = map[string]string{
	"fdmprinter": test.Root,
	"base": `{
    "name": "Base",
    "inherits": "fdmprinter",
    "overrides": {
        "machine_width": {"default_value": 200}
    }
}`,
	"printer": `{
    "name": "Printer",
    "inherits": "base",
    "overrides": {
        "machine_width": {"default_value": 200},
        "wall_line_count": {"value": 3},
        "machine_name": {"default_value": "Unknown"}
    }
}`,
	"broken": `{"inherits": "fdmprinter", "overrides": {"no_such_setting": {"default_value": 1}}}`,
}

func Test_routesLint(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	tests := []struct {
		ExampleRequest
		diagnostics []string
	}{
		{
			ExampleRequest: ExampleRequest{method: "GET", url: "/lint/printer", statusCode: 200},
			diagnostics: []string{
				"Overriding **machine_width** with the same value (**200**) as defined in parent definition: **base**",
				"Overriding **machine_name** with the same value (**Unknown**) as defined in parent definition: **base**",
			},
		},
		{
			ExampleRequest: ExampleRequest{method: "GET", url: "/lint/printer.def.json", statusCode: 200},
			diagnostics: []string{
				"Overriding **machine_width** with the same value (**200**) as defined in parent definition: **base**",
				"Overriding **machine_name** with the same value (**Unknown**) as defined in parent definition: **base**",
			},
		},
		{
			ExampleRequest: ExampleRequest{method: "GET", url: "/lint/base", statusCode: 200},
			diagnostics:    []string{},
		},
		{
			ExampleRequest: ExampleRequest{method: "GET", url: "/lint/fdmprinter", statusCode: 200},
			diagnostics:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rr := serve(router, tt.ExampleRequest)
			require.Equal(t, tt.statusCode, rr.Code)
			assert.Equal(t, applicationJSON, rr.Header().Get("Content-Type"))

			var got []lint.Diagnostic
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))

			messages := []string{}
			for _, d := range got {
				assert.Equal(t, lint.RedundantOverride, d.RuleID)
				assert.Equal(t, filepath.Join(dir, "printer.def.json"), d.File)
				messages = append(messages, d.Message)
			}
			assert.Equal(t, tt.diagnostics, messages)
		})
	}
}

func Test_routesLintChainHeader(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	rr := serve(router, ExampleRequest{method: "GET", url: "/lint/printer"})
	assert.Equal(t, 200, rr.Code)
	assert.Equal(t, "printer,base,fdmprinter", rr.Header().Get("X-Lint-Chain"))
}

func Test_routesLintErrors(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{
		"orphan": `{"inherits": "gone", "overrides": {"machine_width": {"default_value": 1}}}`,
		"broken": definitions["broken"],
		"fdmprinter": test.Root,
	})
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	tests := []ExampleRequest{
		{
			method:     "GET",
			url:        "/xxxxx",
			statusCode: 404,
			jsonOutput: `404 page not found`,
		},
		{
			method:     "GET",
			url:        "/lint/missing",
			statusCode: 404,
			jsonOutput: `{"message":"missing.def.json: definition not found"}`,
		},
		{
			method:     "GET",
			url:        "/lint/orphan?strict=true",
			statusCode: 500,
			jsonOutput: `{"message":"gone.def.json, inherited by orphan: ancestor definition not found"}`,
		},
		{
			method:     "GET",
			url:        "/lint/broken",
			statusCode: 500,
			jsonOutput: fmt.Sprintf(`{"message":"no_such_setting in %s: setting not defined by the root definition"}`, filepath.Join(dir, "broken.def.json")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			validateRequest(t, tt, tt.jsonOutput, router)
		})
	}
}

func Test_routesLintStrictDefault(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{
		"orphan": `{"inherits": "gone", "overrides": {"machine_width": {"default_value": 1}}}`,
	})
	router := setUpRouter(t, fileBackends(t, dir), false, func(c *config.ApplicationConfiguration) {
		c.Lint.Strict = true
	})

	rr := serve(router, ExampleRequest{method: "GET", url: "/lint/orphan"})
	assert.Equal(t, 500, rr.Code)
	assert.Contains(t, rr.Body.String(), "ancestor definition not found")

	// the query wins over the configured default; a truncated chain has no root to check against
	rr = serve(router, ExampleRequest{method: "GET", url: "/lint/orphan?strict=false"})
	assert.Equal(t, 500, rr.Code)
	assert.Contains(t, rr.Body.String(), "chain has no root definition")
}

func Test_routesLintAll(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	rr := serve(router, ExampleRequest{method: "GET", url: "/lint"})
	require.Equal(t, 200, rr.Code)

	var results []lint.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 4)

	byName := map[string]lint.Result{}
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Len(t, byName["printer"].Diagnostics, 2)
	assert.Empty(t, byName["base"].Diagnostics)
	assert.Empty(t, byName["fdmprinter"].Diagnostics)
	assert.Contains(t, byName["broken"].Error, "setting not defined by the root definition")
	assert.Equal(t, []string{"base", "fdmprinter"}, byName["base"].Chain)
}

func Test_routesLintRespectsSettings(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)

	router := chi.NewRouter()
	routing := Routing{
		ParentRouter: router,
		Backends:     fileBackends(t, dir),
		Settings:     &config.LintSettings{Checks: map[string]bool{lint.RedundantOverride: false}},
	}
	router.Route("/", func(r chi.Router) {
		require.NoError(t, routing.SetupFunctionalRoutes(r))
	})

	validateRequest(t, ExampleRequest{method: "GET", url: "/lint/printer", statusCode: 200}, `[]`, router)
}

func Test_routesDefinitions(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	validateRequest(t, ExampleRequest{
		method:     "GET",
		url:        "/definitions",
		statusCode: 200,
		headers: http.Header{
			"Content-Type":      []string{"application/json"},
			"X-Backend-Version": []string{""},
		},
	}, `["base","broken","fdmprinter","printer"]`, router)

	validateRequest(t, ExampleRequest{method: "GET", url: "/definitions?pretty=true", statusCode: 200}, `[
  "base",
  "broken",
  "fdmprinter",
  "printer"
]`, router)
}

func Test_routesResolve(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	t.Run("flat", func(t *testing.T) {
		rr := serve(router, ExampleRequest{method: "GET", url: "/resolve/printer"})
		require.Equal(t, 200, rr.Code)
		assert.Equal(t, "printer > base > fdmprinter", rr.Header().Get("X-Resolution-Precedence"))

		var got struct {
			Name     string
			Complete bool
			Settings []struct {
				Key    string
				Value  any
				Source string
			}
			PointlessOverrides []struct{ Key string } `json:"pointlessOverrides"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))

		assert.Equal(t, "printer", got.Name)
		assert.True(t, got.Complete)
		require.Len(t, got.Settings, 6)

		values := map[string]any{}
		sources := map[string]string{}
		for _, s := range got.Settings {
			values[s.Key] = s.Value
			sources[s.Key] = s.Source
		}
		assert.Equal(t, float64(200), values["machine_width"])
		assert.Equal(t, float64(3), values["wall_line_count"])
		assert.Equal(t, "printer", sources["wall_line_count"])
		assert.Equal(t, "fdmprinter", sources["layer_height"])
		assert.Len(t, got.PointlessOverrides, 2)
	})

	t.Run("nested", func(t *testing.T) {
		rr := serve(router, ExampleRequest{method: "GET", url: "/resolve/printer?nested=true"})
		require.Equal(t, 200, rr.Code)

		var got struct {
			Settings map[string]map[string]map[string]any
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, float64(3), got.Settings["resolution"]["wall_line_count"]["value"])
	})

	t.Run("yaml", func(t *testing.T) {
		rr := serve(router, ExampleRequest{method: "GET", url: "/resolve/base?format=yaml"})
		require.Equal(t, 200, rr.Code)
		assert.Equal(t, applicationYAML, rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Body.String(), "precedence: base > fdmprinter")
	})

	t.Run("missing", func(t *testing.T) {
		validateRequest(t, ExampleRequest{method: "GET", url: "/resolve/nope", statusCode: 404},
			`{"message":"nope.def.json: definition not found"}`, router)
	})
}

func Test_routesGitBackendVersion(t *testing.T) {
	gitDir := t.TempDir()

	repo, err := goGit.PlainInit(gitDir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	test.WriteDefinitions(t, gitDir, definitions)
	require.NoError(t, wt.AddWithOptions(&goGit.AddOptions{All: true}))
	hash, err := wt.Commit("definitions", &goGit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	b := &git.Backend{}
	require.NoError(t, b.Init(context.Background(), config.ApplicationConfiguration{
		Git: config.GitConfig{Uri: gitDir, Basedir: gitDir},
	}))
	t.Cleanup(b.Close)

	router := setUpRouter(t, backend.Backends{b}, false, nil)

	rr := serve(router, ExampleRequest{method: "GET", url: "/lint/printer?norefresh"})
	require.Equal(t, 200, rr.Code)
	assert.Equal(t, hash.String(), rr.Header().Get("X-Backend-Version"))

	var got []lint.Diagnostic
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func Test_routesTraced(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)

	sr := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider()
	tracerProvider.RegisterSpanProcessor(sr)
	otel.SetTracerProvider(tracerProvider)

	router := setUpRouter(t, fileBackends(t, dir), true, nil)

	rr := serve(router, ExampleRequest{method: "GET", url: "/lint/printer"})
	require.Equal(t, 200, rr.Code)

	require.Len(t, sr.Ended(), 3)

	assertSpan(t, sr.Ended()[0], "loadState", trace.SpanKindServer)
	assertSpan(t, sr.Ended()[1], "lint", trace.SpanKindInternal, attribute.String("definition", "printer"))
	assertSpan(t, sr.Ended()[2], "/lint/{definition}", trace.SpanKindServer)
}

func Test_routesMetrics(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	router := chi.NewRouter()
	routing := Routing{ParentRouter: router, Backends: fileBackends(t, dir), Metrics: metrics}
	router.Route("/", func(r chi.Router) {
		require.NoError(t, routing.SetupFunctionalRoutes(r))
	})

	serve(router, ExampleRequest{method: "GET", url: "/lint"})
	serve(router, ExampleRequest{method: "GET", url: "/lint/missing"})

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.runs.WithLabelValues("clean")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("diagnostics")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.runs.WithLabelValues("error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.diagnostics.WithLabelValues(lint.RedundantOverride)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
}

func Test_routesSetupRequiresBackend(t *testing.T) {
	routing := Routing{}
	assert.EqualError(t, routing.SetupFunctionalRoutes(chi.NewRouter()), "no backends configured")
}

func Test_routesResponseLoggingEnabled(t *testing.T) {
	dir := test.DefinitionsDir(t, definitions)
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	original := log.Logger
	defer func() { log.Logger = original }()

	var str bytes.Buffer
	log.Logger = zerolog.New(&str).With().Timestamp().Logger()

	validateRequest(t, ExampleRequest{method: "GET", url: "/definitions?logResponses=true", statusCode: 200},
		`["base","broken","fdmprinter","printer"]`, router)

	assert.Contains(t, str.String(), `Response: [\"base\",\"broken\",\"fdmprinter\",\"printer\"]`)
}

func Test_routesResponseErrorsLogged(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{"junk": `junk sdasdasda`})
	router := setUpRouter(t, fileBackends(t, dir), false, nil)

	original := log.Logger
	defer func() { log.Logger = original }()

	var str bytes.Buffer
	require.NoError(t, logging.Setup(&str, logging.Options{Level: "debug"}))

	rr := serve(router, ExampleRequest{method: "GET", url: "/lint/junk"})
	assert.Equal(t, 500, rr.Code)
	assert.Contains(t, rr.Body.String(), "malformed definition")

	logOutput := str.String()
	assert.Contains(t, logOutput, "malformed definition")
	assert.Contains(t, logOutput, "api/routes.go") // caller
}

func Test_overrideBooleanDefault(t *testing.T) {
	assert.True(t, overrideBooleanDefault("TRUE", false))
	assert.False(t, overrideBooleanDefault("false", true))
	assert.True(t, overrideBooleanDefault("", true))
	assert.False(t, overrideBooleanDefault("yes", false))
}

func fileBackends(t *testing.T, dir string) backend.Backends {
	t.Helper()
	b := &file.Backend{}
	require.NoError(t, b.Init(context.Background(), config.ApplicationConfiguration{File: config.FileConfig{Path: dir}}))
	return backend.Backends{b}
}

func serve(router http.Handler, tt ExampleRequest) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.url, tt.body))
	return rr
}

func validateRequest(t *testing.T, tt ExampleRequest, jsonOutput string, router http.Handler) {
	rr := serve(router, tt)

	assert.Equal(t, tt.statusCode, rr.Code)
	assert.Equal(t, jsonOutput, strings.TrimSpace(rr.Body.String()))

	if tt.headers != nil {
		assert.Equal(t, tt.headers, rr.Header())
	}
}

func setUpRouter(t *testing.T, bs backend.Backends, traceEnabled bool, configure func(*config.ApplicationConfiguration)) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)

	appConfig := config.ApplicationConfiguration{
		Tracing: config.Tracing{
			Enabled: traceEnabled,
		},
	}
	if configure != nil {
		configure(&appConfig)
	}

	routing := Routing{
		ServerName:   traceServerName,
		ParentRouter: router,

		Backends:  bs,
		AppConfig: appConfig,
	}

	router.Route("/", func(r chi.Router) {
		err := routing.SetupFunctionalRoutes(r)
		assert.NoError(t, err)
	})
	return router
}

type ExampleRequest struct {
	method     string
	url        string
	body       io.Reader
	statusCode int
	jsonOutput string
	headers    http.Header
}

func assertSpan(t *testing.T, span sdktrace.ReadOnlySpan, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) {
	assert.Equal(t, name, span.Name())
	assert.Equal(t, kind, span.SpanKind())

	got := make(map[attribute.Key]attribute.Value, len(span.Attributes()))
	for _, a := range span.Attributes() {
		got[a.Key] = a.Value
	}
	for _, want := range attrs {
		if !assert.Contains(t, got, want.Key) {
			continue
		}
		assert.Equal(t, got[want.Key], want.Value)
	}
}
