package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GlintPay/defcheck/api"
	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/backend/setup"
	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/health"
	"github.com/GlintPay/defcheck/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"golang.org/x/sync/errgroup"
)

const serviceName = "defcheck"

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve lint results over HTTP",
		Long: `Run the lint service. The config file is named by DEFCHECK_CONFIG_FILE_YML_PATH
(default defcheck.yml) and selects the file, git or Kubernetes ConfigMap backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	envConfig, err := config.LoadEnvironment()
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	appConfig, err := config.ReadApplicationConfig(envConfig.ApplicationConfigFileYmlPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", envConfig.ApplicationConfigFileYmlPath, err)
	}

	requestLogger := httplog.NewLogger(serviceName, httplog.Options{JSON: !appConfig.Logging.Console, Concise: true})
	// httplog lowers the global level to its own; each logger's level applies instead
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	if err := logging.Setup(os.Stdout, logging.Options{Level: appConfig.Logging.Level, Console: appConfig.Logging.Console}); err != nil {
		return err
	}

	settings, err := config.LoadLintSettings(appConfig.Lint.SettingsFile, nil)
	if err != nil {
		return err
	}
	warnUnknownRules(settings)

	////////////////////////////////////////////

	backends, err := setup.Init(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("backend init failed: %w", err)
	}
	if len(backends) == 0 {
		return errors.New("no backend configured, set one of file.path, git.uri or k8s.enabled")
	}
	defer func() {
		for _, each := range backends {
			each.Close()
		}
	}()

	////////////////////////////////////////////

	traceShutdown, err := setupTracing(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("trace setup failed: %w", err)
	}
	defer traceShutdown()

	metrics, err := api.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(httplog.RequestLogger(requestLogger))
	router.Use(middleware.StripSlashes)

	routing := api.Routing{
		ServerName:   serviceName,
		ParentRouter: router,

		Backends:  backends,
		AppConfig: appConfig,
		Settings:  settings,
		Metrics:   metrics,
	}
	if err := setupRouter(router, &routing, appConfig); err != nil {
		return err
	}
	setupHealthCheck(ctx, router, backends)

	////////////////////////////////////////////

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", appConfig.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

var emptyShutdown = func() {}

func setupTracing(ctx context.Context, config config.ApplicationConfiguration) (func(), error) {
	if !config.Tracing.Enabled {
		return emptyShutdown, nil
	}

	if config.Tracing.Endpoint == "" {
		return emptyShutdown, fmt.Errorf("missing tracing endpoint")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return emptyShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithEndpoint(config.Tracing.Endpoint),
	)
	if err != nil {
		return emptyShutdown, fmt.Errorf("failed to create trace exporter %v", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.Tracing.SamplerFraction)),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info().Msgf("OpenTelemetry export is enabled, to: %s", config.Tracing.Endpoint)

	return func() {
		if err = tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error().Stack().Err(err).Msg("failed to shutdown TracerProvider")
		}
	}, nil
}

func setupRouter(router *chi.Mux, routing *api.Routing, config config.ApplicationConfiguration) error {
	var routeErr error
	router.Route("/", func(r chi.Router) {
		routeErr = routing.SetupFunctionalRoutes(r)
	})
	if routeErr != nil {
		return fmt.Errorf("route setup failed: %w", routeErr)
	}

	if len(config.Prometheus.Path) > 0 {
		log.Info().Msgf("Registering metrics endpoint at: %s", config.Prometheus.Path)
		router.Handle(config.Prometheus.Path, promhttp.Handler())
	}

	return nil
}

// setupHealthCheck reports ready only while the highest-priority backend can be read
func setupHealthCheck(ctx context.Context, router *chi.Mux, backends backend.Backends) {
	healthChk := health.New(
		health.WithChiMux(router),
		health.WithReadinessCheck("backend", func() error {
			_, err := backends[0].GetCurrentState(ctx, false)
			return err
		}),
	)
	healthChk.StartListening()
}
