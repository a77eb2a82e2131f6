package setup

import (
	"context"

	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/backend/file"
	"github.com/GlintPay/defcheck/backend/git"
	"github.com/GlintPay/defcheck/backend/k8s"
	"github.com/GlintPay/defcheck/config"
	"github.com/rs/zerolog/log"
)

// Init builds and initialises every configured backend, highest priority first
func Init(ctx context.Context, appConfig config.ApplicationConfiguration) (backend.Backends, error) {
	backends := newBackends(appConfig)

	for _, each := range backends {
		if backendErr := each.Init(ctx, appConfig); backendErr != nil {
			return nil, backendErr
		}
	}

	return backends.Sorted(), nil
}

func newBackends(appConfig config.ApplicationConfiguration) backend.Backends {
	var backends backend.Backends

	if appConfig.Git.Disabled || appConfig.Git.Uri == "" {
		log.Info().Msg("Git backend is disabled")
	} else {
		log.Info().Msg("Enabling Git backend")
		backends = append(backends, &git.Backend{EnableTrace: appConfig.Tracing.Enabled})
	}

	if appConfig.File.Disabled || appConfig.File.Path == "" {
		log.Info().Msg("File backend is disabled")
	} else {
		log.Info().Msg("Enabling File backend")
		backends = append(backends, &file.Backend{})
	}

	if appConfig.K8s.Enabled {
		log.Info().Msg("Enabling K8s ConfigMap backend")
		backends = append(backends, &k8s.Backend{})
	}

	return backends
}
