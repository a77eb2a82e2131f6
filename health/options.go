package health

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/heptiolabs/healthcheck"
)

type opts struct {
	ChiMux          *chi.Mux
	ReadinessChecks map[string]healthcheck.Check
	Timeout         time.Duration
}

type Opt func(*opts)

func WithChiMux(mux *chi.Mux) Opt {
	return func(o *opts) {
		o.ChiMux = mux
	}
}

// WithReadinessCheck fails readiness while check returns an error, e.g. while a backend cannot be read
func WithReadinessCheck(name string, check healthcheck.Check) Opt {
	return func(o *opts) {
		if o.ReadinessChecks == nil {
			o.ReadinessChecks = map[string]healthcheck.Check{}
		}
		o.ReadinessChecks[name] = check
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(o *opts) {
		o.Timeout = timeout
	}
}
