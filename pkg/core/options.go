package core

import (
	"go.uber.org/zap"

	"github.com/edustack/tutorguard-go/pkg/flags"
	"github.com/edustack/tutorguard-go/pkg/memoryclaim"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/resilience"
	"github.com/edustack/tutorguard-go/pkg/telemetry"
)

// MiddlewareOption is a function type for configuring a Middleware.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type MiddlewareOption func(*middlewareOptions)

// middlewareOptions collects injectable collaborators. Unset fields are
// built from the Config in NewMiddleware.
type middlewareOptions struct {
	logger       *zap.Logger
	store        profile.Store
	flagProvider flags.Provider
	executor     *resilience.Executor
	queue        *telemetry.Queue
	extractor    memoryclaim.ClaimExtractor
	ownsStore    bool
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	mw, _ := core.NewMiddleware(config, core.WithLogger(logger))
func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(o *middlewareOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProfileStore injects a profile store, overriding the one the Config
// would build. The middleware does not close an injected store.
func WithProfileStore(store profile.Store) MiddlewareOption {
	return func(o *middlewareOptions) {
		if store != nil {
			o.store = store
			o.ownsStore = false
		}
	}
}

// WithFlagProvider injects a feature flag provider. Defaults to a static
// provider with both validators enabled.
func WithFlagProvider(provider flags.Provider) MiddlewareOption {
	return func(o *middlewareOptions) {
		if provider != nil {
			o.flagProvider = provider
		}
	}
}

// WithExecutor injects a resilience executor, overriding the one built from
// the Config's Resilience section. Tests use this to shrink timeouts.
func WithExecutor(executor *resilience.Executor) MiddlewareOption {
	return func(o *middlewareOptions) {
		if executor != nil {
			o.executor = executor
		}
	}
}

// WithTelemetryQueue injects a telemetry queue. The middleware does not
// close an injected queue.
func WithTelemetryQueue(queue *telemetry.Queue) MiddlewareOption {
	return func(o *middlewareOptions) {
		if queue != nil {
			o.queue = queue
		}
	}
}

// WithClaimExtractor swaps the memory claim extraction strategy (e.g. for
// an embedding-based matcher).
func WithClaimExtractor(extractor memoryclaim.ClaimExtractor) MiddlewareOption {
	return func(o *middlewareOptions) {
		if extractor != nil {
			o.extractor = extractor
		}
	}
}
