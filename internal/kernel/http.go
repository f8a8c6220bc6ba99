// Package kernel builds the HTTP handler: the global middleware stack, the
// operational endpoints and the application routes.
package kernel

import (
	"context"
	"net/http"
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/artisanmart/storefront/pkg/graphql"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/metrics"
	"github.com/artisanmart/storefront/pkg/middleware"
	"github.com/artisanmart/storefront/pkg/reqid"
	"github.com/artisanmart/storefront/pkg/response"
	"github.com/artisanmart/storefront/pkg/router"
)

// Options configure the kernel.
type Options struct {
	CORSOrigins []string
	// RateLimit is requests per minute per client; zero disables it.
	RateLimit int
	// Health reports readiness for /healthz. Nil means always healthy.
	Health  func(ctx context.Context) error
	GraphQL *gql.Schema
	Routes  []func(r *router.Router)
}

type HTTPKernel struct {
	router *router.Router
}

// NewHTTPKernel wires the middleware stack, outermost first:
//
//  1. metrics, so latency covers everything below
//  2. recovery
//  3. request id, before anything logs
//  4. access log
//  5. CORS
//  6. rate limit
func NewHTTPKernel(opts Options) *HTTPKernel {
	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(opts.CORSOrigins...)))
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "healthz", healthz(opts.Health))
	if opts.GraphQL != nil {
		r.Handle("/graphql", "graphql", graphql.Handler(*opts.GraphQL))
	}

	for _, fn := range opts.Routes {
		fn(r)
	}
	return &HTTPKernel{router: r}
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Router exposes the route table, e.g. for route:list.
func (k *HTTPKernel) Router() *router.Router { return k.router }

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.WithCtx(r.Context()).Warn("health check failed", "error", err)
				response.Error(w, http.StatusServiceUnavailable, "Unhealthy")
				return
			}
		}
		response.OK(w, "OK", nil)
	}
}
