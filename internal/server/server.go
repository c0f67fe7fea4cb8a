package server

import (
	"context"
	"net/http"
	"time"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/internal/server/endpoints"
	"github.com/agubarev/rolegate/internal/server/endpoints/account"
	"github.com/agubarev/rolegate/internal/server/endpoints/roles"
	"github.com/agubarev/rolegate/pkg/util"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrRouteNotFound is returned for unknown routes
var ErrRouteNotFound = errors.New("route not found")

const shutdownTimeout = 5 * time.Second

// Router returns a read-only API router
func Router(ctx context.Context, c *core.Core) http.Handler {
	if err := c.Validate(); err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(MiddlewareLogger(c.Logger().Named("[http]")))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		util.WriteResponseErrorTo(w, "not_found", ErrRouteNotFound, http.StatusNotFound)
	})

	//---------------------------------------------------------------------------
	// API ROUTING (V1)
	//---------------------------------------------------------------------------
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/roles", func(r chi.Router) {
			r.Method(http.MethodGet, "/", endpoints.NewEndpoint(ctx, c, roles.List, "list_roles"))
			r.Method(http.MethodGet, "/{role}", endpoints.NewEndpoint(ctx, c, roles.Get, "get_role"))
			r.Method(http.MethodGet, "/{role}/check/{account}", endpoints.NewEndpoint(ctx, c, roles.Check, "check_role"))
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Method(http.MethodGet, "/{account}/roles", endpoints.NewEndpoint(ctx, c, account.Roles, "account_roles"))
		})

		r.Method(http.MethodGet, "/verify", endpoints.NewEndpoint(ctx, c, roles.Verify, "verify"))
	})

	return r
}

// Run serves the API until the context is cancelled
func Run(ctx context.Context, c *core.Core, addr string) (err error) {
	srv := &http.Server{
		Addr:    addr,
		Handler: Router(ctx, c),
	}

	errch := make(chan error, 1)

	go func() {
		c.Logger().Info("starting server", zap.String("addr", addr))
		errch <- srv.ListenAndServe()
	}()

	select {
	case err = <-errch:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	c.Logger().Info("shutting down server")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(sctx)
}
