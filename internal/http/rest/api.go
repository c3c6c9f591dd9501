package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/clarity/config"
	deps "github.com/bwise1/clarity/internal/debs"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultShutdownPeriod = 30 * time.Second
	healthCheckTimeout    = 2 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(RequestTracing)

	mux.Method(http.MethodGet, "/healthz", Handler(api.Health))
	mux.Handle("/metrics", promhttp.Handler())

	mux.Mount("/auth", api.AuthRoutes())
	mux.Mount("/users", api.UserRoutes())
	mux.Mount("/posts", api.PostRoutes())
	mux.Mount("/disputes", api.DisputeRoutes())
	mux.Mount("/moderation", api.ModerationRoutes())

	return mux
}

func (api *API) Health(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	if api.Deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := api.Deps.DB.Ping(ctx); err != nil {
			return respondWithError(err, "database unreachable", values.Unavailable, &tc)
		}
	}
	return respondWithData(nil, "ok", values.Success)
}

func (api *API) Shutdown(ctx context.Context) error {
	if api.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownPeriod)
	defer cancel()
	return api.Server.Shutdown(ctx)
}
