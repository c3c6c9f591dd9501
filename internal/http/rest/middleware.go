package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
)

const defaultRequestSource = "web"

// RequestTracing handles the request tracing context
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Browsers cannot set headers on websocket upgrades.
		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = defaultRequestSource
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// RequireLogin resolves the bearer token to a user and puts both the id and
// the user into the request context. Websocket clients may pass the token as
// the access_token query parameter instead.
func (api *API) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}

		claims, err := api.verifyToken(token)
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "token-expired")
				return
			}
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-token")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-token")
			return
		}

		user, err := api.Deps.Store.GetUser(r.Context(), userID)
		if errors.Is(err, apperr.ErrNotFound) {
			writeErrorResponse(w, err, values.NotAuthorised, "user-not-found")
			return
		}
		if err != nil {
			api.Deps.Logger.Errorw("loading signed in user", "user_id", userID, "error", err)
			writeErrorResponse(w, err, values.Unavailable, values.SystemErr)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, values.ContextUserIDKey, user.ID.String())
		ctx = context.WithValue(ctx, values.ContextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireModerator must run after RequireLogin.
func (api *API) RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(r)
		if !ok {
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}
		if !user.Role.CanModerate() {
			writeErrorResponse(w, errors.New(values.NotAllowed), values.NotAllowed, "moderators only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit caps how often a signed-in user may perform action. Requests are
// let through when no limiter is configured or redis cannot answer.
func (api *API) RateLimit(action string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := util.GetUserIDFromContext(r.Context())
			if api.Deps.RateLimiter == nil || limit <= 0 || err != nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := api.Deps.RateLimiter.Allow(r.Context(), action, userID.String(), limit)
			if err != nil {
				api.Deps.Logger.Warnw("rate limiter unavailable, allowing request", "action", action, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				writeErrorResponse(w, errors.New(values.TooManyRequest), values.TooManyRequest, "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authorization := strings.Split(r.Header.Get("Authorization"), " ")
	if len(authorization) == 2 && authorization[0] == "Bearer" {
		return authorization[1]
	}
	return r.URL.Query().Get("access_token")
}

func currentUser(r *http.Request) (model.User, bool) {
	user, ok := r.Context().Value(values.ContextUserKey).(model.User)
	return user, ok
}
