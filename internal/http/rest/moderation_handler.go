package rest

import (
	"context"
	"net/http"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (api *API) ModerationRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Route("/", func(r chi.Router) {
		r.Use(api.RequireLogin, api.RequireModerator)
		r.Method(http.MethodGet, "/queue", Handler(api.ModerationQueue))
		r.Method(http.MethodPost, "/queue/{flagID}/approve", Handler(api.ApproveFlagged))
		r.Method(http.MethodPost, "/queue/{flagID}/remove", Handler(api.RemoveFlagged))
		r.Method(http.MethodPost, "/queue/{flagID}/dismiss", Handler(api.DismissFlag))
		r.Method(http.MethodDelete, "/posts/{postID}", Handler(api.RemovePost))
	})

	return mux
}

func (api *API) ModerationQueue(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	moderator, _ := currentUser(r)
	p := pageParams(r)
	flags, err := api.Deps.Moderation.Queue(r.Context(), moderator, p)
	if err != nil {
		return respondWithError(err, errorMessage(err, "unable to load review queue"), errorStatus(err), &tc)
	}
	if flags == nil {
		flags = []model.FlaggedContent{}
	}

	return respondWithData(page{
		Items: flags,
		Next:  util.NextPageLink(r.URL.Path, p, len(flags)),
	}, "review queue retrieved", values.Success)
}

func (api *API) ApproveFlagged(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	flagID, err := uuidParam(r, "flagID")
	if err != nil {
		return respondWithError(err, "invalid queue entry id", values.BadRequestBody, &tc)
	}
	moderator, _ := currentUser(r)

	post, err := api.Deps.Moderation.Approve(r.Context(), flagID, moderator)
	if err != nil {
		return respondWithError(err, errorMessage(err, "unable to approve post"), errorStatus(err), &tc)
	}
	return respondWithData(post, "post approved", values.Created)
}

func (api *API) RemoveFlagged(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return api.resolveFlag(r, api.Deps.Moderation.Remove, "held post removed")
}

func (api *API) DismissFlag(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return api.resolveFlag(r, api.Deps.Moderation.DismissFlag, "flag dismissed")
}

func (api *API) RemovePost(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}
	moderator, _ := currentUser(r)

	if err := api.Deps.Moderation.RemovePost(r.Context(), postID, moderator); err != nil {
		return respondWithError(err, errorMessage(err, "unable to remove post"), errorStatus(err), &tc)
	}
	return respondWithData(nil, "post removed", values.Success)
}

func (api *API) resolveFlag(r *http.Request, resolve func(ctx context.Context, flagID uuid.UUID, moderator model.User) error, message string) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	flagID, err := uuidParam(r, "flagID")
	if err != nil {
		return respondWithError(err, "invalid queue entry id", values.BadRequestBody, &tc)
	}
	moderator, _ := currentUser(r)

	if err := resolve(r.Context(), flagID, moderator); err != nil {
		return respondWithError(err, errorMessage(err, "unable to resolve queue entry"), errorStatus(err), &tc)
	}
	return respondWithData(nil, message, values.Success)
}
