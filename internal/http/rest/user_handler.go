package rest

import (
	"net/http"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) UserRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Method(http.MethodGet, "/me", Handler(api.GetProfile))
	})
	mux.Method(http.MethodGet, "/{userID}", Handler(api.GetPublicProfile))
	mux.Method(http.MethodGet, "/{userID}/posts", Handler(api.GetPostsAboutUser))

	return mux
}

func (api *API) GetProfile(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	user, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	return respondWithData(user, "User profile retrieved successfully", values.Success)
}

func (api *API) GetPublicProfile(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := uuidParam(r, "userID")
	if err != nil {
		return respondWithError(err, "invalid user id", values.BadRequestBody, &tc)
	}

	user, err := api.Deps.Store.GetUser(r.Context(), userID)
	if err != nil {
		return respondWithError(err, errorMessage(err, "failed to get user profile"), errorStatus(err), &tc)
	}

	return respondWithData(publicProfile(user), "User profile retrieved successfully", values.Success)
}

func (api *API) GetPostsAboutUser(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := uuidParam(r, "userID")
	if err != nil {
		return respondWithError(err, "invalid user id", values.BadRequestBody, &tc)
	}

	p := pageParams(r)
	posts, err := api.Deps.Store.ListPostsAboutUser(r.Context(), userID, p)
	if err != nil {
		return respondWithError(err, errorMessage(err, "failed to list posts"), errorStatus(err), &tc)
	}
	if posts == nil {
		posts = []model.Post{}
	}

	return respondWithData(page{
		Items: posts,
		Next:  util.NextPageLink(r.URL.Path, p, len(posts)),
	}, "posts retrieved", values.Success)
}

// publicProfile hides contact and sign-in details.
func publicProfile(u model.User) model.User {
	u.Email = ""
	u.AuthProvider = ""
	return u
}
