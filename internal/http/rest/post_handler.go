package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/go-chi/chi/v5"
)

const maxImageUpload = 10 << 20

func (api *API) PostRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListPosts))
	mux.Method(http.MethodGet, "/{postID}", Handler(api.GetPost))
	mux.Method(http.MethodGet, "/{postID}/comments", Handler(api.GetPostComments))

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.With(api.RateLimit("post", api.Config.PostRateLimit)).
			Method(http.MethodPost, "/", Handler(api.CreatePost))
		r.Method(http.MethodPost, "/{postID}/votes", Handler(api.VotePost))
		r.Method(http.MethodPost, "/{postID}/comments", Handler(api.CommentOnPost))
		r.With(api.RateLimit("flag", api.Config.FlagRateLimit)).
			Method(http.MethodPost, "/{postID}/flags", Handler(api.FlagPost))
		r.Method(http.MethodPost, "/{postID}/disputes", Handler(api.CreateDispute))
	})

	return mux
}

// CreatePost accepts a JSON draft, or a multipart form carrying the same
// fields plus an optional "image" file.
func (api *API) CreatePost(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	author, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var draft model.PostDraft
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageUpload); err != nil {
			return respondWithError(err, "unable to parse form", values.BadRequestBody, &tc)
		}
		draft = model.PostDraft{
			Type:       model.PostType(r.FormValue("type")),
			EntityName: r.FormValue("entity_name"),
			Text:       r.FormValue("text"),
		}

		file, header, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return respondWithError(err, "unable to read image", values.BadRequestBody, &tc)
		default:
			defer file.Close()
			url, status, message, err := api.UploadPostImageHelper(r.Context(), file, header.Filename)
			if err != nil {
				return respondWithError(err, message, status, &tc)
			}
			draft.ImageURL = url
		}
	} else if decodeErr := util.DecodeJSONBody(&tc, r.Body, &draft); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(draft); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	outcome, status, message, err := api.CreatePostHelper(r.Context(), draft, author)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	if outcome.Held != nil {
		return respondWithData(outcome.Held, message, status)
	}
	return respondWithData(outcome.Post, message, status)
}

func (api *API) ListPosts(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	p := pageParams(r)
	posts, err := api.Deps.Store.ListPosts(r.Context(), p)
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

func (api *API) GetPost(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}

	post, err := api.Deps.Store.GetPost(r.Context(), postID)
	if err != nil {
		return respondWithError(err, errorMessage(err, "failed to get post"), errorStatus(err), &tc)
	}

	return respondWithData(post, "post retrieved", values.Success)
}

func (api *API) VotePost(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}
	user, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var req model.PostVoteRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	post, status, message, err := api.VotePostHelper(r.Context(), postID, user.ID, req.VoteType)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(post, message, status)
}

func (api *API) CommentOnPost(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}
	user, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var req model.CommentRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	comment, status, message, err := api.CommentOnPostHelper(r.Context(), postID, user.ID, req.Content)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(comment, message, status)
}

func (api *API) GetPostComments(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}

	comments, err := api.Deps.Store.ListPostComments(r.Context(), postID)
	if err != nil {
		return respondWithError(err, errorMessage(err, "failed to list comments"), errorStatus(err), &tc)
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return respondWithData(comments, "comments retrieved", values.Success)
}

func (api *API) FlagPost(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}
	user, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var req model.FlagPostRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	flag, status, message, err := api.FlagPostHelper(r.Context(), postID, user, req.Reason)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(flag, message, status)
}
