package rest

import (
	"net/http"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) DisputeRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListDisputes))
	mux.Method(http.MethodGet, "/{disputeID}", Handler(api.GetDispute))

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)
		r.Get("/{disputeID}/ws", api.DisputeUpdates)
		r.Method(http.MethodPost, "/{disputeID}/votes", Handler(api.CastDisputeVote))
		r.Method(http.MethodPost, "/{disputeID}/comments", Handler(api.CommentOnDispute))
		r.With(api.RequireModerator).
			Method(http.MethodPost, "/{disputeID}/verdict", Handler(api.SubmitVerdict))
	})

	return mux
}

func (api *API) CreateDispute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	postID, err := uuidParam(r, "postID")
	if err != nil {
		return respondWithError(err, "invalid post id", values.BadRequestBody, &tc)
	}
	user, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var req model.CreateDisputeRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	d, status, message, err := api.CreateDisputeHelper(r.Context(), postID, user, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(d, message, status)
}

func (api *API) ListDisputes(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	p := pageParams(r)
	disputes, status, message, err := api.ListDisputesHelper(r.Context(), p)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return respondWithData(page{
		Items: disputes,
		Next:  util.NextPageLink(r.URL.Path, p, len(disputes)),
	}, message, status)
}

func (api *API) GetDispute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	disputeID, err := uuidParam(r, "disputeID")
	if err != nil {
		return respondWithError(err, "invalid dispute id", values.BadRequestBody, &tc)
	}

	detail, status, message, err := api.DisputeDetailHelper(r.Context(), disputeID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(detail, message, status)
}

func (api *API) CastDisputeVote(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	disputeID, err := uuidParam(r, "disputeID")
	if err != nil {
		return respondWithError(err, "invalid dispute id", values.BadRequestBody, &tc)
	}
	user, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var req model.CastVoteRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	d, status, message, err := api.CastVoteHelper(r.Context(), disputeID, req.Option, user)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(d, message, status)
}

func (api *API) SubmitVerdict(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	disputeID, err := uuidParam(r, "disputeID")
	if err != nil {
		return respondWithError(err, "invalid dispute id", values.BadRequestBody, &tc)
	}
	moderator, ok := currentUser(r)
	if !ok {
		return respondWithError(nil, "unable to get user from context", values.NotAuthorised, &tc)
	}

	var req model.SubmitVerdictRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	d, status, message, err := api.SubmitVerdictHelper(r.Context(), disputeID, req, moderator)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(d, message, status)
}

func (api *API) CommentOnDispute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	disputeID, err := uuidParam(r, "disputeID")
	if err != nil {
		return respondWithError(err, "invalid dispute id", values.BadRequestBody, &tc)
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

	c, status, message, err := api.CommentOnDisputeHelper(r.Context(), disputeID, user.ID, req.Content)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return respondWithData(c, message, status)
}

// DisputeUpdates upgrades to a websocket that receives every change to the
// dispute. It writes its own response, so it is not wrapped in Handler.
func (api *API) DisputeUpdates(w http.ResponseWriter, r *http.Request) {
	disputeID, err := uuidParam(r, "disputeID")
	if err != nil {
		writeErrorResponse(w, err, values.BadRequestBody, "invalid dispute id")
		return
	}
	if _, err := api.Deps.Disputes.Get(r.Context(), disputeID); err != nil {
		writeErrorResponse(w, err, errorStatus(err), errorMessage(err, "unable to load dispute"))
		return
	}
	user, _ := currentUser(r)

	api.Deps.WebSocket.HandleConnections(w, r, user.ID.String(), disputeID.String())
}
