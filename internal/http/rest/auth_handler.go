package rest

import (
	"net/http"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) AuthRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodPost, "/google/login", Handler(api.LoginWithGoogle))
	return mux
}

func (api *API) LoginWithGoogle(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.GoogleLoginRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "validation failed", values.BadRequestBody, &tc)
	}

	resp, status, message, err := api.LoginWithGoogleHelper(r.Context(), req.AccessToken)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return respondWithData(resp, message, status)
}
