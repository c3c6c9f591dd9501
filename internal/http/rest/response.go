package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/tracing"
	"github.com/bwise1/clarity/util/values"
	"go.uber.org/zap"
)

// ServerResponse is the envelope every endpoint answers with.
type ServerResponse struct {
	Err        error       `json:"-"`
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

// page wraps list results with the link to the following page, if any.
type page struct {
	Items interface{} `json:"items"`
	Next  string      `json:"next,omitempty"`
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	log := zap.S().With("request_id", tc.RequestID, "source", tc.RequestSource, "status", status)
	if util.StatusCode(status) >= http.StatusInternalServerError {
		log.Errorw(message, "error", err)
	} else {
		log.Debugw(message, "error", err)
	}

	return &ServerResponse{
		Err:        err,
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

func respondWithData(data interface{}, message, status string) *ServerResponse {
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       data,
	}
}

// errorStatus maps a workflow error onto a response status.
func errorStatus(err error) string {
	var depErr *apperr.DependencyError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return values.NotFound
	case errors.Is(err, apperr.ErrInvalidOption), errors.Is(err, apperr.ErrInvalidInput):
		return values.BadRequestBody
	case errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrConflict):
		return values.Conflict
	case errors.Is(err, apperr.ErrForbidden):
		return values.NotAllowed
	case errors.Is(err, apperr.ErrRateLimited):
		return values.TooManyRequest
	case errors.Is(err, apperr.ErrModerationHold):
		return values.Held
	case errors.As(err, &depErr):
		return values.Unavailable
	default:
		return values.Error
	}
}

// errorMessage is safe to show to clients: domain errors explain themselves,
// anything else gets the generic message.
func errorMessage(err error, fallback string) string {
	var depErr *apperr.DependencyError
	switch {
	case apperr.IsDomain(err):
		return err.Error()
	case errors.As(err, &depErr):
		return depErr.Dependency + " is unavailable, please try again later"
	case fallback != "":
		return fallback
	default:
		return values.SystemErr
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	resp := ServerResponse{
		Err:        err,
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
	respByte, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		http.Error(w, values.SystemErr, http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

func writeJSONResponse(w http.ResponseWriter, content []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(content); err != nil {
		zap.S().Warnw("writing response", "error", err)
	}
}
