// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pdiddy/bibmine/pkg/types"
)

// Error codes carried in the error envelope.
const (
	CodeValidation       = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeAcquisition      = "acquisition_failed"
	CodeInternal         = "internal"
)

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", slog.Any("error", err))
	}
}

// writeError classifies err and writes the matching status and envelope.
// Unclassified errors are logged and reported with a generic message.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("code", code),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="bibmine"`)
	}
	h.writeEnvelope(w, r, status, code, message)
}

func (h *handler) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, r, status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}

func classify(err error) (status int, code, message string) {
	var (
		ve *types.ValidationError
		ae *types.AuthorizationError
		nf *types.NotFoundError
		qe *types.AcquisitionError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, CodeValidation, ve.Error()
	case errors.As(err, &ae):
		if ae.Unauthenticated {
			return http.StatusUnauthorized, CodeUnauthorized, ae.Error()
		}
		return http.StatusForbidden, CodeForbidden, ae.Error()
	case errors.As(err, &nf):
		return http.StatusNotFound, CodeNotFound, nf.Error()
	case errors.As(err, &qe):
		return http.StatusInternalServerError, CodeAcquisition, "acquisition failed during " + qe.Stage
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}
