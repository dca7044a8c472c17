package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"tradedesk/pkg/tradedesk"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMessageSetter interface {
	SetErrorMessage(message string)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeErrorBody(w, r, ErrorResponse{Code: status, Message: message})
}

// writeErrorResponse maps structured store errors to their HTTP status.
// Unclassified errors become 500.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Code: http.StatusInternalServerError, Message: err.Error()}
	var storeErr *tradedesk.Error
	if errors.As(err, &storeErr) {
		resp.ErrorCode = string(storeErr.Code)
		resp.Code = mapErrorCodeToHTTPStatus(storeErr.Code)
		resp.Message = storeErr.Message
		if storeErr.Err != nil && resp.Code != http.StatusInternalServerError {
			resp.Message = storeErr.Message + ": " + storeErr.Err.Error()
		}
	}
	writeErrorBody(w, r, resp)
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, resp ErrorResponse) {
	if r != nil {
		resp.RequestID = middleware.GetReqID(r.Context())
	}
	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(resp.Message)
	}
	writeJSON(w, resp.Code, resp)
}

// mapErrorCodeToHTTPStatus maps store error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code tradedesk.ErrorCode) int {
	switch code {
	case tradedesk.ErrCodeInvalidInput, tradedesk.ErrCodeValidation:
		return http.StatusBadRequest
	case tradedesk.ErrCodeNotFound:
		return http.StatusNotFound
	case tradedesk.ErrCodeStorage:
		return http.StatusBadGateway
	case tradedesk.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
