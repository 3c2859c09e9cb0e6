package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the standardized REST error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// RespondError writes a standardized error response.
func RespondError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Detail: detail,
		Code:   code,
	})
}

// RespondBadRequest writes a bad request error response.
func RespondBadRequest(w http.ResponseWriter, code, detail string) {
	RespondError(w, http.StatusBadRequest, code, detail)
}

// RespondUnauthorized writes an unauthorized error response.
func RespondUnauthorized(w http.ResponseWriter, code, detail string) {
	RespondError(w, http.StatusUnauthorized, code, detail)
}

// RespondForbidden writes a forbidden error response.
func RespondForbidden(w http.ResponseWriter, code, detail string) {
	RespondError(w, http.StatusForbidden, code, detail)
}

// RespondNotFound writes a not found error response.
func RespondNotFound(w http.ResponseWriter, code, detail string) {
	RespondError(w, http.StatusNotFound, code, detail)
}

// RespondConflict writes a conflict error response.
func RespondConflict(w http.ResponseWriter, code, detail string) {
	RespondError(w, http.StatusConflict, code, detail)
}

// RespondGone writes a gone error response for ended sessions.
func RespondGone(w http.ResponseWriter, code, detail string) {
	RespondError(w, http.StatusGone, code, detail)
}

// RespondInternalError writes an internal server error response.
func RespondInternalError(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusInternalServerError, ErrCodeInternal, detail)
}
