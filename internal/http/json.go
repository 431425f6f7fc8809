package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps an application error to an HTTP status and writes it as
// a JSON error response. Field-scoped validation errors carry the field name
// so form widgets can attach the message to the offending input.
func WriteAppError(w http.ResponseWriter, err error) {
	status, errCode := statusForError(err)

	payload := map[string]string{
		"error":   errCode,
		"message": err.Error(),
	}
	if field := apperrors.GetField(err); field != "" {
		payload["field"] = field
	}
	WriteJSON(w, status, payload)
}

// statusForError translates the application error taxonomy into HTTP status
// codes and stable machine-readable error codes.
func statusForError(err error) (int, string) {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, "validation_failed"
	case apperrors.IsInvalidCredential(err):
		return http.StatusUnauthorized, "invalid_credentials"
	case apperrors.IsPermissionDenied(err):
		return http.StatusForbidden, "permission_denied"
	case apperrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case apperrors.IsConflict(err):
		return http.StatusConflict, "conflict"
	case apperrors.IsRemoteAuth(err):
		return http.StatusBadGateway, "identity_provider_error"
	case apperrors.IsTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
