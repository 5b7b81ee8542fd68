package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// ErrorBody is the JSON form of a failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error code and a user-facing message.
type ErrorDetail struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// WriteError writes err with the status of its code and returns that
// status.
func WriteError(w http.ResponseWriter, err error) int {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	status := StatusFor(err)
	WriteJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: errs.UserMessage(err)}})
	return status
}

// StatusFor maps an error to an HTTP status.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeUnknownVertex:
		return http.StatusBadRequest
	case errs.ErrCodeCycle, errs.ErrCodeConstraintConflict, errs.ErrCodeDegenerateInput, errs.ErrCodeSingularMatrix:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
