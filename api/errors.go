package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cipherbet/engine/log"
)

// Error is the unit handlers return to the client: a wrapped error, a
// stable numeric code from errors_definition.go and the HTTP status to
// reply with.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the error string and code; the HTTP status travels in
// the response status line, not the body.
//
// Example output: {"error":"market not found","code":40007}
func (e Error) MarshalJSON() ([]byte, error) {
	// json.Marshal never calls Err.Error() on its own, so flatten it here.
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Err.Error()
}

// Write sends the error to the client as a JSON body under e.HTTPstatus.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("api error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf appends a formatted detail string to the error, keeping code and
// status.
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With appends a detail string to the error, keeping code and status.
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr appends the cause's message to the error without wrapping the
// cause itself, so client-facing codes stay stable.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}
