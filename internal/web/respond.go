// internal/web/respond.go
package web

import (
	"log"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"libradesk/internal/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorBody struct {
	Error string `json:"error"`
}

// Respond writes v as a JSON body with the given status.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// RespondError maps err onto the error taxonomy and writes the standard
// {"error": "..."} body. Unclassified errors are logged and masked.
func RespondError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		msg = "internal server error"
	}
	Respond(w, status, errorBody{Error: msg})
}

// Decode parses the request body into v, translating malformed JSON into a
// validation error.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
