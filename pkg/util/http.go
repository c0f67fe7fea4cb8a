package util

import (
	"fmt"
	"net/http"
	"strconv"
)

// WriteJSONTo marshals a payload and writes it as a JSON response
func WriteJSONTo(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %s", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	w.Write(body)
}

// WriteResponseErrorTo writes an error as HTTPError, key names
// the endpoint or condition that failed
func WriteResponseErrorTo(w http.ResponseWriter, key string, err error, code int) {
	WriteJSONTo(w, code, HTTPError{
		Key:     key,
		Message: err.Error(),
		Code:    code,
	})
}
