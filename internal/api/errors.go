// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	xglog "github.com/pkepg/epgstitch/internal/log"
)

// errorBody is the JSON shape of every non-2xx answer. Code is a stable
// machine-readable reason; Detail is for humans.
type errorBody struct {
	Code      string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with errorBody, echoing the request id set by the
// middleware stack.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	body := errorBody{Code: code, Detail: detail}
	if r != nil {
		body.RequestID = xglog.RequestIDFromContext(r.Context())
	}
	writeJSON(w, status, body)
}
