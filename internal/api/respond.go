package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"scraper_gateway/internal/upstream"
)

const RequestIDHeader = "X-Request-Id"

type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type statusRecorder interface {
	SetErrorCategory(category string)
	SetCacheStatus(status string)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, category string, body ErrorBody) {
	if recorder, ok := w.(statusRecorder); ok {
		recorder.SetErrorCategory(category)
	}
	writeJSON(w, status, body)
}

// writeUpstreamError maps the closed error taxonomy onto terminal HTTP
// statuses. Not-found is the only kind whose message varies per endpoint.
func writeUpstreamError(w http.ResponseWriter, err error, notFoundMessage string) {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		switch ue.Kind {
		case upstream.KindTimeout:
			writeError(w, http.StatusGatewayTimeout, "timeout", ErrorBody{Message: "Upstream timeout"})
			return
		case upstream.KindBlocked:
			writeError(w, http.StatusBadGateway, "blocked", ErrorBody{Message: "Upstream request blocked"})
			return
		case upstream.KindRateLimited:
			writeError(w, http.StatusTooManyRequests, "rate_limited", ErrorBody{Message: "Rate limited by upstream"})
			return
		case upstream.KindNotFound:
			writeError(w, http.StatusNotFound, "not_found", ErrorBody{Message: notFoundMessage})
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal", ErrorBody{Message: "Internal Server Error", Error: err.Error()})
}

func setCacheStatus(w http.ResponseWriter, status string) {
	if recorder, ok := w.(statusRecorder); ok && status != "" {
		recorder.SetCacheStatus(status)
	}
}

func NewRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
