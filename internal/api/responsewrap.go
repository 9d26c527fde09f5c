package api

import "net/http"

// responseWrapper captures the written status plus per-request annotations
// (cache status, error category) for the access log and metrics.
type responseWrapper struct {
	http.ResponseWriter
	status        int
	wroteHeader   bool
	cacheStatus   string
	errorCategory string
}

func wrapResponse(w http.ResponseWriter) *responseWrapper {
	return &responseWrapper{ResponseWriter: w, status: http.StatusOK}
}

func (w *responseWrapper) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWrapper) Write(body []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(body)
}

func (w *responseWrapper) SetCacheStatus(status string) {
	w.cacheStatus = status
}

func (w *responseWrapper) SetErrorCategory(category string) {
	w.errorCategory = category
}
