package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// StartVendor runs a fake scraping vendor. The handler sees the vendor-side
// request, with the target marketplace URL in the "url" query parameter.
func StartVendor(t *testing.T, handler http.Handler) (baseURL string, closeVendor func()) {
	t.Helper()
	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		})
	}

	server := httptest.NewServer(handler)
	return server.URL, server.Close
}

// TargetURL extracts the decoded marketplace URL the gateway asked the vendor
// to scrape.
func TargetURL(r *http.Request) string {
	return r.URL.Query().Get("url")
}

// TargetPath strips scheme and host from the target URL, keeping path and
// query, e.g. "/dp/B000000000" or "/s?k=laptop".
func TargetPath(r *http.Request) string {
	target := TargetURL(r)
	for _, prefix := range []string{"https://", "http://"} {
		target = strings.TrimPrefix(target, prefix)
	}
	if i := strings.IndexByte(target, '/'); i >= 0 {
		return target[i:]
	}
	return "/"
}

// TargetTLD reports the marketplace domain suffix of the target URL, e.g.
// ".ca".
func TargetTLD(r *http.Request) string {
	target := TargetURL(r)
	const marker = "www.amazon"
	i := strings.Index(target, marker)
	if i < 0 {
		return ""
	}
	rest := target[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
