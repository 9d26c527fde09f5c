package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scraper_gateway/internal/api"
	"scraper_gateway/internal/cache"
	"scraper_gateway/internal/obs"
	"scraper_gateway/internal/scrape"
	"scraper_gateway/internal/testutil"
	"scraper_gateway/internal/upstream"
)

type gateway struct {
	server  *httptest.Server
	store   *cache.Store
	metrics *obs.Metrics

	vendorCalls atomic.Int32
}

// startGateway wires the full stack against a scripted fake vendor. vendor
// receives the decoded marketplace path and returns (status, body); a nil
// vendor answers 200 {} to everything.
func startGateway(t *testing.T, vendor func(path string, tld string) (int, string)) *gateway {
	t.Helper()
	if vendor == nil {
		vendor = func(string, string) (int, string) { return http.StatusOK, `{}` }
	}

	g := &gateway{}
	vendorURL, closeVendor := testutil.StartVendor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.vendorCalls.Add(1)
		status, body := vendor(testutil.TargetPath(r), testutil.TargetTLD(r))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(closeVendor)

	obs.SetAccessLogOutput(io.Discard)
	t.Cleanup(func() { obs.SetAccessLogOutput(nil) })

	g.metrics = obs.NewMetrics()
	g.store = cache.NewStore(time.Hour)
	t.Cleanup(g.store.Close)

	client := upstream.NewClient(vendorURL, "test-key", 2*time.Second)
	service := &scrape.Service{
		Cache:           g.store,
		Coalescer:       cache.NewCoalescer(0),
		Resolver:        upstream.NewResolver(client, []string{".com", ".ca", ".co.uk"}, g.metrics),
		UpstreamTimeout: 2 * time.Second,
	}
	handler := api.NewHandler(api.HandlerConfig{
		Service: service,
		Cache:   g.store,
		Metrics: g.metrics,
	})
	g.server = httptest.NewServer(handler)
	t.Cleanup(g.server.Close)
	return g
}

func (g *gateway) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(g.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func (g *gateway) delete(t *testing.T, path string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, g.server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func decodeJSON(t *testing.T, body []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

func hasKey(keys []string, want string) bool {
	for _, key := range keys {
		if key == want {
			return true
		}
	}
	return false
}

func hasKeySuffix(keys []string, suffix string) bool {
	for _, key := range keys {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}
