package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"scraper_gateway/internal/cache"
	"scraper_gateway/internal/obs"
	"scraper_gateway/internal/scrape"
)

var availableRoutes = []string{
	"GET /",
	"GET /health",
	"GET /metrics",
	"GET /search/{searchQuery}",
	"GET /products/{productId}",
	"GET /products/{productId}/reviews",
	"GET /products/{productId}/offers",
	"GET /products/{productId}/quick",
	"GET /cache/stats",
	"DELETE /cache",
}

type Handler struct {
	service   *scrape.Service
	cache     *cache.Store
	metrics   *obs.Metrics
	mux       *http.ServeMux
	startedAt time.Time
}

type HandlerConfig struct {
	Service *scrape.Service
	Cache   *cache.Store
	Metrics *obs.Metrics
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		service:   cfg.Service,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		mux:       http.NewServeMux(),
		startedAt: time.Now(),
	}

	h.mux.HandleFunc("GET /{$}", h.handleWelcome)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.Handle("GET /metrics", cfg.Metrics.Handler())
	h.mux.HandleFunc("GET /search/{searchQuery}", h.handleSearch)
	h.mux.HandleFunc("GET /products/{productId}", h.handleProductFull)
	h.mux.HandleFunc("GET /products/{productId}/reviews", h.handleReviews)
	h.mux.HandleFunc("GET /products/{productId}/offers", h.handleOffers)
	h.mux.HandleFunc("GET /products/{productId}/quick", h.handleQuickInfo)
	h.mux.HandleFunc("GET /cache/stats", h.handleCacheStats)
	h.mux.HandleFunc("DELETE /cache", h.handleCacheClear)
	h.mux.HandleFunc("/", h.handleNotFound)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = NewRequestID()
	}
	w.Header().Set(RequestIDHeader, requestID)

	wrapped := wrapResponse(w)
	start := time.Now()
	h.mux.ServeHTTP(wrapped, r)
	duration := time.Since(start)

	route := r.Pattern
	h.metrics.ObserveRequest(routeLabel(route), wrapped.status, duration)
	if wrapped.cacheStatus != "" {
		h.metrics.RecordCacheLookup(routeLabel(route), wrapped.cacheStatus)
	}
	obs.LogAccess(obs.RequestContext{
		RequestID:     requestID,
		Method:        r.Method,
		Path:          r.URL.Path,
		Route:         route,
		Status:        wrapped.status,
		Duration:      duration,
		CacheStatus:   wrapped.cacheStatus,
		ErrorCategory: wrapped.errorCategory,
		RemoteAddr:    r.RemoteAddr,
		UserAgent:     r.UserAgent(),
	})
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

func (h *Handler) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Welcome to the Amazon Scraper Gateway API"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "API is healthy",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := NormalizeSearchQuery(r.PathValue("searchQuery"))
	if !ok {
		writeError(w, http.StatusBadRequest, "validation", ErrorBody{Message: "Invalid searchQuery (must be 1-200 chars)."})
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, scrape.ErrNoResults) {
			writeError(w, http.StatusNotFound, "not_found", ErrorBody{Message: "No products found"})
			return
		}
		writeUpstreamError(w, err, "Search failed")
		return
	}
	setCacheStatus(w, result.CacheStatus)
	writeRaw(w, http.StatusOK, result.Body)
}

func (h *Handler) handleProductFull(w http.ResponseWriter, r *http.Request) {
	asin, ok := h.productID(w, r)
	if !ok {
		return
	}
	result, err := h.service.ProductFull(r.Context(), asin)
	if err != nil {
		writeUpstreamError(w, err, fmt.Sprintf("Product not found for ASIN %s", asin))
		return
	}
	setCacheStatus(w, result.CacheStatus)
	writeRaw(w, http.StatusOK, result.Body)
}

func (h *Handler) handleReviews(w http.ResponseWriter, r *http.Request) {
	asin, ok := h.productID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Reviews(r.Context(), asin)
	if err != nil {
		writeUpstreamError(w, err, "Failed to fetch reviews")
		return
	}
	setCacheStatus(w, result.CacheStatus)
	writeRaw(w, http.StatusOK, result.Body)
}

func (h *Handler) handleOffers(w http.ResponseWriter, r *http.Request) {
	asin, ok := h.productID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Offers(r.Context(), asin)
	if err != nil {
		writeUpstreamError(w, err, "Failed to fetch offers")
		return
	}
	setCacheStatus(w, result.CacheStatus)
	writeRaw(w, http.StatusOK, result.Body)
}

func (h *Handler) handleQuickInfo(w http.ResponseWriter, r *http.Request) {
	asin, ok := h.productID(w, r)
	if !ok {
		return
	}
	result, err := h.service.QuickInfo(r.Context(), asin)
	if err != nil {
		writeUpstreamError(w, err, fmt.Sprintf("Product not found for ASIN %s", asin))
		return
	}
	setCacheStatus(w, result.CacheStatus)
	writeRaw(w, http.StatusOK, result.Body)
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Cache statistics",
		"data":    h.cache.Stats(),
	})
}

func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	asin := r.URL.Query().Get("asin")

	cleared := h.service.ClearCache(typ, asin)
	if cleared == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"message": "No matching cache keys to clear", "cleared": 0})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Cache cleared", "cleared": cleared})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if recorder, ok := w.(statusRecorder); ok {
		recorder.SetErrorCategory("not_found")
	}
	writeJSON(w, http.StatusNotFound, map[string]any{
		"message":         fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path),
		"availableRoutes": availableRoutes,
	})
}

// productID validates and normalizes the path ASIN, rejecting before any
// cache or network access.
func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	asin, ok := NormalizeASIN(r.PathValue("productId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "validation", ErrorBody{Message: "Invalid productId (must be 10 alphanumeric chars)."})
		return "", false
	}
	return asin, true
}
