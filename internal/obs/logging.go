package obs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type RequestContext struct {
	RequestID     string
	Method        string
	Path          string
	Route         string
	Status        int
	Duration      time.Duration
	CacheStatus   string
	ErrorCategory string
	RemoteAddr    string
	UserAgent     string
}

type AccessLogEntry struct {
	Timestamp     string `json:"ts"`
	RequestID     string `json:"request_id"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	Route         string `json:"route"`
	Status        int    `json:"status"`
	DurationMS    int64  `json:"duration_ms"`
	CacheStatus   string `json:"cache_status"`
	ErrorCategory string `json:"error_category"`
	RemoteAddr    string `json:"remote_addr,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
}

var (
	accessLogMu  sync.RWMutex
	accessLogOut io.Writer = os.Stdout
)

// SetAccessLogOutput redirects access log lines, for tests.
func SetAccessLogOutput(w io.Writer) {
	accessLogMu.Lock()
	if w == nil {
		w = os.Stdout
	}
	accessLogOut = w
	accessLogMu.Unlock()
}

func LogAccess(ctx RequestContext) {
	entry := AccessLogEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:     defaultString(ctx.RequestID, "none"),
		Method:        ctx.Method,
		Path:          ctx.Path,
		Route:         defaultString(ctx.Route, "unmatched"),
		Status:        ctx.Status,
		DurationMS:    ctx.Duration.Milliseconds(),
		CacheStatus:   defaultString(ctx.CacheStatus, "bypass"),
		ErrorCategory: defaultString(ctx.ErrorCategory, "none"),
		RemoteAddr:    ctx.RemoteAddr,
		UserAgent:     ctx.UserAgent,
	}

	accessLogMu.RLock()
	out := accessLogOut
	accessLogMu.RUnlock()

	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = fmt.Fprintf(out, "log_marshal_error request_id=%s error=%v\n", entry.RequestID, err)
		return
	}
	_, _ = out.Write(append(data, '\n'))
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
