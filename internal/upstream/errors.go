package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the closed classification of vendor failures. Response shaping
// switches on it exhaustively.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindBlocked
	KindRateLimited
	KindNotFound
)

func (k Kind) Category() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindBlocked:
		return "blocked"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified vendor failure. Status and Snippet are populated for
// HTTP-level failures, cause for transport-level ones.
type Error struct {
	Kind    Kind
	Status  int
	URL     string
	Snippet string
	cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindTimeout:
		return fmt.Sprintf("upstream timeout on %s", e.URL)
	case e.Status != 0:
		return fmt.Sprintf("HTTP %d on %s :: %s", e.Status, e.URL, e.Snippet)
	case e.cause != nil:
		return fmt.Sprintf("upstream request failed on %s: %v", e.URL, e.cause)
	default:
		return fmt.Sprintf("upstream request failed on %s", e.URL)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

func IsNotFound(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Kind == KindNotFound
}

func ErrorKind(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnknown
}

func classifyStatus(status int) Kind {
	switch status {
	case 403:
		return KindBlocked
	case 429:
		return KindRateLimited
	case 404, 410:
		return KindNotFound
	default:
		return KindUnknown
	}
}

func classifyTransport(err error) Kind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}
