package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"scraper_gateway/internal/cache"
	"scraper_gateway/internal/upstream"
)

// ErrNoResults reports a search that came back with an empty result list.
// Not cached, so a later retry can observe a restocked catalog.
var ErrNoResults = errors.New("no products found")

const (
	DefaultTTL             = 12 * time.Hour
	DefaultEmptyReviewsTTL = time.Hour
	DefaultEmptyOffersTTL  = 30 * time.Minute

	coalesceWaitSlack = 5 * time.Second
)

const (
	CacheHit       = "hit"
	CacheMiss      = "miss"
	CacheCoalesced = "coalesced"
)

var (
	emptyReviews = json.RawMessage(`{"reviews_count":0}`)
	emptyOffers  = json.RawMessage(`{"offers":[]}`)
)

// Result is a shaped response body plus how the cache was involved in
// producing it.
type Result struct {
	Body        json.RawMessage
	CacheStatus string
}

// Service runs the per-entity lookups: cache check, coalesced upstream
// fan-out on miss, write-through of derived sub-documents, response shaping.
type Service struct {
	Cache     *cache.Store
	Coalescer *cache.Coalescer
	Resolver  *upstream.Resolver

	TTL             time.Duration
	EmptyReviewsTTL time.Duration
	EmptyOffersTTL  time.Duration
	UpstreamTimeout time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

func (s *Service) emptyReviewsTTL() time.Duration {
	if s.EmptyReviewsTTL > 0 {
		return s.EmptyReviewsTTL
	}
	return DefaultEmptyReviewsTTL
}

func (s *Service) emptyOffersTTL() time.Duration {
	if s.EmptyOffersTTL > 0 {
		return s.EmptyOffersTTL
	}
	return DefaultEmptyOffersTTL
}

func (s *Service) coalesceWait() time.Duration {
	timeout := s.UpstreamTimeout
	if timeout <= 0 {
		timeout = upstream.DefaultTimeout
	}
	return timeout + coalesceWaitSlack
}

// lookup is the shared orchestrator shape: cache hit returns the cached
// document (re-shaped where the cached form differs from the response form),
// a miss runs fetch under the coalescer so concurrent misses on one key share
// a single flight.
func (s *Service) lookup(ctx context.Context, key string, shapeHit func(json.RawMessage) (json.RawMessage, error), fetch func(context.Context) (json.RawMessage, error)) (Result, error) {
	if raw, ok := s.Cache.Get(key); ok {
		if body, err := shapeHit(raw); err == nil {
			return Result{Body: body, CacheStatus: CacheHit}, nil
		}
		// malformed cached document, refetch
	}

	flight, leader, ok := s.Coalescer.Start(key)
	if !ok {
		body, err := fetch(ctx)
		return Result{Body: body, CacheStatus: CacheMiss}, err
	}
	if leader {
		body, err := fetch(ctx)
		s.Coalescer.Finish(key, flight, body, err)
		return Result{Body: body, CacheStatus: CacheMiss}, err
	}
	if body, err, joined := s.Coalescer.Wait(flight, s.coalesceWait()); joined {
		return Result{Body: body, CacheStatus: CacheCoalesced}, err
	}
	body, err := fetch(ctx)
	return Result{Body: body, CacheStatus: CacheMiss}, err
}

func identity(raw json.RawMessage) (json.RawMessage, error) {
	return raw, nil
}
