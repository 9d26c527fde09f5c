package upstream

import (
	"context"
	"encoding/json"
	"time"

	"scraper_gateway/internal/obs"
)

// DefaultRegions is the ordered marketplace domain list. A not-found on one
// region may be a regional catalog gap, so the next region is tried; any
// other failure aborts immediately.
var DefaultRegions = []string{".com", ".ca", ".co.uk"}

type Resolver struct {
	Client  *Client
	Regions []string
	Metrics *obs.Metrics
}

func NewResolver(client *Client, regions []string, metrics *obs.Metrics) *Resolver {
	if len(regions) == 0 {
		regions = DefaultRegions
	}
	return &Resolver{Client: client, Regions: regions, Metrics: metrics}
}

// Resolve tries each path across the ordered regions. Exhausting all regions
// without success returns the last error.
func (r *Resolver) Resolve(ctx context.Context, paths ...string) (json.RawMessage, error) {
	var lastErr error
	for _, path := range paths {
		for _, tld := range r.Regions {
			doc, err := r.fetch(ctx, tld, path)
			if err == nil {
				return doc, nil
			}
			lastErr = err
			if !IsNotFound(err) {
				return nil, err
			}
		}
	}
	if lastErr == nil {
		lastErr = &Error{Kind: KindUnknown}
	}
	return nil, lastErr
}

// Fetch issues a single-region vendor request against the primary region.
// Used for lookups that never fall back, like search.
func (r *Resolver) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	return r.fetch(ctx, r.Regions[0], path)
}

func (r *Resolver) fetch(ctx context.Context, tld string, path string) (json.RawMessage, error) {
	requestURL := r.Client.ScrapeURL(tld, path)
	start := time.Now()
	doc, err := r.Client.FetchJSON(ctx, requestURL)
	r.Metrics.ObserveUpstreamRoundTrip(tld, time.Since(start))
	if err != nil {
		r.Metrics.RecordUpstreamError(tld, ErrorKind(err).Category())
		return nil, err
	}
	return doc, nil
}
