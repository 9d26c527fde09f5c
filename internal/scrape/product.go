package scrape

import (
	"context"
	"encoding/json"
	"sync"

	"scraper_gateway/internal/upstream"
)

type fullProduct struct {
	Details json.RawMessage `json:"details"`
	Reviews json.RawMessage `json:"reviews"`
	Offers  json.RawMessage `json:"offers"`
}

// ProductFull composes details, reviews and offers for one ASIN. The three
// sub-fetches run concurrently; a details failure is fatal to the request
// while reviews and offers degrade to empty placeholders. The composite and
// each sub-document are cached independently so later single-facet lookups
// hit cache directly.
func (s *Service) ProductFull(ctx context.Context, asin string) (Result, error) {
	key := productKey(asin, VariantFull)
	return s.lookup(ctx, key, identity, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchFull(ctx, asin, key)
	})
}

func (s *Service) fetchFull(ctx context.Context, asin string, key string) (json.RawMessage, error) {
	var (
		details    json.RawMessage
		detailsErr error
		reviews    json.RawMessage
		offers     json.RawMessage
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		details, detailsErr = s.Resolver.Resolve(ctx, "/dp/"+asin)
	}()
	go func() {
		defer wg.Done()
		doc, err := s.Resolver.Resolve(ctx, "/product-reviews/"+asin)
		if err != nil {
			doc = emptyReviews
		}
		reviews = doc
	}()
	go func() {
		defer wg.Done()
		doc, err := s.Resolver.Resolve(ctx, "/gp/offer-listing/"+asin)
		if err != nil {
			doc = emptyOffers
		}
		offers = doc
	}()
	wg.Wait()

	if detailsErr != nil {
		return nil, detailsErr
	}

	body, err := json.Marshal(fullProduct{Details: details, Reviews: reviews, Offers: offers})
	if err != nil {
		return nil, err
	}
	s.Cache.Set(key, body, s.ttl())
	s.Cache.Set(productKey(asin, VariantDetails), details, s.ttl())
	s.Cache.Set(productKey(asin, VariantReviews), reviews, s.ttl())
	s.Cache.Set(productKey(asin, VariantOffers), offers, s.ttl())
	return body, nil
}

// Reviews fetches the reviews document alone. Not-found is a normal product
// state here, so it degrades to an empty placeholder cached with a shorter
// TTL and no error.
func (s *Service) Reviews(ctx context.Context, asin string) (Result, error) {
	key := productKey(asin, VariantReviews)
	return s.lookup(ctx, key, identity, func(ctx context.Context) (json.RawMessage, error) {
		doc, err := s.Resolver.Resolve(ctx, "/product-reviews/"+asin)
		if err != nil {
			if upstream.IsNotFound(err) {
				s.Cache.Set(key, emptyReviews, s.emptyReviewsTTL())
				return emptyReviews, nil
			}
			return nil, err
		}
		s.Cache.Set(key, doc, s.ttl())
		return doc, nil
	})
}

// Offers mirrors Reviews with the offers placeholder.
func (s *Service) Offers(ctx context.Context, asin string) (Result, error) {
	key := productKey(asin, VariantOffers)
	return s.lookup(ctx, key, identity, func(ctx context.Context) (json.RawMessage, error) {
		doc, err := s.Resolver.Resolve(ctx, "/gp/offer-listing/"+asin)
		if err != nil {
			if upstream.IsNotFound(err) {
				s.Cache.Set(key, emptyOffers, s.emptyOffersTTL())
				return emptyOffers, nil
			}
			return nil, err
		}
		s.Cache.Set(key, doc, s.ttl())
		return doc, nil
	})
}
