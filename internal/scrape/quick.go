package scrape

import (
	"context"
	"encoding/json"
)

type detailsDocument struct {
	Name   json.RawMessage `json:"name"`
	Title  json.RawMessage `json:"title"`
	Rating json.RawMessage `json:"rating"`
	Price  json.RawMessage `json:"price"`
}

type reviewsDocument struct {
	ReviewsCount      json.RawMessage `json:"reviews_count"`
	TopPositiveReview json.RawMessage `json:"top_positive_review"`
	TopCriticalReview json.RawMessage `json:"top_critical_review"`
}

// Nil RawMessage fields marshal as null, which is the wanted shape for
// absent vendor fields.
type quickInfo struct {
	ProductID         string          `json:"productId"`
	Title             json.RawMessage `json:"title"`
	Rating            json.RawMessage `json:"rating"`
	Price             json.RawMessage `json:"price"`
	ReviewsCount      json.RawMessage `json:"reviewsCount"`
	TopPositiveReview json.RawMessage `json:"topPositiveReview"`
	TopCriticalReview json.RawMessage `json:"topCriticalReview"`
}

// QuickInfo serves the lightweight composite. A basic card left behind by a
// search covers the details fields, in which case only reviews are fetched;
// otherwise details come from the resolver and not-found is terminal.
// Reviews failures always degrade to defaults.
func (s *Service) QuickInfo(ctx context.Context, asin string) (Result, error) {
	key := productKey(asin, VariantQuick)
	return s.lookup(ctx, key, identity, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchQuick(ctx, asin, key)
	})
}

func (s *Service) fetchQuick(ctx context.Context, asin string, key string) (json.RawMessage, error) {
	info := quickInfo{ProductID: asin, ReviewsCount: json.RawMessage("0")}

	haveDetails := false
	if raw, ok := s.Cache.Get(productKey(asin, VariantBasic)); ok {
		var card basicCard
		if err := json.Unmarshal(raw, &card); err == nil {
			info.Title = card.Title
			info.Rating = card.Rating
			info.Price = card.Price
			haveDetails = true
		}
	}
	if !haveDetails {
		raw, err := s.Resolver.Resolve(ctx, "/dp/"+asin)
		if err != nil {
			return nil, err
		}
		var details detailsDocument
		if err := json.Unmarshal(raw, &details); err != nil {
			return nil, err
		}
		info.Title = details.Name
		if info.Title == nil {
			info.Title = details.Title
		}
		info.Rating = details.Rating
		info.Price = details.Price
	}

	if raw, err := s.Resolver.Resolve(ctx, "/product-reviews/"+asin); err == nil {
		var reviews reviewsDocument
		if err := json.Unmarshal(raw, &reviews); err == nil {
			if reviews.ReviewsCount != nil {
				info.ReviewsCount = reviews.ReviewsCount
			}
			info.TopPositiveReview = reviews.TopPositiveReview
			info.TopCriticalReview = reviews.TopCriticalReview
		}
	}

	body, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(key, body, s.ttl())
	return body, nil
}
