package scrape

import (
	"context"
	"encoding/json"
)

type searchDocument struct {
	Results []json.RawMessage `json:"results"`
}

type searchItem struct {
	ASIN  string          `json:"asin"`
	Name  json.RawMessage `json:"name"`
	Price json.RawMessage `json:"price"`
	Stars json.RawMessage `json:"stars"`
	Image json.RawMessage `json:"image"`
}

// basicCard is the lightweight projection written as a side effect of search
// and read back by quick info.
type basicCard struct {
	ASIN      string          `json:"asin"`
	Title     json.RawMessage `json:"title"`
	Price     json.RawMessage `json:"price"`
	Rating    json.RawMessage `json:"rating"`
	Thumbnail json.RawMessage `json:"thumbnail"`
}

type searchResponse struct {
	SearchQuery string            `json:"searchQuery"`
	Results     []json.RawMessage `json:"results"`
}

// Search resolves a product listing for the trimmed query. The full vendor
// document is cached under the search key; each result with an ASIN
// additionally gets a basic card cached so quick info can skip its details
// fetch. An empty result list maps to ErrNoResults and is not cached.
func (s *Service) Search(ctx context.Context, query string) (Result, error) {
	key := searchKey(query)
	shapeHit := func(raw json.RawMessage) (json.RawMessage, error) {
		var doc searchDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return json.Marshal(searchResponse{SearchQuery: query, Results: doc.Results})
	}
	return s.lookup(ctx, key, shapeHit, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetchSearch(ctx, query, key)
	})
}

func (s *Service) fetchSearch(ctx context.Context, query string, key string) (json.RawMessage, error) {
	raw, err := s.Resolver.Fetch(ctx, "/s?k="+query)
	if err != nil {
		return nil, err
	}

	var doc searchDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Results) == 0 {
		return nil, ErrNoResults
	}

	s.Cache.Set(key, raw, s.ttl())
	for _, result := range doc.Results {
		var item searchItem
		if err := json.Unmarshal(result, &item); err != nil || item.ASIN == "" {
			continue
		}
		card, err := json.Marshal(basicCard{
			ASIN:      item.ASIN,
			Title:     item.Name,
			Price:     item.Price,
			Rating:    item.Stars,
			Thumbnail: item.Image,
		})
		if err != nil {
			continue
		}
		s.Cache.Set(productKey(item.ASIN, VariantBasic), card, s.ttl())
	}

	return json.Marshal(searchResponse{SearchQuery: query, Results: doc.Results})
}
