package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scraper_gateway/internal/cache"
	"scraper_gateway/internal/obs"
	"scraper_gateway/internal/testutil"
	"scraper_gateway/internal/upstream"
)

// vendorScript routes fake vendor responses by marketplace path prefix.
type vendorScript struct {
	details      func(w http.ResponseWriter, r *http.Request)
	reviews      func(w http.ResponseWriter, r *http.Request)
	offers       func(w http.ResponseWriter, r *http.Request)
	search       func(w http.ResponseWriter, r *http.Request)
	detailsCalls atomic.Int32
	reviewsCalls atomic.Int32
	offersCalls  atomic.Int32
	searchCalls  atomic.Int32
}

func respondJSON(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func respondStatus(status int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}
}

func (v *vendorScript) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := testutil.TargetPath(r)
	switch {
	case strings.HasPrefix(path, "/dp/"):
		v.detailsCalls.Add(1)
		v.details(w, r)
	case strings.HasPrefix(path, "/product-reviews/"):
		v.reviewsCalls.Add(1)
		v.reviews(w, r)
	case strings.HasPrefix(path, "/gp/offer-listing/"):
		v.offersCalls.Add(1)
		v.offers(w, r)
	default:
		v.searchCalls.Add(1)
		v.search(w, r)
	}
}

func newTestService(t *testing.T, vendor *vendorScript) *Service {
	t.Helper()
	if vendor.details == nil {
		vendor.details = respondJSON(`{"name":"Widget","rating":4.5,"price":"$10"}`)
	}
	if vendor.reviews == nil {
		vendor.reviews = respondJSON(`{"reviews_count":3,"top_positive_review":"great"}`)
	}
	if vendor.offers == nil {
		vendor.offers = respondJSON(`{"offers":[{"price":"$9"}]}`)
	}
	if vendor.search == nil {
		vendor.search = respondJSON(`{"results":[]}`)
	}

	baseURL, closeVendor := testutil.StartVendor(t, vendor)
	t.Cleanup(closeVendor)

	store := cache.NewStore(time.Hour)
	t.Cleanup(store.Close)

	client := upstream.NewClient(baseURL, "test-key", 2*time.Second)
	return &Service{
		Cache:           store,
		Coalescer:       cache.NewCoalescer(0),
		Resolver:        upstream.NewResolver(client, []string{".com"}, obs.NewMetrics()),
		UpstreamTimeout: 2 * time.Second,
	}
}

func TestProductFullComposesSubDocuments(t *testing.T) {
	vendor := &vendorScript{}
	s := newTestService(t, vendor)

	result, err := s.ProductFull(context.Background(), "B000000000")
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, result.CacheStatus)

	var full struct {
		Details json.RawMessage `json:"details"`
		Reviews json.RawMessage `json:"reviews"`
		Offers  json.RawMessage `json:"offers"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &full))
	assert.JSONEq(t, `{"name":"Widget","rating":4.5,"price":"$10"}`, string(full.Details))
	assert.JSONEq(t, `{"reviews_count":3,"top_positive_review":"great"}`, string(full.Reviews))
	assert.JSONEq(t, `{"offers":[{"price":"$9"}]}`, string(full.Offers))

	for _, variant := range []string{VariantFull, VariantDetails, VariantReviews, VariantOffers} {
		_, ok := s.Cache.Get(productKey("B000000000", variant))
		assert.True(t, ok, "missing %s sub-document", variant)
	}
}

func TestProductFullReviewsFailureDegrades(t *testing.T) {
	vendor := &vendorScript{
		reviews: respondStatus(http.StatusNotFound),
		offers:  respondStatus(http.StatusInternalServerError),
	}
	s := newTestService(t, vendor)

	result, err := s.ProductFull(context.Background(), "B000000000")
	require.NoError(t, err)

	var full struct {
		Reviews json.RawMessage `json:"reviews"`
		Offers  json.RawMessage `json:"offers"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &full))
	assert.JSONEq(t, `{"reviews_count":0}`, string(full.Reviews))
	assert.JSONEq(t, `{"offers":[]}`, string(full.Offers))
}

func TestProductFullDetailsNotFoundIsFatal(t *testing.T) {
	vendor := &vendorScript{details: respondStatus(http.StatusNotFound)}
	s := newTestService(t, vendor)

	_, err := s.ProductFull(context.Background(), "B000000000")
	require.Error(t, err)
	assert.True(t, upstream.IsNotFound(err))

	_, ok := s.Cache.Get(productKey("B000000000", VariantFull))
	assert.False(t, ok)
}

func TestProductFullSecondLookupHitsCache(t *testing.T) {
	vendor := &vendorScript{}
	s := newTestService(t, vendor)

	first, err := s.ProductFull(context.Background(), "B000000000")
	require.NoError(t, err)
	second, err := s.ProductFull(context.Background(), "B000000000")
	require.NoError(t, err)

	assert.Equal(t, CacheHit, second.CacheStatus)
	assert.Equal(t, string(first.Body), string(second.Body))
	assert.Equal(t, int32(1), vendor.detailsCalls.Load())
}

func TestSearchCachesBasicCards(t *testing.T) {
	vendor := &vendorScript{
		search: respondJSON(`{"results":[
			{"asin":"B000000000","name":"Laptop","price":"$999","stars":4.2,"image":"http://img/1"},
			{"name":"no asin, skipped"},
			{"asin":"B000000001","name":"Mouse"}
		]}`),
	}
	s := newTestService(t, vendor)

	result, err := s.Search(context.Background(), "laptop")
	require.NoError(t, err)

	var resp struct {
		SearchQuery string            `json:"searchQuery"`
		Results     []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &resp))
	assert.Equal(t, "laptop", resp.SearchQuery)
	assert.Len(t, resp.Results, 3)

	card, ok := s.Cache.Get(productKey("B000000000", VariantBasic))
	require.True(t, ok)
	assert.JSONEq(t, `{"asin":"B000000000","title":"Laptop","price":"$999","rating":4.2,"thumbnail":"http://img/1"}`, string(card))

	_, ok = s.Cache.Get(productKey("B000000001", VariantBasic))
	assert.True(t, ok)
}

func TestSearchEmptyResultsNotCached(t *testing.T) {
	vendor := &vendorScript{}
	s := newTestService(t, vendor)

	_, err := s.Search(context.Background(), "nothing")
	require.ErrorIs(t, err, ErrNoResults)

	_, ok := s.Cache.Get(searchKey("nothing"))
	assert.False(t, ok)
}

func TestSearchCacheHitReshapes(t *testing.T) {
	vendor := &vendorScript{
		search: respondJSON(`{"results":[{"asin":"B000000000","name":"Laptop"}]}`),
	}
	s := newTestService(t, vendor)

	first, err := s.Search(context.Background(), "laptop")
	require.NoError(t, err)
	second, err := s.Search(context.Background(), "laptop")
	require.NoError(t, err)

	assert.Equal(t, CacheHit, second.CacheStatus)
	assert.JSONEq(t, string(first.Body), string(second.Body))
	assert.Equal(t, int32(1), vendor.searchCalls.Load())
}

func TestReviewsNotFoundDegradesToPlaceholder(t *testing.T) {
	vendor := &vendorScript{reviews: respondStatus(http.StatusNotFound)}
	s := newTestService(t, vendor)

	result, err := s.Reviews(context.Background(), "B000000000")
	require.NoError(t, err)
	assert.JSONEq(t, `{"reviews_count":0}`, string(result.Body))

	cached, ok := s.Cache.Get(productKey("B000000000", VariantReviews))
	require.True(t, ok)
	assert.JSONEq(t, `{"reviews_count":0}`, string(cached))
}

func TestReviewsOtherErrorPropagates(t *testing.T) {
	vendor := &vendorScript{reviews: respondStatus(http.StatusTooManyRequests)}
	s := newTestService(t, vendor)

	_, err := s.Reviews(context.Background(), "B000000000")
	require.Error(t, err)
	assert.Equal(t, upstream.KindRateLimited, upstream.ErrorKind(err))
}

func TestOffersNotFoundDegradesToPlaceholder(t *testing.T) {
	vendor := &vendorScript{offers: respondStatus(http.StatusGone)}
	s := newTestService(t, vendor)

	result, err := s.Offers(context.Background(), "B000000000")
	require.NoError(t, err)
	assert.JSONEq(t, `{"offers":[]}`, string(result.Body))
}

func TestQuickInfoFetchesDetailsAndReviews(t *testing.T) {
	vendor := &vendorScript{}
	s := newTestService(t, vendor)

	result, err := s.QuickInfo(context.Background(), "B000000000")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"productId": "B000000000",
		"title": "Widget",
		"rating": 4.5,
		"price": "$10",
		"reviewsCount": 3,
		"topPositiveReview": "great",
		"topCriticalReview": null
	}`, string(result.Body))
	assert.Equal(t, int32(1), vendor.detailsCalls.Load())
}

func TestQuickInfoPrefersBasicCard(t *testing.T) {
	vendor := &vendorScript{}
	s := newTestService(t, vendor)
	s.Cache.Set(productKey("B000000000", VariantBasic),
		json.RawMessage(`{"asin":"B000000000","title":"Cached Laptop","price":"$5","rating":3}`), time.Minute)

	result, err := s.QuickInfo(context.Background(), "B000000000")
	require.NoError(t, err)

	var info struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &info))
	assert.Equal(t, "Cached Laptop", info.Title)
	assert.Equal(t, int32(0), vendor.detailsCalls.Load(), "details must not be fetched when a basic card exists")
	assert.Equal(t, int32(1), vendor.reviewsCalls.Load())
}

func TestQuickInfoDetailsNotFoundIsFatal(t *testing.T) {
	vendor := &vendorScript{details: respondStatus(http.StatusNotFound)}
	s := newTestService(t, vendor)

	_, err := s.QuickInfo(context.Background(), "B000000000")
	require.Error(t, err)
	assert.True(t, upstream.IsNotFound(err))
}

func TestQuickInfoReviewsFailureDegrades(t *testing.T) {
	vendor := &vendorScript{reviews: respondStatus(http.StatusInternalServerError)}
	s := newTestService(t, vendor)

	result, err := s.QuickInfo(context.Background(), "B000000000")
	require.NoError(t, err)

	var info struct {
		ReviewsCount int `json:"reviewsCount"`
	}
	require.NoError(t, json.Unmarshal(result.Body, &info))
	assert.Equal(t, 0, info.ReviewsCount)
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	release := make(chan struct{})
	vendor := &vendorScript{
		details: func(w http.ResponseWriter, _ *http.Request) {
			<-release
			_, _ = w.Write([]byte(`{"name":"Widget"}`))
		},
	}
	s := newTestService(t, vendor)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.ProductFull(context.Background(), "B000000000")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, string(results[0].Body), string(results[1].Body))
	assert.Equal(t, int32(1), vendor.detailsCalls.Load(), "concurrent misses must share one flight")

	statuses := []string{results[0].CacheStatus, results[1].CacheStatus}
	assert.Contains(t, statuses, CacheMiss)
	assert.Contains(t, statuses, CacheCoalesced)
}

func TestClearCacheByTypeSuffix(t *testing.T) {
	s := newTestService(t, &vendorScript{})
	s.Cache.Set("product:AAAAAAAAAA:reviews", json.RawMessage(`1`), time.Minute)
	s.Cache.Set("product:AAAAAAAAAA:offers", json.RawMessage(`1`), time.Minute)
	s.Cache.Set("product:BBBBBBBBBB:reviews", json.RawMessage(`1`), time.Minute)
	s.Cache.Set("search:laptop", json.RawMessage(`1`), time.Minute)

	cleared := s.ClearCache("reviews", "")
	assert.Equal(t, 2, cleared)

	_, ok := s.Cache.Get("product:AAAAAAAAAA:offers")
	assert.True(t, ok)
	_, ok = s.Cache.Get("search:laptop")
	assert.True(t, ok)
	_, ok = s.Cache.Get("product:AAAAAAAAAA:reviews")
	assert.False(t, ok)
}

func TestClearCacheByASIN(t *testing.T) {
	s := newTestService(t, &vendorScript{})
	s.Cache.Set("product:AAAAAAAAAA:reviews", json.RawMessage(`1`), time.Minute)
	s.Cache.Set("product:BBBBBBBBBB:reviews", json.RawMessage(`1`), time.Minute)

	cleared := s.ClearCache("", "aaaaaaaaaa")
	assert.Equal(t, 1, cleared)
	_, ok := s.Cache.Get("product:BBBBBBBBBB:reviews")
	assert.True(t, ok)
}

func TestClearCacheSearchPrefix(t *testing.T) {
	s := newTestService(t, &vendorScript{})
	s.Cache.Set("search:laptop", json.RawMessage(`1`), time.Minute)
	s.Cache.Set("product:AAAAAAAAAA:full", json.RawMessage(`1`), time.Minute)

	cleared := s.ClearCache("search", "")
	assert.Equal(t, 1, cleared)
	_, ok := s.Cache.Get("product:AAAAAAAAAA:full")
	assert.True(t, ok)
}

func TestClearCacheAll(t *testing.T) {
	s := newTestService(t, &vendorScript{})
	s.Cache.Set("search:laptop", json.RawMessage(`1`), time.Minute)
	s.Cache.Set("product:AAAAAAAAAA:full", json.RawMessage(`1`), time.Minute)

	assert.Equal(t, 2, s.ClearCache("all", ""))
	assert.Equal(t, 0, s.ClearCache("all", ""))
}
