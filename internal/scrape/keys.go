package scrape

// Cache key scheme. Keys are opaque strings; the admin bulk-delete filters on
// the variant suffix and the "search:" prefix.
const (
	searchKeyPrefix  = "search:"
	productKeyPrefix = "product:"

	VariantFull    = "full"
	VariantDetails = "details"
	VariantReviews = "reviews"
	VariantOffers  = "offers"
	VariantQuick   = "quick"
	VariantBasic   = "basic"
)

func searchKey(query string) string {
	return searchKeyPrefix + query
}

func productKey(asin string, variant string) string {
	return productKeyPrefix + asin + ":" + variant
}
