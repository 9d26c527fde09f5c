package scrape

import "strings"

// ClearCache bulk-deletes keys matching the optional type and ASIN filters.
// typ filters on the variant suffix ("all" matches everything, "search" also
// matches the search prefix); asin keeps only keys of that product. Returns
// the number of keys actually removed.
func (s *Service) ClearCache(typ string, asin string) int {
	var needle string
	if asin != "" {
		needle = productKeyPrefix + strings.ToUpper(asin)
	}

	var doomed []string
	for _, key := range s.Cache.Keys() {
		if needle != "" && !strings.Contains(key, needle) {
			continue
		}
		if typ == "" || matchType(key, typ) {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return 0
	}
	return s.Cache.Delete(doomed...)
}

func matchType(key string, typ string) bool {
	if typ == "all" {
		return true
	}
	if strings.HasSuffix(key, ":"+typ) {
		return true
	}
	return typ == "search" && strings.HasPrefix(key, searchKeyPrefix)
}
