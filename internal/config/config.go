package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr      = "127.0.0.1:8080"
	defaultAPIBase         = "http://api.scraperapi.com"
	defaultRegions         = ".com,.ca,.co.uk"
	defaultUpstreamTimeout = 20 * time.Second
	defaultCacheTTL        = 12 * time.Hour
	defaultEmptyReviewsTTL = time.Hour
	defaultEmptyOffersTTL  = 30 * time.Minute
	defaultSweepInterval   = 10 * time.Minute
)

type Config struct {
	ListenAddr string
	APIBase    string
	APIKey     string
	Regions    []string

	UpstreamTimeout time.Duration
	CacheTTL        time.Duration
	EmptyReviewsTTL time.Duration
	EmptyOffersTTL  time.Duration
	SweepInterval   time.Duration
}

// FromEnv reads the full configuration from the environment. Config is
// immutable after startup; there is no reload path.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:      envOr("LISTEN_ADDR", defaultListenAddr),
		APIBase:         envOr("SCRAPER_API_BASE", defaultAPIBase),
		APIKey:          os.Getenv("SCRAPER_API_KEY"),
		Regions:         splitRegions(envOr("MARKETPLACE_REGIONS", defaultRegions)),
		UpstreamTimeout: parseDurationMS(os.Getenv("UPSTREAM_TIMEOUT_MS"), defaultUpstreamTimeout),
		CacheTTL:        parseDurationMS(os.Getenv("CACHE_TTL_MS"), defaultCacheTTL),
		EmptyReviewsTTL: parseDurationMS(os.Getenv("CACHE_EMPTY_REVIEWS_TTL_MS"), defaultEmptyReviewsTTL),
		EmptyOffersTTL:  parseDurationMS(os.Getenv("CACHE_EMPTY_OFFERS_TTL_MS"), defaultEmptyOffersTTL),
		SweepInterval:   parseDurationMS(os.Getenv("CACHE_SWEEP_INTERVAL_MS"), defaultSweepInterval),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("SCRAPER_API_KEY is required")
	}
	if c.APIBase == "" {
		return errors.New("scraper api base must not be empty")
	}
	if len(c.Regions) == 0 {
		return errors.New("marketplace region list must not be empty")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.EmptyReviewsTTL <= 0 {
		return fmt.Errorf("empty reviews ttl must be positive")
	}
	if c.EmptyOffersTTL <= 0 {
		return fmt.Errorf("empty offers ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	return nil
}

func envOr(name string, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func splitRegions(raw string) []string {
	var regions []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		regions = append(regions, part)
	}
	return regions
}

func parseDurationMS(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
