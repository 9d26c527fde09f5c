package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scraper_gateway/internal/api"
	"scraper_gateway/internal/cache"
	"scraper_gateway/internal/config"
	"scraper_gateway/internal/obs"
	"scraper_gateway/internal/scrape"
	"scraper_gateway/internal/server"
	"scraper_gateway/internal/upstream"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	metrics := obs.NewMetrics()
	store := cache.NewStore(cfg.SweepInterval)
	client := upstream.NewClient(cfg.APIBase, cfg.APIKey, cfg.UpstreamTimeout)
	resolver := upstream.NewResolver(client, cfg.Regions, metrics)
	service := &scrape.Service{
		Cache:           store,
		Coalescer:       cache.NewCoalescer(cache.DefaultMaxFlights),
		Resolver:        resolver,
		TTL:             cfg.CacheTTL,
		EmptyReviewsTTL: cfg.EmptyReviewsTTL,
		EmptyOffersTTL:  cfg.EmptyOffersTTL,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}
	handler := api.NewHandler(api.HandlerConfig{
		Service: service,
		Cache:   store,
		Metrics: metrics,
	})

	srv, err := server.Start(handler, cfg.ListenAddr, server.DefaultLimits())
	if err != nil {
		log.Fatalf("start server: %v", err)
	}
	log.Printf("listening on http://%s", srv.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	store.Close()
}
