package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"maintenance-app/internal/repository"
	"maintenance-app/internal/utils"
)

// CacheRefresher re-warms the shared request list cache on a ticker so the
// first read after an invalidation rarely hits mongo cold.
type CacheRefresher struct {
	repo  repository.RequestRepository
	cache Cache
}

func NewCacheRefresher(repo repository.RequestRepository, cache Cache) *CacheRefresher {
	return &CacheRefresher{repo: repo, cache: cache}
}

func (cr *CacheRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for {
			select {
			case <-ticker.C:
				cr.refresh(ctx)
			case <-ctx.Done():
				log.Println("[CACHE] Stopping cache refresher...")
				ticker.Stop()
				return
			}
		}
	}()
}

func (cr *CacheRefresher) refresh(ctx context.Context) {
	requests, err := cr.repo.ListAll(ctx)
	if err != nil {
		log.Printf("[CACHE] Failed to refresh request cache: %v", err)
		return
	}
	data, err := json.Marshal(requests)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal requests: %v", err)
		return
	}
	cr.cache.Set(ctx, cacheKeyAllRequests, string(data), utils.CacheTTL)
}
