package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aheadley/steam-omakase/internal/cache"
	"github.com/aheadley/steam-omakase/internal/domain"
	"github.com/aheadley/steam-omakase/internal/metrics"
)

// FetchUsers hydrates a list of user ids into full records. One GetMany
// covers every id; each miss forces a single cache-bypassed upstream fetch
// that performs its own cache write. The result is aligned 1:1 with ids in
// original order; an id that could not be resolved keeps its slot as nil.
// N potential upstream calls become exactly count-of-misses calls.
func (r *Resolver) FetchUsers(ctx context.Context, ids []domain.SteamID) []*domain.User {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.Key(cache.NamespaceUser, uint64(id))
	}

	results, err := r.store.GetMany(ctx, keys)
	if err != nil {
		r.logger.Warn("batch cache read failed", "keys", len(keys), "error", err)
		results = make([]cache.Result, len(keys))
	}

	users := make([]*domain.User, len(ids))
	for i, result := range results {
		// No negative caching in the user namespace; anything but a
		// real hit goes upstream.
		if result.State == cache.Hit {
			var user domain.User
			if err := json.Unmarshal(result.Value, &user); err == nil {
				r.metrics.CacheResult(cache.NamespaceUser, metrics.ResultHit)
				users[i] = &user
				continue
			}
			r.logger.Warn("discarding undecodable cache entry", "key", keys[i])
		}
		r.metrics.CacheResult(cache.NamespaceUser, metrics.ResultMiss)

		user, err := r.FetchUser(ctx, ids[i], false)
		if err != nil {
			continue
		}
		users[i] = user
	}
	return users
}

// resolveApps hydrates a list of app ids into storefront metadata. One
// GetMany covers every id; negative hits short-circuit without a network
// call; misses fan out to the catalog in fixed-size chunks drained by a
// bounded pool of workers. Only positive entries appear in the result.
func (r *Resolver) resolveApps(ctx context.Context, ids []domain.AppID) map[domain.AppID]*domain.AppSummary {
	apps := make(map[domain.AppID]*domain.AppSummary, len(ids))
	if len(ids) == 0 {
		return apps
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.Key(cache.NamespaceApp, uint64(id))
	}

	results, err := r.store.GetMany(ctx, keys)
	if err != nil {
		r.logger.Warn("batch cache read failed", "keys", len(keys), "error", err)
		results = make([]cache.Result, len(keys))
	}

	var misses []domain.AppID
	var mu sync.Mutex
	for i, result := range results {
		switch result.State {
		case cache.Hit:
			r.metrics.CacheResult(cache.NamespaceApp, metrics.ResultHit)
			if summary := decodeApp(result.Value, r.logger); summary != nil {
				apps[ids[i]] = summary
			}
		case cache.NegativeHit:
			// Confirmed absent upstream; skip until the entry expires.
			r.metrics.CacheResult(cache.NamespaceApp, metrics.ResultNegative)
		default:
			r.metrics.CacheResult(cache.NamespaceApp, metrics.ResultMiss)
			misses = append(misses, ids[i])
		}
	}

	if len(misses) == 0 {
		return apps
	}

	chunks := make(chan []domain.AppID)
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.FetchConcurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				found := make(map[domain.AppID]*domain.AppSummary, len(chunk))
				items := make([]cache.Item, 0, len(chunk))
				for _, id := range chunk {
					summary := r.fetchAppUpstream(ctx, id)
					if summary == nil {
						continue
					}
					found[id] = summary
					data, err := json.Marshal(summary)
					if err != nil {
						r.logger.Error("marshaling cache value", "app_id", id, "error", err)
						continue
					}
					items = append(items, cache.Item{
						Key:   cache.Key(cache.NamespaceApp, uint64(id)),
						Value: data,
					})
				}
				// One pipelined write per chunk.
				if len(items) > 0 {
					if err := r.store.SetMany(ctx, items, r.cfg.AppTTL); err != nil {
						r.logger.Warn("batch cache write failed", "keys", len(items), "error", err)
					}
				}
				mu.Lock()
				for id, summary := range found {
					apps[id] = summary
				}
				mu.Unlock()
			}
		}()
	}

	for start := 0; start < len(misses); start += r.cfg.ChunkSize {
		end := start + r.cfg.ChunkSize
		if end > len(misses) {
			end = len(misses)
		}
		chunks <- misses[start:end]
	}
	close(chunks)
	wg.Wait()

	return apps
}

// fetchAppUpstream performs one bounded-timeout catalog lookup. Any failure
// (including timeout) is negative-cached so it is not retried immediately,
// and nil is returned. The positive cache write is the caller's: single
// lookups write one key, fan-out workers batch a chunk at a time.
func (r *Resolver) fetchAppUpstream(ctx context.Context, id domain.AppID) *domain.AppSummary {
	key := cache.Key(cache.NamespaceApp, uint64(id))

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.AppTimeout)
	defer cancel()

	summary, err := r.catalog.GetAppDetails(fetchCtx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAppNotFound) {
			r.metrics.UpstreamRequest("catalog", metrics.OutcomeNotFound)
		} else {
			r.metrics.UpstreamRequest("catalog", metrics.OutcomeError)
			r.logger.Warn("app details fetch failed", "app_id", id, "error", err)
		}
		if err := r.store.SetNegative(ctx, key, r.cfg.AppNegativeTTL); err != nil {
			r.logger.Warn("negative cache write failed", "key", key, "error", err)
		}
		return nil
	}
	r.metrics.UpstreamRequest("catalog", metrics.OutcomeOK)
	return summary
}
