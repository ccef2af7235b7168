// Package resolver is the aggregation core of the service. It resolves
// users, friend lists, owned-game lists and app metadata through the cache,
// calling the upstream Steam APIs only on miss or forced bypass, and owns
// every cache-read, cache-write and cache-bypass decision.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aheadley/steam-omakase/internal/cache"
	"github.com/aheadley/steam-omakase/internal/config"
	"github.com/aheadley/steam-omakase/internal/domain"
	"github.com/aheadley/steam-omakase/internal/metrics"
)

// DirectoryClient is the upstream user/friends/games API consumed by the
// resolver. One entity per call.
type DirectoryClient interface {
	GetUser(ctx context.Context, id domain.SteamID) (*domain.User, error)
	GetUserByVanity(ctx context.Context, token string) (*domain.User, error)
	GetFriendIDs(ctx context.Context, id domain.SteamID) ([]domain.SteamID, error)
	GetOwnedGameIDs(ctx context.Context, id domain.SteamID) ([]domain.AppID, error)
}

// CatalogClient is the upstream per-app metadata API
type CatalogClient interface {
	GetAppDetails(ctx context.Context, id domain.AppID) (*domain.AppSummary, error)
}

// Resolver aggregates Steam data through the cache
type Resolver struct {
	cfg       config.ResolverConfig
	store     cache.Store
	directory DirectoryClient
	catalog   CatalogClient
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a resolver. metrics may be nil.
func New(cfg *config.ResolverConfig, store cache.Store, directory DirectoryClient, catalog CatalogClient, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	r := &Resolver{
		cfg:       *cfg,
		store:     store,
		directory: directory,
		catalog:   catalog,
		logger:    logger,
		metrics:   m,
	}
	// Guard the fan-out against a zeroed config.
	if r.cfg.ChunkSize <= 0 {
		r.cfg.ChunkSize = 20
	}
	if r.cfg.FetchConcurrency <= 0 {
		r.cfg.FetchConcurrency = 2
	}
	if r.cfg.AppTimeout <= 0 {
		r.cfg.AppTimeout = 5 * time.Second
	}
	return r
}

// FetchUser resolves a single user record, consulting the cache first unless
// useCache is false. Every upstream failure, including a user that does not
// exist, folds into domain.ErrUserNotFound; the caller cannot distinguish a
// network failure from nonexistence.
func (r *Resolver) FetchUser(ctx context.Context, id domain.SteamID, useCache bool) (*domain.User, error) {
	key := cache.Key(cache.NamespaceUser, uint64(id))

	if useCache {
		if user := r.cachedUser(ctx, key); user != nil {
			return user, nil
		}
	}

	user, err := r.directory.GetUser(ctx, id)
	if err != nil {
		r.metrics.UpstreamRequest("directory", metrics.OutcomeError)
		r.logger.Warn("user fetch failed", "steam_id", id, "error", err)
		return nil, domain.ErrUserNotFound
	}
	r.metrics.UpstreamRequest("directory", metrics.OutcomeOK)

	r.cacheSet(ctx, key, user, r.cfg.UserTTL)
	return user, nil
}

// FetchUserByVanity resolves a vanity URL token to a user record. Vanity
// lookups are not cached. A token upstream cannot resolve yields the
// distinguished domain.ErrVanityNotFound.
func (r *Resolver) FetchUserByVanity(ctx context.Context, token string) (*domain.User, error) {
	user, err := r.directory.GetUserByVanity(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrVanityNotFound) {
			r.metrics.UpstreamRequest("directory", metrics.OutcomeNotFound)
			return nil, domain.ErrVanityNotFound
		}
		r.metrics.UpstreamRequest("directory", metrics.OutcomeError)
		r.logger.Warn("vanity resolution failed", "token", token, "error", err)
		return nil, domain.ErrUserNotFound
	}
	r.metrics.UpstreamRequest("directory", metrics.OutcomeOK)
	return user, nil
}

// FetchFriends resolves a user's friends to full user records. A non-public
// user yields an empty list without touching cache or upstream; profile
// privacy is a policy decision, not an upstream fact, so the emptiness is
// never cached. The returned slice is aligned 1:1 with the friend-id list;
// a friend that could not be resolved occupies its slot as nil.
func (r *Resolver) FetchFriends(ctx context.Context, user *domain.User) ([]*domain.User, error) {
	if !user.IsPublic() {
		return nil, nil
	}

	ids := r.friendIDs(ctx, user.ID)
	return r.FetchUsers(ctx, ids), nil
}

// FetchGames resolves a user's owned games to storefront metadata. A
// non-public user yields an empty map without touching cache or upstream.
// Only apps with positive metadata surface; negative-cached and failed
// lookups are omitted.
func (r *Resolver) FetchGames(ctx context.Context, user *domain.User) (map[domain.AppID]*domain.AppSummary, error) {
	if !user.IsPublic() {
		return map[domain.AppID]*domain.AppSummary{}, nil
	}

	ids := r.gameIDs(ctx, user.ID)
	return r.resolveApps(ctx, ids), nil
}

// FetchAppDetails resolves storefront metadata for a single app. A
// NegativeHit returns domain.ErrAppNotFound without a network call.
func (r *Resolver) FetchAppDetails(ctx context.Context, id domain.AppID, useCache bool) (*domain.AppSummary, error) {
	key := cache.Key(cache.NamespaceApp, uint64(id))

	if useCache {
		result, err := r.store.Get(ctx, key)
		if err != nil {
			r.logger.Warn("cache read failed", "key", key, "error", err)
		} else {
			switch result.State {
			case cache.Hit:
				r.metrics.CacheResult(cache.NamespaceApp, metrics.ResultHit)
				if summary := decodeApp(result.Value, r.logger); summary != nil {
					return summary, nil
				}
			case cache.NegativeHit:
				r.metrics.CacheResult(cache.NamespaceApp, metrics.ResultNegative)
				return nil, domain.ErrAppNotFound
			default:
				r.metrics.CacheResult(cache.NamespaceApp, metrics.ResultMiss)
			}
		}
	}

	summary := r.fetchAppUpstream(ctx, id)
	if summary == nil {
		return nil, domain.ErrAppNotFound
	}
	r.cacheSet(ctx, key, summary, r.cfg.AppTTL)
	return summary, nil
}

// GameIntersection computes the apps owned by user and by every public
// friend, filtered to multiplayer games supporting all requested platforms.
//
// Non-public friends contribute no constraint: the intersection narrows only
// on public friends, so it degrades toward the primary user's own catalog as
// more private friends are included. Result order follows map iteration and
// is not caller-stable.
func (r *Resolver) GameIntersection(ctx context.Context, user *domain.User, friends []*domain.User, platforms []domain.Platform) ([]*domain.AppSummary, error) {
	friends = dedupeFriends(friends)
	platforms = dedupePlatforms(platforms)

	owned := make(map[domain.AppID]bool)
	if user.IsPublic() {
		for _, id := range r.gameIDs(ctx, user.ID) {
			owned[id] = true
		}
	}

	for _, friend := range friends {
		if friend == nil || !friend.IsPublic() {
			continue
		}
		theirs := make(map[domain.AppID]bool)
		for _, id := range r.gameIDs(ctx, friend.ID) {
			theirs[id] = true
		}
		for id := range owned {
			if !theirs[id] {
				delete(owned, id)
			}
		}
	}

	shared := make([]domain.AppID, 0, len(owned))
	for id := range owned {
		shared = append(shared, id)
	}

	apps := r.resolveApps(ctx, shared)

	games := make([]*domain.AppSummary, 0, len(apps))
	for _, app := range apps {
		if app.IsMultiplayerGame() && app.SupportsAll(platforms) {
			games = append(games, app)
		}
	}
	return games, nil
}

// friendIDs resolves the friend-id list through its dedicated cache key.
// A list fetch failure is swallowed into an empty list.
func (r *Resolver) friendIDs(ctx context.Context, id domain.SteamID) []domain.SteamID {
	key := cache.Key(cache.NamespaceUserFriends, uint64(id))
	var cached []domain.SteamID
	if r.cachedList(ctx, key, cache.NamespaceUserFriends, &cached) {
		return cached
	}

	ids, err := r.directory.GetFriendIDs(ctx, id)
	if err != nil {
		r.metrics.UpstreamRequest("directory", metrics.OutcomeError)
		r.logger.Warn("friend list fetch failed", "steam_id", id, "error", err)
		return nil
	}
	r.metrics.UpstreamRequest("directory", metrics.OutcomeOK)

	r.cacheSet(ctx, key, ids, r.cfg.FriendsTTL)
	return ids
}

// gameIDs resolves the owned-game-id list through its dedicated cache key.
// A list fetch failure is swallowed into an empty list.
func (r *Resolver) gameIDs(ctx context.Context, id domain.SteamID) []domain.AppID {
	key := cache.Key(cache.NamespaceUserGames, uint64(id))
	var cached []domain.AppID
	if r.cachedList(ctx, key, cache.NamespaceUserGames, &cached) {
		return cached
	}

	ids, err := r.directory.GetOwnedGameIDs(ctx, id)
	if err != nil {
		r.metrics.UpstreamRequest("directory", metrics.OutcomeError)
		r.logger.Warn("owned games fetch failed", "steam_id", id, "error", err)
		return nil
	}
	r.metrics.UpstreamRequest("directory", metrics.OutcomeOK)

	r.cacheSet(ctx, key, ids, r.cfg.GamesTTL)
	return ids
}

// cachedUser reads and decodes a user record from the cache. The user
// namespace carries no negative entries; a NegativeHit is treated as a miss.
func (r *Resolver) cachedUser(ctx context.Context, key string) *domain.User {
	result, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", key, "error", err)
		return nil
	}
	if result.State != cache.Hit {
		r.metrics.CacheResult(cache.NamespaceUser, metrics.ResultMiss)
		return nil
	}
	r.metrics.CacheResult(cache.NamespaceUser, metrics.ResultHit)

	var user domain.User
	if err := json.Unmarshal(result.Value, &user); err != nil {
		r.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil
	}
	return &user
}

// cachedList reads a cached id list and decodes it into out
func (r *Resolver) cachedList(ctx context.Context, key, namespace string, out any) bool {
	result, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if result.State != cache.Hit {
		r.metrics.CacheResult(namespace, metrics.ResultMiss)
		return false
	}
	r.metrics.CacheResult(namespace, metrics.ResultHit)

	if err := json.Unmarshal(result.Value, out); err != nil {
		r.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

// cacheSet marshals and writes a value, swallowing cache failures
func (r *Resolver) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Error("marshaling cache value", "key", key, "error", err)
		return
	}
	if err := r.store.Set(ctx, key, data, ttl); err != nil {
		r.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func decodeApp(data []byte, logger *slog.Logger) *domain.AppSummary {
	var summary domain.AppSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		logger.Warn("discarding undecodable app cache entry", "error", err)
		return nil
	}
	return &summary
}

func dedupeFriends(friends []*domain.User) []*domain.User {
	seen := make(map[domain.SteamID]bool, len(friends))
	deduped := make([]*domain.User, 0, len(friends))
	for _, f := range friends {
		if f == nil || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		deduped = append(deduped, f)
	}
	return deduped
}

func dedupePlatforms(platforms []domain.Platform) []domain.Platform {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	return domain.ParsePlatforms(names)
}
