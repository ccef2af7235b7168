package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aheadley/steam-omakase/internal/cache"
	"github.com/aheadley/steam-omakase/internal/domain"
)

// GameResolver is the slice of the resolver the HTTP boundary consumes
type GameResolver interface {
	FetchUser(ctx context.Context, id domain.SteamID, useCache bool) (*domain.User, error)
	FetchUserByVanity(ctx context.Context, token string) (*domain.User, error)
	FetchUsers(ctx context.Context, ids []domain.SteamID) []*domain.User
	FetchFriends(ctx context.Context, user *domain.User) ([]*domain.User, error)
	FetchAppDetails(ctx context.Context, id domain.AppID, useCache bool) (*domain.AppSummary, error)
	GameIntersection(ctx context.Context, user *domain.User, friends []*domain.User, platforms []domain.Platform) ([]*domain.AppSummary, error)
}

// Handler provides HTTP handlers for the omakase API
type Handler struct {
	resolver GameResolver
	store    cache.Store
	logger   *slog.Logger
	debug    bool
}

// NewHandler creates a new HTTP handler. debug enables the cache
// administration routes.
func NewHandler(resolver GameResolver, store cache.Store, logger *slog.Logger, debug bool) *Handler {
	return &Handler{
		resolver: resolver,
		store:    store,
		logger:   logger,
		debug:    debug,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/users/search/{query}", h.SearchUser)
		r.Get("/users/{userID}/friends", h.GetFriends)
		r.Get("/apps/{appID}", h.GetAppDetails)

		r.Route("/games/{userID}/{friendIDs}", func(r chi.Router) {
			r.Get("/", h.GetGameIntersection)
			r.Get("/omakase", h.GetOmakase)
		})
	})

	// Cache administration, debug builds only
	if h.debug {
		r.Route("/debug/cache", func(r chi.Router) {
			r.Post("/flush", h.FlushCache)
			r.Get("/stats", h.GetCacheStats)
			r.Delete("/{namespace}/{id}", h.DeleteCacheKey)
		})
	}

	return r
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status; readiness requires a
// reachable cache backend.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Stats(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrInternalError)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// SearchUser resolves a search query to a user record. An all-digits query
// is treated as a Steam ID, anything else as a vanity URL token.
func (h *Handler) SearchUser(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	var (
		user *domain.User
		err  error
	)
	if id, idErr := domain.ParseSteamID(query); idErr == nil {
		user, err = h.resolver.FetchUser(r.Context(), id, true)
	} else {
		user, err = h.resolver.FetchUserByVanity(r.Context(), query)
	}
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to search user", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, user)
}

// GetFriends returns the public friends of a user
func (h *Handler) GetFriends(w http.ResponseWriter, r *http.Request) {
	user, ok := h.fetchPathUser(w, r)
	if !ok {
		return
	}

	friends, err := h.resolver.FetchFriends(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to fetch friends", "steam_id", user.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	// Only public profiles are shown in the friend picker.
	public := make([]*domain.User, 0, len(friends))
	for _, f := range friends {
		if f != nil && f.IsPublic() {
			public = append(public, f)
		}
	}

	h.writeSuccess(w, map[string]interface{}{
		"user":    user,
		"friends": public,
	})
}

// GetAppDetails returns storefront metadata for one app
func (h *Handler) GetAppDetails(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSteamID(chi.URLParam(r, "appID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	app, err := h.resolver.FetchAppDetails(r.Context(), domain.AppID(id), true)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to fetch app details", "app_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, app)
}

// GetGameIntersection returns the shared multiplayer games of a user and the
// selected friends, filtered to the requested platforms.
func (h *Handler) GetGameIntersection(w http.ResponseWriter, r *http.Request) {
	user, friends, platforms, ok := h.intersectionRequest(w, r)
	if !ok {
		return
	}

	games, err := h.resolver.GameIntersection(r.Context(), user, friends, platforms)
	if err != nil {
		h.logger.Error("failed to compute intersection", "steam_id", user.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })

	h.writeSuccess(w, map[string]interface{}{
		"user":    user,
		"friends": friends,
		"games":   games,
	})
}

// GetOmakase returns one uniformly chosen game from the intersection
func (h *Handler) GetOmakase(w http.ResponseWriter, r *http.Request) {
	user, friends, platforms, ok := h.intersectionRequest(w, r)
	if !ok {
		return
	}

	games, err := h.resolver.GameIntersection(r.Context(), user, friends, platforms)
	if err != nil {
		h.logger.Error("failed to compute intersection", "steam_id", user.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}
	if len(games) == 0 {
		h.writeError(w, http.StatusNotFound, domain.ErrNoSharedGames)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"user":    user,
		"friends": friends,
		"game":    games[rand.Intn(len(games))],
	})
}

// fetchPathUser resolves the {userID} path parameter to a user record
func (h *Handler) fetchPathUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	id, err := domain.ParseSteamID(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return nil, false
	}

	user, err := h.resolver.FetchUser(r.Context(), id, true)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return nil, false
		}
		h.logger.Error("failed to fetch user", "steam_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return nil, false
	}
	return user, true
}

// intersectionRequest parses an intersection route: the primary user, the
// comma-separated friend ids (deduplicated, unresolvable ids dropped) and
// the requested platforms. The friend display list deliberately includes
// non-public friends even though they add no intersection constraint.
func (h *Handler) intersectionRequest(w http.ResponseWriter, r *http.Request) (*domain.User, []*domain.User, []domain.Platform, bool) {
	user, ok := h.fetchPathUser(w, r)
	if !ok {
		return nil, nil, nil, false
	}

	seen := make(map[domain.SteamID]bool)
	var friendIDs []domain.SteamID
	for _, part := range strings.Split(chi.URLParam(r, "friendIDs"), ",") {
		id, err := domain.ParseSteamID(strings.TrimSpace(part))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return nil, nil, nil, false
		}
		if !seen[id] {
			seen[id] = true
			friendIDs = append(friendIDs, id)
		}
	}

	var friends []*domain.User
	for _, friend := range h.resolver.FetchUsers(r.Context(), friendIDs) {
		if friend != nil {
			friends = append(friends, friend)
		}
	}

	var platforms []domain.Platform
	if raw := r.URL.Query().Get("platforms"); raw != "" {
		platforms = domain.ParsePlatforms(strings.Split(raw, ","))
	}

	return user, friends, platforms, true
}

// FlushCache drops every cache entry
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FlushAll(r.Context()); err != nil {
		h.logger.Error("failed to flush cache", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "flushed"})
}

// GetCacheStats returns cache effectiveness counters
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to read cache stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}
	h.writeSuccess(w, stats)
}

// DeleteCacheKey removes a single namespaced cache entry
func (h *Handler) DeleteCacheKey(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	switch namespace {
	case cache.NamespaceUser, cache.NamespaceUserFriends, cache.NamespaceUserGames, cache.NamespaceApp:
	default:
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	id, err := domain.ParseSteamID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.store.Delete(r.Context(), cache.Key(namespace, uint64(id))); err != nil {
		h.logger.Error("failed to delete cache key", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}
