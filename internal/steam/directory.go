// Package steam contains thin clients for the two upstream Steam APIs: the
// Web API (users, friends, owned games) and the storefront API (per-app
// metadata). Both clients are stateless and safe for concurrent use.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aheadley/steam-omakase/internal/domain"
)

// DefaultAPIBaseURL is the public Steam Web API endpoint
const DefaultAPIBaseURL = "https://api.steampowered.com"

// vanitySuccess is the success code ResolveVanityURL returns on a match
const vanitySuccess = 1

// DirectoryConfig holds Steam Web API client configuration
type DirectoryConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DirectoryClient calls the Steam Web API for user records, friend-id lists
// and owned-game-id lists. One entity per call; the API is not batchable for
// the lookups this service performs.
type DirectoryClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewDirectoryClient creates a Steam Web API client
func NewDirectoryClient(cfg DirectoryConfig, logger *slog.Logger) *DirectoryClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &DirectoryClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type playerSummary struct {
	SteamID    string `json:"steamid"`
	Name       string `json:"personaname"`
	Visibility int    `json:"communityvisibilitystate"`
	AvatarURL  string `json:"avatarfull"`
	ProfileURL string `json:"profileurl"`
}

type playerSummariesResponse struct {
	Response struct {
		Players []playerSummary `json:"players"`
	} `json:"response"`
}

type vanityResponse struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
	} `json:"response"`
}

type friendListResponse struct {
	FriendsList struct {
		Friends []struct {
			SteamID string `json:"steamid"`
		} `json:"friends"`
	} `json:"friendslist"`
}

type ownedGamesResponse struct {
	Response struct {
		Games []struct {
			AppID domain.AppID `json:"appid"`
		} `json:"games"`
	} `json:"response"`
}

// GetUser fetches a single user record by Steam ID
func (c *DirectoryClient) GetUser(ctx context.Context, id domain.SteamID) (*domain.User, error) {
	var parsed playerSummariesResponse
	err := c.get(ctx, "/ISteamUser/GetPlayerSummaries/v2/", url.Values{
		"steamids": {id.String()},
	}, &parsed)
	if err != nil {
		return nil, err
	}
	if len(parsed.Response.Players) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return playerToUser(parsed.Response.Players[0])
}

// GetUserByVanity resolves a human-chosen profile URL token to a user
// record. A token with no match yields domain.ErrVanityNotFound.
func (c *DirectoryClient) GetUserByVanity(ctx context.Context, token string) (*domain.User, error) {
	var parsed vanityResponse
	err := c.get(ctx, "/ISteamUser/ResolveVanityURL/v1/", url.Values{
		"vanityurl": {token},
	}, &parsed)
	if err != nil {
		return nil, err
	}
	if parsed.Response.Success != vanitySuccess {
		return nil, domain.ErrVanityNotFound
	}
	id, err := domain.ParseSteamID(parsed.Response.SteamID)
	if err != nil {
		return nil, fmt.Errorf("parsing resolved vanity id %q: %w", parsed.Response.SteamID, err)
	}
	return c.GetUser(ctx, id)
}

// GetFriendIDs fetches the friend-id list for a user. A private profile
// comes back from upstream as an empty list.
func (c *DirectoryClient) GetFriendIDs(ctx context.Context, id domain.SteamID) ([]domain.SteamID, error) {
	var parsed friendListResponse
	err := c.get(ctx, "/ISteamUser/GetFriendList/v1/", url.Values{
		"steamid":      {id.String()},
		"relationship": {"friend"},
	}, &parsed)
	if err != nil {
		return nil, err
	}

	ids := make([]domain.SteamID, 0, len(parsed.FriendsList.Friends))
	for _, f := range parsed.FriendsList.Friends {
		fid, err := domain.ParseSteamID(f.SteamID)
		if err != nil {
			c.logger.Warn("skipping malformed friend id", "steamid", f.SteamID)
			continue
		}
		ids = append(ids, fid)
	}
	return ids, nil
}

// GetOwnedGameIDs fetches the owned-game-id list for a user
func (c *DirectoryClient) GetOwnedGameIDs(ctx context.Context, id domain.SteamID) ([]domain.AppID, error) {
	var parsed ownedGamesResponse
	err := c.get(ctx, "/IPlayerService/GetOwnedGames/v1/", url.Values{
		"steamid": {id.String()},
	}, &parsed)
	if err != nil {
		return nil, err
	}

	ids := make([]domain.AppID, 0, len(parsed.Response.Games))
	for _, g := range parsed.Response.Games {
		ids = append(ids, g.AppID)
	}
	return ids, nil
}

func (c *DirectoryClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	params.Set("format", "json")
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d from %s", domain.ErrUpstream, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return nil
}

func playerToUser(p playerSummary) (*domain.User, error) {
	id, err := domain.ParseSteamID(p.SteamID)
	if err != nil {
		return nil, fmt.Errorf("parsing steam id %q: %w", p.SteamID, err)
	}
	return &domain.User{
		ID:         id,
		Name:       p.Name,
		Visibility: domain.Visibility(p.Visibility),
		AvatarURL:  p.AvatarURL,
		ProfileURL: p.ProfileURL,
	}, nil
}
