package steam

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aheadley/steam-omakase/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDirectory(t *testing.T, handler http.HandlerFunc) *DirectoryClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewDirectoryClient(DirectoryConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, testLogger())
}

func TestGetUser(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamUser/GetPlayerSummaries/v2/", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "76561198000001", r.URL.Query().Get("steamids"))
		w.Write([]byte(`{"response":{"players":[{
			"steamid": "76561198000001",
			"personaname": "alice",
			"communityvisibilitystate": 3,
			"profileurl": "https://steamcommunity.com/id/alice/"
		}]}}`))
	})

	user, err := client.GetUser(context.Background(), 76561198000001)
	require.NoError(t, err)
	assert.Equal(t, domain.SteamID(76561198000001), user.ID)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, domain.VisibilityPublic, user.Visibility)
	assert.True(t, user.IsPublic())
}

func TestGetUserEmptyPlayerList(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"players":[]}}`))
	})

	_, err := client.GetUser(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetUserUpstreamStatus(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetUser(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestGetUserByVanity(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISteamUser/ResolveVanityURL/v1/":
			assert.Equal(t, "alice-town", r.URL.Query().Get("vanityurl"))
			w.Write([]byte(`{"response":{"success":1,"steamid":"76561198000001"}}`))
		case "/ISteamUser/GetPlayerSummaries/v2/":
			w.Write([]byte(`{"response":{"players":[{
				"steamid": "76561198000001",
				"personaname": "alice",
				"communityvisibilitystate": 3
			}]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	user, err := client.GetUserByVanity(context.Background(), "alice-town")
	require.NoError(t, err)
	assert.Equal(t, domain.SteamID(76561198000001), user.ID)
}

func TestGetUserByVanityNoMatch(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"success":42,"message":"No match"}}`))
	})

	_, err := client.GetUserByVanity(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrVanityNotFound)
}

func TestGetFriendIDs(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamUser/GetFriendList/v1/", r.URL.Path)
		assert.Equal(t, "friend", r.URL.Query().Get("relationship"))
		w.Write([]byte(`{"friendslist":{"friends":[
			{"steamid":"76561198000002","relationship":"friend"},
			{"steamid":"76561198000003","relationship":"friend"},
			{"steamid":"garbage","relationship":"friend"}
		]}}`))
	})

	ids, err := client.GetFriendIDs(context.Background(), 76561198000001)
	require.NoError(t, err)
	assert.Equal(t, []domain.SteamID{76561198000002, 76561198000003}, ids,
		"malformed ids are skipped")
}

func TestGetOwnedGameIDs(t *testing.T) {
	client := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/IPlayerService/GetOwnedGames/v1/", r.URL.Path)
		assert.Equal(t, "76561198000001", r.URL.Query().Get("steamid"))
		w.Write([]byte(`{"response":{"game_count":2,"games":[
			{"appid":440,"playtime_forever":6000},
			{"appid":570,"playtime_forever":120}
		]}}`))
	})

	ids, err := client.GetOwnedGameIDs(context.Background(), 76561198000001)
	require.NoError(t, err)
	assert.Equal(t, []domain.AppID{440, 570}, ids)
}
