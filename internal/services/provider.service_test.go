package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"votuna/config"
	. "votuna/internal/models"
	"votuna/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProviderClient(t *testing.T, provider string, handler http.HandlerFunc) *providerHTTPClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newProviderHTTPClient(provider, server.URL, "test-token", 5*time.Second, nil)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestProviderService_ForUser(t *testing.T) {
	service := NewProviderService(config.Config{
		SoundCloudAPIBaseURL:      "https://api.soundcloud.com",
		SpotifyAPIBaseURL:         "https://api.spotify.com/v1",
		ProviderRequestsPerSecond: 5,
		ProviderTimeoutSeconds:    15,
	})
	user := &User{AccessToken: "token"}

	gateway, err := service.ForUser("SoundCloud", user)
	require.NoError(t, err)
	assert.IsType(t, &SoundCloudService{}, gateway)
	assert.Equal(t, ProviderSoundCloud, gateway.Provider())

	gateway, err = service.ForUser("spotify", user)
	require.NoError(t, err)
	assert.IsType(t, &SpotifyService{}, gateway)

	_, err = service.ForUser("tidal", user)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = service.ForUser("spotify", &User{})
	var authErr *ProviderAuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestProviderService_SharesLimiterPerProvider(t *testing.T) {
	service := NewProviderService(config.Config{ProviderRequestsPerSecond: 2})

	assert.Same(t, service.limiterFor(ProviderSpotify), service.limiterFor(ProviderSpotify))
	assert.NotSame(t, service.limiterFor(ProviderSpotify), service.limiterFor(ProviderSoundCloud))
}

func TestProviderHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		expectAuth bool
		message    string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, expectAuth: true},
		{name: "forbidden", status: http.StatusForbidden, expectAuth: true},
		{
			name:    "server error with nested message",
			status:  http.StatusInternalServerError,
			body:    map[string]any{"error": map[string]string{"message": "boom"}},
			message: "soundcloud API error (500): boom",
		},
		{
			name:    "not found with plain message",
			status:  http.StatusNotFound,
			body:    map[string]string{"message": "missing"},
			message: "soundcloud API error (404): missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})

			err := client.do(context.Background(), http.MethodGet, "/anything", nil, nil, nil)

			if tt.expectAuth {
				var authErr *ProviderAuthError
				assert.ErrorAs(t, err, &authErr)
				return
			}

			var apiErr *ProviderAPIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestSoundCloudService_ListTracksMapsPayload(t *testing.T) {
	client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/playlists/42", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":    42,
			"title": "Late Night",
			"tracks": []map[string]any{
				{
					"id":            101,
					"title":         "First",
					"genre":         "House",
					"permalink_url": "https://soundcloud.com/a/first",
					"user":          map[string]string{"username": "dj-a", "avatar_url": "https://img/a.jpg"},
				},
				{"id": "102", "title": "", "artwork_url": "https://img/102.jpg"},
				{"title": "no id"},
			},
		})
	})
	service := NewSoundCloudService(client)

	tracks, err := service.ListTracks(context.Background(), "42")

	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "101", tracks[0].ProviderTrackID)
	assert.Equal(t, "dj-a", *tracks[0].Artist)
	assert.Equal(t, "House", *tracks[0].Genre)
	assert.Equal(t, "https://img/a.jpg", *tracks[0].ArtworkURL)
	assert.Equal(t, "102", tracks[1].ProviderTrackID)
	assert.Equal(t, "Untitled", tracks[1].Title)
	assert.Nil(t, tracks[1].Artist)
}

func TestSoundCloudService_AddTracksRewritesFullList(t *testing.T) {
	var update soundCloudPlaylistUpdate
	client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id":     7,
				"title":  "Crew",
				"tracks": []map[string]any{{"id": 1}, {"id": 2}, {"id": 1}},
			})
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &update))
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 7})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	service := NewSoundCloudService(client)

	err := service.AddTracks(context.Background(), "7", []string{"2", "3", "urn:soundcloud:tracks:4", "3"})

	require.NoError(t, err)
	assert.Equal(t, "Crew", update.Playlist.Title)
	assert.Equal(t, []soundCloudTrackRef{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}, update.Playlist.Tracks)
}

func TestSoundCloudService_RemoveTracks(t *testing.T) {
	var update soundCloudPlaylistUpdate
	client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id":     7,
				"title":  "Crew",
				"tracks": []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}},
			})
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		w.WriteHeader(http.StatusOK)
	})
	service := NewSoundCloudService(client)

	require.NoError(t, service.RemoveTracks(context.Background(), "7", []string{"2"}))
	assert.Equal(t, []soundCloudTrackRef{{ID: "1"}, {ID: "3"}}, update.Playlist.Tracks)
}

func TestSoundCloudService_TrackExists(t *testing.T) {
	client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":     7,
			"tracks": []map[string]any{{"id": 55}},
		})
	})
	service := NewSoundCloudService(client)

	exists, err := service.TrackExists(context.Background(), "7", "soundcloud:tracks:55")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = service.TrackExists(context.Background(), "7", "56")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSoundCloudService_ResolveTrackURL(t *testing.T) {
	tests := []struct {
		name       string
		payload    any
		statusCode int
		trackID    string
	}{
		{
			name:    "track",
			payload: map[string]any{"kind": "track", "id": 9, "title": "Nine"},
			trackID: "9",
		},
		{
			name:       "playlist url",
			payload:    map[string]any{"kind": "playlist", "id": 9},
			statusCode: http.StatusBadRequest,
		},
		{
			name:       "unmappable",
			payload:    map[string]any{"kind": "track"},
			statusCode: http.StatusNotFound,
		},
		{
			name:       "not an object",
			payload:    []int{1},
			statusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/resolve", r.URL.Path)
				assert.Equal(t, "https://soundcloud.com/a/nine", r.URL.Query().Get("url"))
				writeJSON(t, w, http.StatusOK, tt.payload)
			})
			service := NewSoundCloudService(client)

			track, err := service.ResolveTrackURL(context.Background(), " https://soundcloud.com/a/nine ")

			if tt.statusCode != 0 {
				var apiErr *ProviderAPIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.statusCode, apiErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.trackID, track.ProviderTrackID)
		})
	}
}

func TestSoundCloudService_RelatedTracksShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{name: "collection page", payload: map[string]any{"collection": []map[string]any{{"id": 1}, {"id": 2}}}},
		{name: "bare list", payload: []map[string]any{{"id": 1}, {"id": 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/tracks/abc/related", r.URL.Path)
				assert.Equal(t, "50", r.URL.Query().Get("limit"))
				assert.Equal(t, "0", r.URL.Query().Get("offset"))
				writeJSON(t, w, http.StatusOK, tt.payload)
			})
			service := NewSoundCloudService(client)

			tracks, err := service.RelatedTracks(context.Background(), "abc", 500, -3)

			require.NoError(t, err)
			require.Len(t, tracks, 2)
			assert.Equal(t, "1", tracks[0].ProviderTrackID)
		})
	}
}

func TestSoundCloudService_SearchTracksBlankQuery(t *testing.T) {
	service := NewSoundCloudService(newTestProviderClient(t, ProviderSoundCloud, func(w http.ResponseWriter, r *http.Request) {
		t.Error("blank search must not reach the provider")
	}))

	tracks, err := service.SearchTracks(context.Background(), "   ", 10)

	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSpotifyResourceID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=x", "4uLU6hMCjMI75M1A2tKUQC"},
		{"https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
		{"open.spotify.com/track/abc", "abc"},
		{"https://open.spotify.com/album/abc", ""},
		{"https://example.com/track/abc", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, spotifyResourceID(tt.input, "track"))
		})
	}
}

func TestSpotifyService_ListTracksFollowsNext(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"item": map[string]any{"id": "a", "name": "A", "artists": []map[string]string{{"name": "X"}, {"name": "Y"}}}},
				},
				"next": serverURL + "/playlists/p1/items?offset=100&limit=100",
			})
		case "100":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"track": map[string]any{"id": "b", "name": "B", "album": map[string]any{"images": []map[string]string{{"url": "https://img/b"}}}}},
					{"track": nil},
				},
				"next": nil,
			})
		default:
			t.Errorf("unexpected request %s", r.URL.String())
		}
	}))
	t.Cleanup(server.Close)
	serverURL = server.URL

	service := NewSpotifyService(newProviderHTTPClient(ProviderSpotify, server.URL, "tok", time.Second, nil))

	tracks, err := service.ListTracks(context.Background(), "spotify:playlist:p1")

	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "X, Y", *tracks[0].Artist)
	assert.Equal(t, "b", tracks[1].ProviderTrackID)
	assert.Equal(t, "https://img/b", *tracks[1].ArtworkURL)
}

func TestSpotifyService_AddAndRemoveTracks(t *testing.T) {
	var added map[string][]string
	var removed map[string][]map[string]string
	client := newTestProviderClient(t, ProviderSpotify, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/playlists/p1/items", r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&added))
			writeJSON(t, w, http.StatusCreated, map[string]string{"snapshot_id": "s"})
		case http.MethodDelete:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&removed))
			writeJSON(t, w, http.StatusOK, map[string]string{"snapshot_id": "s"})
		}
	})
	service := NewSpotifyService(client)

	err := service.AddTracks(context.Background(), "p1", []string{
		"abc",
		"https://open.spotify.com/track/abc",
		"spotify:track:def",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify:track:abc", "spotify:track:def"}, added["uris"])

	require.NoError(t, service.RemoveTracks(context.Background(), "p1", []string{"abc"}))
	assert.Equal(t, []map[string]string{{"uri": "spotify:track:abc"}}, removed["tracks"])
}

func TestSpotifyService_GetPlaylistTrackCount(t *testing.T) {
	client := newTestProviderClient(t, ProviderSpotify, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":     "p1",
			"name":   "Road Trip",
			"public": true,
			"items":  map[string]int{"total": 12},
		})
	})
	service := NewSpotifyService(client)

	playlist, err := service.GetPlaylist(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "Road Trip", playlist.Title)
	assert.Equal(t, 12, *playlist.TrackCount)
	assert.True(t, *playlist.IsPublic)
}

func TestSpotifyService_ResolveTrackURLRejectsNonTrack(t *testing.T) {
	service := NewSpotifyService(newTestProviderClient(t, ProviderSpotify, func(w http.ResponseWriter, r *http.Request) {
		t.Error("non-track urls must not reach the provider")
	}))

	_, err := service.ResolveTrackURL(context.Background(), "https://open.spotify.com/album/xyz")

	var apiErr *ProviderAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestSpotifyService_RelatedTracksIsEmpty(t *testing.T) {
	service := NewSpotifyService(nil)

	tracks, err := service.RelatedTracks(context.Background(), "abc", 10, 0)

	require.NoError(t, err)
	assert.Empty(t, tracks)
}
