package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	. "votuna/internal/models"
	"votuna/internal/types"

	logger "github.com/Bparsons0904/goLogger"
)

// SoundCloudService talks to the SoundCloud public API. Playlist writes replace
// the whole track list, so every mutation is a read followed by a PUT.
type SoundCloudService struct {
	http *providerHTTPClient
	log  logger.Logger
}

// flexibleID accepts ids sent either as JSON numbers or strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = flexibleID(strings.TrimSpace(asString))
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return err
	}
	*f = flexibleID(asNumber.String())
	return nil
}

type soundCloudUser struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type soundCloudTrack struct {
	ID           flexibleID      `json:"id"`
	URN          string          `json:"urn"`
	Kind         string          `json:"kind"`
	Title        string          `json:"title"`
	Genre        string          `json:"genre"`
	ArtworkURL   string          `json:"artwork_url"`
	PermalinkURL string          `json:"permalink_url"`
	User         *soundCloudUser `json:"user"`
}

type soundCloudPlaylist struct {
	ID          flexibleID        `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	ArtworkURL  string            `json:"artwork_url"`
	TrackCount  *int              `json:"track_count"`
	Sharing     string            `json:"sharing"`
	User        *soundCloudUser   `json:"user"`
	Tracks      []soundCloudTrack `json:"tracks"`
}

type soundCloudTrackRef struct {
	ID string `json:"id"`
}

type soundCloudPlaylistUpdate struct {
	Playlist struct {
		Title  string               `json:"title"`
		Tracks []soundCloudTrackRef `json:"tracks"`
	} `json:"playlist"`
}

func NewSoundCloudService(client *providerHTTPClient) *SoundCloudService {
	return &SoundCloudService{
		http: client,
		log:  logger.New("soundCloudService"),
	}
}

func (s *SoundCloudService) Provider() string {
	return ProviderSoundCloud
}

// soundCloudTrackKey reduces ids, urns and api urls to the bare lowercase id.
func soundCloudTrackKey(value string) string {
	raw := strings.TrimSpace(value)
	lowered := strings.ToLower(raw)

	switch {
	case strings.HasPrefix(lowered, "urn:soundcloud:tracks:"),
		strings.HasPrefix(lowered, "soundcloud:tracks:"):
		return strings.TrimSpace(lowered[strings.LastIndex(lowered, ":")+1:])
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		if parsed, err := url.Parse(raw); err == nil {
			segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
			if len(segments) >= 2 && segments[len(segments)-2] == "tracks" {
				return strings.ToLower(segments[len(segments)-1])
			}
		}
	}

	return lowered
}

func (t soundCloudTrack) trackID() string {
	if id := strings.TrimSpace(string(t.ID)); id != "" {
		return id
	}
	if t.URN != "" {
		return soundCloudTrackKey(t.URN)
	}
	return ""
}

func (t soundCloudTrack) toProviderTrack() (types.ProviderTrack, bool) {
	id := t.trackID()
	if id == "" {
		return types.ProviderTrack{}, false
	}

	user := soundCloudUser{}
	if t.User != nil {
		user = *t.User
	}

	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Untitled"
	}

	artwork := optionalString(t.ArtworkURL)
	if artwork == nil {
		artwork = optionalString(user.AvatarURL)
	}

	return types.ProviderTrack{
		ProviderTrackID: id,
		Title:           title,
		Artist:          optionalString(user.Username),
		Genre:           optionalString(t.Genre),
		ArtworkURL:      artwork,
		URL:             optionalString(t.PermalinkURL),
	}, true
}

func mapSoundCloudTracks(raw []soundCloudTrack) []types.ProviderTrack {
	tracks := make([]types.ProviderTrack, 0, len(raw))
	for _, item := range raw {
		if track, ok := item.toProviderTrack(); ok {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

func (s *SoundCloudService) fetchPlaylist(ctx context.Context, playlistID string) (*soundCloudPlaylist, error) {
	var payload soundCloudPlaylist
	if err := s.http.do(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, nil, &payload); err != nil {
		return nil, err
	}

	if payload.ID == "" {
		return nil, &ProviderAPIError{
			Provider:   ProviderSoundCloud,
			StatusCode: http.StatusNotFound,
			Message:    "Unable to load playlist",
		}
	}

	return &payload, nil
}

func (s *SoundCloudService) GetPlaylist(ctx context.Context, playlistID string) (*types.ProviderPlaylist, error) {
	payload, err := s.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	user := soundCloudUser{}
	if payload.User != nil {
		user = *payload.User
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = "Untitled"
	}

	image := optionalString(payload.ArtworkURL)
	if image == nil {
		image = optionalString(user.AvatarURL)
	}

	var isPublic *bool
	if payload.Sharing != "" {
		public := strings.EqualFold(payload.Sharing, "public")
		isPublic = &public
	}

	return &types.ProviderPlaylist{
		Provider:           ProviderSoundCloud,
		ProviderPlaylistID: string(payload.ID),
		Title:              title,
		Description:        payload.Description,
		ImageURL:           image,
		TrackCount:         payload.TrackCount,
		IsPublic:           isPublic,
	}, nil
}

func (s *SoundCloudService) ListTracks(ctx context.Context, playlistID string) ([]types.ProviderTrack, error) {
	payload, err := s.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return mapSoundCloudTracks(payload.Tracks), nil
}

func (s *SoundCloudService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	return s.rewritePlaylist(ctx, playlistID, func(existing []soundCloudTrackRef, seen map[string]bool) []soundCloudTrackRef {
		for _, trackID := range trackIDs {
			key := soundCloudTrackKey(trackID)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			existing = append(existing, soundCloudTrackRef{ID: key})
		}
		return existing
	}, nil)
}

func (s *SoundCloudService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	remove := make(map[string]bool, len(trackIDs))
	for _, trackID := range trackIDs {
		if key := soundCloudTrackKey(trackID); key != "" {
			remove[key] = true
		}
	}
	if len(remove) == 0 {
		return nil
	}

	return s.rewritePlaylist(ctx, playlistID, func(existing []soundCloudTrackRef, _ map[string]bool) []soundCloudTrackRef {
		return existing
	}, remove)
}

// rewritePlaylist reads the current track list, drops duplicates and anything
// in skip, lets mutate append, then PUTs the result back.
func (s *SoundCloudService) rewritePlaylist(
	ctx context.Context,
	playlistID string,
	mutate func(existing []soundCloudTrackRef, seen map[string]bool) []soundCloudTrackRef,
	skip map[string]bool,
) error {
	log := s.log.Function("rewritePlaylist")

	payload, err := s.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(payload.Tracks))
	refs := make([]soundCloudTrackRef, 0, len(payload.Tracks))
	for _, track := range payload.Tracks {
		key := soundCloudTrackKey(track.trackID())
		if key == "" || seen[key] || skip[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, soundCloudTrackRef{ID: key})
	}

	var update soundCloudPlaylistUpdate
	update.Playlist.Title = payload.Title
	if strings.TrimSpace(update.Playlist.Title) == "" {
		update.Playlist.Title = "Untitled"
	}
	update.Playlist.Tracks = mutate(refs, seen)

	if err := s.http.do(ctx, http.MethodPut, "/playlists/"+url.PathEscape(playlistID), nil, update, nil); err != nil {
		return err
	}

	log.Debug("rewrote playlist tracks", "playlistID", playlistID, "trackCount", len(update.Playlist.Tracks))
	return nil
}

func (s *SoundCloudService) TrackExists(ctx context.Context, playlistID string, trackID string) (bool, error) {
	target := soundCloudTrackKey(trackID)
	if target == "" {
		return false, nil
	}

	tracks, err := s.ListTracks(ctx, playlistID)
	if err != nil {
		return false, err
	}

	for _, track := range tracks {
		if soundCloudTrackKey(track.ProviderTrackID) == target {
			return true, nil
		}
	}

	return false, nil
}

func (s *SoundCloudService) SearchTracks(ctx context.Context, query string, limit int) ([]types.ProviderTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.ProviderTrack{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit, 1, 25)))

	var payload []soundCloudTrack
	if err := s.http.do(ctx, http.MethodGet, "/tracks", params, nil, &payload); err != nil {
		return nil, err
	}

	return mapSoundCloudTracks(payload), nil
}

func (s *SoundCloudService) ResolveTrackURL(ctx context.Context, trackURL string) (*types.ProviderTrack, error) {
	trackURL = strings.TrimSpace(trackURL)
	if trackURL == "" {
		return nil, &ProviderAPIError{
			Provider:   ProviderSoundCloud,
			StatusCode: http.StatusBadRequest,
			Message:    "Track URL is required",
		}
	}

	params := url.Values{}
	params.Set("url", trackURL)

	var raw json.RawMessage
	if err := s.http.do(ctx, http.MethodGet, "/resolve", params, nil, &raw); err != nil {
		return nil, err
	}

	notFound := &ProviderAPIError{
		Provider:   ProviderSoundCloud,
		StatusCode: http.StatusNotFound,
		Message:    "Unable to resolve track URL",
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, notFound
	}

	var payload soundCloudTrack
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, notFound
	}

	if payload.Kind != "" && payload.Kind != "track" {
		return nil, &ProviderAPIError{
			Provider:   ProviderSoundCloud,
			StatusCode: http.StatusBadRequest,
			Message:    "Resolved URL is not a track",
		}
	}

	track, ok := payload.toProviderTrack()
	if !ok {
		return nil, notFound
	}

	return &track, nil
}

func (s *SoundCloudService) RelatedTracks(
	ctx context.Context,
	trackID string,
	limit, offset int,
) ([]types.ProviderTrack, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return []types.ProviderTrack{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampLimit(limit, 1, 50)))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("linked_partitioning", "1")

	var raw json.RawMessage
	path := "/tracks/" + url.PathEscape(trackID) + "/related"
	if err := s.http.do(ctx, http.MethodGet, path, params, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []types.ProviderTrack{}, nil
	}

	var items []soundCloudTrack
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []types.ProviderTrack{}, nil
		}
	case '{':
		var page struct {
			Collection []soundCloudTrack `json:"collection"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return []types.ProviderTrack{}, nil
		}
		items = page.Collection
	}

	return mapSoundCloudTracks(items), nil
}
