package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	. "votuna/internal/models"
	"votuna/internal/types"

	logger "github.com/Bparsons0904/goLogger"
)

type SpotifyService struct {
	http *providerHTTPClient
	log  logger.Logger
}

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album *struct {
		Images []spotifyImage `json:"images"`
	} `json:"album"`
	ExternalURLs map[string]string `json:"external_urls"`
}

type spotifyTotal struct {
	Total *int `json:"total"`
}

type spotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Public      *bool          `json:"public"`
	Images      []spotifyImage `json:"images"`
	Tracks      *spotifyTotal  `json:"tracks"`
	Items       *spotifyTotal  `json:"items"`
}

type spotifyPlaylistItemsPage struct {
	Items []struct {
		Item  *spotifyTrack `json:"item"`
		Track *spotifyTrack `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

func NewSpotifyService(client *providerHTTPClient) *SpotifyService {
	return &SpotifyService{
		http: client,
		log:  logger.New("spotifyService"),
	}
}

func (s *SpotifyService) Provider() string {
	return ProviderSpotify
}

func firstImageURL(images []spotifyImage) *string {
	for _, image := range images {
		if link := optionalString(image.URL); link != nil {
			return link
		}
	}
	return nil
}

func (t *spotifyTrack) toProviderTrack() (types.ProviderTrack, bool) {
	if t == nil {
		return types.ProviderTrack{}, false
	}
	id := strings.TrimSpace(t.ID)
	if id == "" {
		return types.ProviderTrack{}, false
	}

	names := make([]string, 0, len(t.Artists))
	for _, artist := range t.Artists {
		if name := strings.TrimSpace(artist.Name); name != "" {
			names = append(names, name)
		}
	}

	title := strings.TrimSpace(t.Name)
	if title == "" {
		title = "Untitled"
	}

	track := types.ProviderTrack{
		ProviderTrackID: id,
		Title:           title,
		Artist:          optionalString(strings.Join(names, ", ")),
		URL:             optionalString(t.ExternalURLs["spotify"]),
	}
	if t.Album != nil {
		track.ArtworkURL = firstImageURL(t.Album.Images)
	}

	return track, true
}

// spotifyResourceID accepts a bare id, a spotify:<resource>:<id> uri or an
// open.spotify.com link (with or without an intl-xx segment).
func spotifyResourceID(value, resource string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	prefix := "spotify:" + resource + ":"
	if strings.HasPrefix(strings.ToLower(raw), prefix) {
		return strings.TrimSpace(raw[len(prefix):])
	}

	lowered := strings.ToLower(raw)
	if !strings.HasPrefix(lowered, "http://") && !strings.HasPrefix(lowered, "https://") {
		if !strings.Contains(lowered, "open.spotify.com/") {
			return raw
		}
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || !strings.Contains(strings.ToLower(parsed.Host), "spotify.com") {
		return ""
	}

	segments := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })
	if len(segments) > 1 && strings.HasPrefix(strings.ToLower(segments[0]), "intl-") {
		segments = segments[1:]
	}
	for i, segment := range segments {
		if strings.ToLower(segment) != resource {
			continue
		}
		if i+1 >= len(segments) {
			return ""
		}
		return strings.TrimSpace(segments[i+1])
	}

	return ""
}

func spotifyTrackURIs(trackIDs []string) []string {
	seen := make(map[string]bool, len(trackIDs))
	uris := make([]string, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		id := spotifyResourceID(trackID, "track")
		if id == "" {
			continue
		}
		uri := "spotify:track:" + id
		if seen[uri] {
			continue
		}
		seen[uri] = true
		uris = append(uris, uri)
	}
	return uris
}

func (s *SpotifyService) playlistID(value string) (string, error) {
	id := spotifyResourceID(value, "playlist")
	if id == "" {
		return "", &ProviderAPIError{
			Provider:   ProviderSpotify,
			StatusCode: http.StatusBadRequest,
			Message:    "Playlist id is required",
		}
	}
	return id, nil
}

func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*types.ProviderPlaylist, error) {
	id, err := s.playlistID(playlistID)
	if err != nil {
		return nil, err
	}

	var payload spotifyPlaylist
	if err := s.http.do(ctx, http.MethodGet, "/playlists/"+url.PathEscape(id), nil, nil, &payload); err != nil {
		return nil, err
	}

	if strings.TrimSpace(payload.ID) == "" {
		return nil, &ProviderAPIError{
			Provider:   ProviderSpotify,
			StatusCode: http.StatusNotFound,
			Message:    "Unable to load playlist",
		}
	}

	title := strings.TrimSpace(payload.Name)
	if title == "" {
		title = "Untitled"
	}

	// Older payloads report the total under tracks, current ones under items.
	var trackCount *int
	switch {
	case payload.Tracks != nil && payload.Tracks.Total != nil:
		trackCount = payload.Tracks.Total
	case payload.Items != nil && payload.Items.Total != nil:
		trackCount = payload.Items.Total
	}

	return &types.ProviderPlaylist{
		Provider:           ProviderSpotify,
		ProviderPlaylistID: payload.ID,
		Title:              title,
		Description:        payload.Description,
		ImageURL:           firstImageURL(payload.Images),
		TrackCount:         trackCount,
		IsPublic:           payload.Public,
	}, nil
}

func (s *SpotifyService) ListTracks(ctx context.Context, playlistID string) ([]types.ProviderTrack, error) {
	log := s.log.Function("ListTracks")

	id, err := s.playlistID(playlistID)
	if err != nil {
		return nil, err
	}

	tracks := []types.ProviderTrack{}
	next := "/playlists/" + url.PathEscape(id) + "/items"
	params := url.Values{}
	params.Set("limit", "100")
	params.Set("offset", "0")

	for page := 0; next != ""; page++ {
		var payload spotifyPlaylistItemsPage
		if err := s.http.do(ctx, http.MethodGet, next, params, nil, &payload); err != nil {
			return nil, err
		}

		for _, item := range payload.Items {
			source := item.Item
			if source == nil {
				source = item.Track
			}
			if track, ok := source.toProviderTrack(); ok {
				tracks = append(tracks, track)
			}
		}

		next = ""
		if payload.Next != nil {
			next = strings.TrimSpace(*payload.Next)
		}
		params = nil

		log.Debug("fetched playlist page", "playlistID", id, "page", page, "trackCount", len(tracks))
	}

	return tracks, nil
}

func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	id, err := s.playlistID(playlistID)
	if err != nil {
		return err
	}

	uris := spotifyTrackURIs(trackIDs)
	if len(uris) == 0 {
		return nil
	}

	body := map[string][]string{"uris": uris}
	return s.http.do(ctx, http.MethodPost, "/playlists/"+url.PathEscape(id)+"/items", nil, body, nil)
}

func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	id, err := s.playlistID(playlistID)
	if err != nil {
		return err
	}

	uris := spotifyTrackURIs(trackIDs)
	if len(uris) == 0 {
		return nil
	}

	tracks := make([]map[string]string, 0, len(uris))
	for _, uri := range uris {
		tracks = append(tracks, map[string]string{"uri": uri})
	}

	body := map[string]any{"tracks": tracks}
	return s.http.do(ctx, http.MethodDelete, "/playlists/"+url.PathEscape(id)+"/items", nil, body, nil)
}

func (s *SpotifyService) TrackExists(ctx context.Context, playlistID string, trackID string) (bool, error) {
	target := spotifyResourceID(trackID, "track")
	if target == "" {
		return false, nil
	}

	tracks, err := s.ListTracks(ctx, playlistID)
	if err != nil {
		return false, err
	}

	for _, track := range tracks {
		if track.ProviderTrackID == target {
			return true, nil
		}
	}

	return false, nil
}

func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]types.ProviderTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.ProviderTrack{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(clampLimit(limit, 1, 25)))

	var payload struct {
		Tracks *struct {
			Items []*spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := s.http.do(ctx, http.MethodGet, "/search", params, nil, &payload); err != nil {
		return nil, err
	}

	results := []types.ProviderTrack{}
	if payload.Tracks == nil {
		return results, nil
	}
	for _, item := range payload.Tracks.Items {
		if track, ok := item.toProviderTrack(); ok {
			results = append(results, track)
		}
	}

	return results, nil
}

func (s *SpotifyService) ResolveTrackURL(ctx context.Context, trackURL string) (*types.ProviderTrack, error) {
	if strings.TrimSpace(trackURL) == "" {
		return nil, &ProviderAPIError{
			Provider:   ProviderSpotify,
			StatusCode: http.StatusBadRequest,
			Message:    "Track URL is required",
		}
	}

	id := spotifyResourceID(trackURL, "track")
	if id == "" {
		return nil, &ProviderAPIError{
			Provider:   ProviderSpotify,
			StatusCode: http.StatusBadRequest,
			Message:    "Resolved URL is not a track",
		}
	}

	var payload spotifyTrack
	if err := s.http.do(ctx, http.MethodGet, "/tracks/"+url.PathEscape(id), nil, nil, &payload); err != nil {
		return nil, err
	}

	track, ok := payload.toProviderTrack()
	if !ok {
		return nil, &ProviderAPIError{
			Provider:   ProviderSpotify,
			StatusCode: http.StatusNotFound,
			Message:    "Unable to resolve track URL",
		}
	}

	return &track, nil
}

// RelatedTracks is always empty: Spotify retired its recommendations endpoint.
func (s *SpotifyService) RelatedTracks(
	ctx context.Context,
	trackID string,
	limit, offset int,
) ([]types.ProviderTrack, error) {
	return []types.ProviderTrack{}, nil
}
