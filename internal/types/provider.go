package types

// ProviderTrack is a track as reported by a streaming provider.
type ProviderTrack struct {
	ProviderTrackID string  `json:"providerTrackId"`
	Title           string  `json:"title"`
	Artist          *string `json:"artist,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	ArtworkURL      *string `json:"artworkUrl,omitempty"`
	URL             *string `json:"url,omitempty"`
}

// ProviderPlaylist is a playlist as reported by a streaming provider.
type ProviderPlaylist struct {
	Provider           string  `json:"provider"`
	ProviderPlaylistID string  `json:"providerPlaylistId"`
	Title              string  `json:"title"`
	Description        *string `json:"description,omitempty"`
	ImageURL           *string `json:"imageUrl,omitempty"`
	TrackCount         *int    `json:"trackCount,omitempty"`
	IsPublic           *bool   `json:"isPublic,omitempty"`
}
