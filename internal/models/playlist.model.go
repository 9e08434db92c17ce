package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ProviderSoundCloud = "soundcloud"
	ProviderSpotify    = "spotify"
)

type Playlist struct {
	BaseUUIDModel
	OwnerUserID        uuid.UUID  `gorm:"type:uuid;not null;index"                                      json:"ownerUserId"`
	Provider           string     `gorm:"type:text;not null;uniqueIndex:idx_playlists_provider_playlist" json:"provider"`
	ProviderPlaylistID string     `gorm:"type:text;not null;uniqueIndex:idx_playlists_provider_playlist" json:"providerPlaylistId"`
	Title              string     `gorm:"type:text;not null"                                            json:"title"`
	Description        *string    `gorm:"type:text"                                                     json:"description,omitempty"`
	ImageURL           *string    `gorm:"type:text"                                                     json:"imageUrl,omitempty"`
	IsActive           bool       `gorm:"type:bool;default:true"                                        json:"isActive"`
	LastSyncedAt       *time.Time `gorm:"type:timestamptz"                                              json:"lastSyncedAt,omitempty"`

	ProviderSnapshot datatypes.JSONType[ProviderPlaylistSnapshot] `gorm:"type:jsonb" json:"providerSnapshot"`

	Owner    *User             `gorm:"foreignKey:OwnerUserID;constraint:OnDelete:CASCADE" json:"-"`
	Settings *PlaylistSettings `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"  json:"settings,omitempty"`
	Members  []PlaylistMember  `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"  json:"-"`
}

// ProviderPlaylistSnapshot is the provider's view of the playlist at the last sync.
type ProviderPlaylistSnapshot struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	TrackCount  *int    `json:"trackCount,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

func (p *Playlist) IsOwner(userID uuid.UUID) bool {
	return p.OwnerUserID == userID
}

// ApplySnapshot copies provider metadata onto the overlay and stamps the sync time.
func (p *Playlist) ApplySnapshot(snapshot ProviderPlaylistSnapshot, syncedAt time.Time) {
	p.Title = snapshot.Title
	p.Description = snapshot.Description
	p.ImageURL = snapshot.ImageURL
	p.ProviderSnapshot = datatypes.NewJSONType(snapshot)
	p.LastSyncedAt = &syncedAt
}
