package models

import (
	"time"

	"github.com/google/uuid"
)

type RecommendationDecline struct {
	BaseUUIDModel
	PlaylistID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recommendation_declines_scope" json:"playlistId"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recommendation_declines_scope" json:"userId"`
	ProviderTrackID string    `gorm:"type:text;not null;uniqueIndex:idx_recommendation_declines_scope" json:"providerTrackId"`
	DeclinedAt      time.Time `gorm:"type:timestamptz;not null"                                       json:"declinedAt"`

	Playlist *Playlist `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE" json:"-"`
	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"     json:"-"`
}
