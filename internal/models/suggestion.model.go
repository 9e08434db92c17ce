package models

import (
	"time"

	"github.com/google/uuid"
)

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionCanceled SuggestionStatus = "canceled"
)

func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionPending, SuggestionAccepted, SuggestionRejected, SuggestionCanceled:
		return true
	}
	return false
}

type ResolutionReason string

const (
	ReasonThresholdMet        ResolutionReason = "threshold_met"
	ReasonThresholdNotMet     ResolutionReason = "threshold_not_met"
	ReasonTieAdd              ResolutionReason = "tie_add"
	ReasonTieReject           ResolutionReason = "tie_reject"
	ReasonForceAdd            ResolutionReason = "force_add"
	ReasonCanceledBySuggester ResolutionReason = "canceled_by_suggester"
	ReasonCanceledByOwner     ResolutionReason = "canceled_by_owner"
)

// Suggestion is a candidate track for a playlist. At most one pending row exists
// per (playlist, provider track); the partial unique index lives in the SQL migrations.
type Suggestion struct {
	BaseUUIDModel
	PlaylistID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_track_suggestions_playlist_track" json:"playlistId"`
	ProviderTrackID   string            `gorm:"type:text;not null;index:idx_track_suggestions_playlist_track" json:"providerTrackId"`
	TrackTitle        *string           `gorm:"type:text"                                                     json:"trackTitle,omitempty"`
	TrackArtist       *string           `gorm:"type:text"                                                     json:"trackArtist,omitempty"`
	TrackArtworkURL   *string           `gorm:"type:text"                                                     json:"trackArtworkUrl,omitempty"`
	TrackURL          *string           `gorm:"type:text"                                                     json:"trackUrl,omitempty"`
	SuggestedByUserID *uuid.UUID        `gorm:"type:uuid;index"                                               json:"suggestedByUserId,omitempty"`
	Status            SuggestionStatus  `gorm:"type:text;not null;default:'pending';index"                    json:"status"`
	ResolvedAt        *time.Time        `gorm:"type:timestamptz"                                              json:"resolvedAt,omitempty"`
	ResolvedByUserID  *uuid.UUID        `gorm:"type:uuid"                                                     json:"resolvedByUserId,omitempty"`
	ResolutionReason  *ResolutionReason `gorm:"type:text"                                                     json:"resolutionReason,omitempty"`

	Playlist    *Playlist `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"        json:"-"`
	SuggestedBy *User     `gorm:"foreignKey:SuggestedByUserID;constraint:OnDelete:SET NULL" json:"-"`
	ResolvedBy  *User     `gorm:"foreignKey:ResolvedByUserID;constraint:OnDelete:SET NULL"  json:"-"`
}

func (Suggestion) TableName() string {
	return "track_suggestions"
}

func (s *Suggestion) IsPending() bool {
	return s.Status == SuggestionPending
}

func (s *Suggestion) WasSuggestedBy(userID uuid.UUID) bool {
	return s.SuggestedByUserID != nil && *s.SuggestedByUserID == userID
}

// Resolve moves a pending suggestion into a terminal state.
func (s *Suggestion) Resolve(
	status SuggestionStatus,
	reason ResolutionReason,
	actor *uuid.UUID,
	at time.Time,
) {
	s.Status = status
	s.ResolutionReason = &reason
	s.ResolvedByUserID = actor
	s.ResolvedAt = &at
}
