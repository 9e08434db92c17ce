package models

import (
	"time"

	"github.com/google/uuid"
)

type AdditionSource string

const (
	SourceSuggestion    AdditionSource = "suggestion"
	SourcePersonalAdd   AdditionSource = "personal_add"
	SourcePlaylistUtils AdditionSource = "playlist_utils"
	SourceOutsideVotuna AdditionSource = "outside_votuna"
)

// TrackAddition is an append-only provenance ledger entry. The newest row by
// (added_at, id) for a track is its current provenance.
type TrackAddition struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuidv7()"                      json:"id"`
	PlaylistID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_track_additions_playlist_track" json:"playlistId"`
	ProviderTrackID string         `gorm:"type:text;not null;index:idx_track_additions_playlist_track" json:"providerTrackId"`
	Source          AdditionSource `gorm:"type:text;not null"                                         json:"source"`
	AddedAt         time.Time      `gorm:"type:timestamptz;not null"                                  json:"addedAt"`
	AddedByUserID   *uuid.UUID     `gorm:"type:uuid"                                                  json:"addedByUserId,omitempty"`
	SuggestionID    *uuid.UUID     `gorm:"type:uuid"                                                  json:"suggestionId,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"                                             json:"createdAt"`

	Playlist   *Playlist   `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"    json:"-"`
	AddedBy    *User       `gorm:"foreignKey:AddedByUserID;constraint:OnDelete:SET NULL" json:"-"`
	Suggestion *Suggestion `gorm:"foreignKey:SuggestionID;constraint:OnDelete:SET NULL"  json:"-"`
}

// Provenance is the closed set of ways a track can reach a playlist. Only the
// types in this file implement it.
type Provenance interface {
	Source() AdditionSource
	isProvenance()
}

type SuggestionProvenance struct {
	SuggestionID uuid.UUID
	AddedBy      *uuid.UUID
}

type PersonalAddProvenance struct {
	AddedBy *uuid.UUID
}

type PlaylistUtilsProvenance struct {
	AddedBy *uuid.UUID
}

type OutsideProvenance struct{}

func (SuggestionProvenance) Source() AdditionSource    { return SourceSuggestion }
func (PersonalAddProvenance) Source() AdditionSource   { return SourcePersonalAdd }
func (PlaylistUtilsProvenance) Source() AdditionSource { return SourcePlaylistUtils }
func (OutsideProvenance) Source() AdditionSource       { return SourceOutsideVotuna }

func (SuggestionProvenance) isProvenance()    {}
func (PersonalAddProvenance) isProvenance()   {}
func (PlaylistUtilsProvenance) isProvenance() {}
func (OutsideProvenance) isProvenance()       {}

func NewTrackAddition(
	playlistID uuid.UUID,
	providerTrackID string,
	provenance Provenance,
	addedAt time.Time,
) *TrackAddition {
	addition := &TrackAddition{
		PlaylistID:      playlistID,
		ProviderTrackID: providerTrackID,
		Source:          provenance.Source(),
		AddedAt:         addedAt,
	}

	switch p := provenance.(type) {
	case SuggestionProvenance:
		suggestionID := p.SuggestionID
		addition.SuggestionID = &suggestionID
		addition.AddedByUserID = p.AddedBy
	case PersonalAddProvenance:
		addition.AddedByUserID = p.AddedBy
	case PlaylistUtilsProvenance:
		addition.AddedByUserID = p.AddedBy
	case OutsideProvenance:
	}

	return addition
}

// Provenance decodes the stored row back into its variant. Rows written with a
// source this build does not know are reported as outside additions.
func (a *TrackAddition) Provenance() Provenance {
	switch a.Source {
	case SourceSuggestion:
		if a.SuggestionID == nil {
			return SuggestionProvenance{AddedBy: a.AddedByUserID}
		}
		return SuggestionProvenance{SuggestionID: *a.SuggestionID, AddedBy: a.AddedByUserID}
	case SourcePersonalAdd:
		return PersonalAddProvenance{AddedBy: a.AddedByUserID}
	case SourcePlaylistUtils:
		return PlaylistUtilsProvenance{AddedBy: a.AddedByUserID}
	default:
		return OutsideProvenance{}
	}
}
