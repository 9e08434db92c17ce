package models

import (
	"github.com/google/uuid"
)

type TieBreakMode string

const (
	TieBreakAdd    TieBreakMode = "add"
	TieBreakReject TieBreakMode = "reject"
)

const (
	DefaultRequiredVotePercent = 60
	DefaultTieBreakMode        = TieBreakAdd
)

func (m TieBreakMode) Valid() bool {
	return m == TieBreakAdd || m == TieBreakReject
}

type PlaylistSettings struct {
	BaseUUIDModel
	PlaylistID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"                                                    json:"playlistId"`
	RequiredVotePercent int          `gorm:"type:int;not null;default:60;check:chk_required_vote_percent,required_vote_percent BETWEEN 1 AND 100" json:"requiredVotePercent"`
	TieBreakMode        TieBreakMode `gorm:"type:text;not null;default:'add'"                                                  json:"tieBreakMode"`
}

func NewDefaultSettings(playlistID uuid.UUID) *PlaylistSettings {
	return &PlaylistSettings{
		PlaylistID:          playlistID,
		RequiredVotePercent: DefaultRequiredVotePercent,
		TieBreakMode:        DefaultTieBreakMode,
	}
}
