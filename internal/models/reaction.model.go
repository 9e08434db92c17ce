package models

import (
	"github.com/google/uuid"
)

type ReactionValue string

const (
	ReactionUp   ReactionValue = "up"
	ReactionDown ReactionValue = "down"
)

func (r ReactionValue) Valid() bool {
	return r == ReactionUp || r == ReactionDown
}

// Reaction is one voter's up/down on a suggestion, unique per (suggestion, user).
type Reaction struct {
	BaseUUIDModel
	SuggestionID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_reactions_suggestion_user" json:"suggestionId"`
	UserID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_reactions_suggestion_user" json:"userId"`
	Value        ReactionValue `gorm:"type:text;not null"                                                     json:"value"`

	Suggestion *Suggestion `gorm:"foreignKey:SuggestionID;constraint:OnDelete:CASCADE" json:"-"`
	User       *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"       json:"-"`
}

func (Reaction) TableName() string {
	return "suggestion_reactions"
}
