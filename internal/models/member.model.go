package models

import (
	"time"

	"github.com/google/uuid"
)

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

type PlaylistMember struct {
	BaseUUIDModel
	PlaylistID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_playlist_members_playlist_user" json:"playlistId"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_playlist_members_playlist_user" json:"userId"`
	Role       MemberRole `gorm:"type:text;not null;default:'member'"                              json:"role"`
	JoinedAt   time.Time  `gorm:"type:timestamptz;not null"                                        json:"joinedAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
