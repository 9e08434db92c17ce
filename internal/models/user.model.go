package models

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	BaseUUIDModel
	AuthProvider   string     `gorm:"type:text;not null;uniqueIndex:idx_users_provider_identity" json:"authProvider"`
	ProviderUserID string     `gorm:"type:text;not null;uniqueIndex:idx_users_provider_identity" json:"providerUserId"`
	Email          *string    `gorm:"type:text"                                                 json:"email,omitempty"`
	FirstName      string     `gorm:"type:text"                                                 json:"firstName"`
	DisplayName    string     `gorm:"type:text"                                                 json:"displayName"`
	AvatarURL      *string    `gorm:"type:text"                                                 json:"avatarUrl,omitempty"`
	AccessToken    string     `gorm:"type:text"                                                 json:"-"`
	TokenExpiresAt *time.Time `gorm:"type:timestamptz"                                          json:"-"`
	LastLoginAt    *time.Time `gorm:"type:timestamptz"                                          json:"lastLoginAt,omitempty"`
}

// Name returns the best available human label for the user.
func (u *User) Name() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) != "" {
		return strings.TrimSpace(*u.Email)
	}
	if id := strings.TrimSpace(u.ProviderUserID); id != "" {
		return id
	}
	return fmt.Sprintf("User %s", u.ID)
}

func (u *User) HasProviderToken() bool {
	return strings.TrimSpace(u.AccessToken) != ""
}

// ProfileURL links to the user's public provider profile when one exists.
func (u *User) ProfileURL() *string {
	id := strings.TrimSpace(u.ProviderUserID)
	if id == "" || u.AuthProvider != ProviderSoundCloud {
		return nil
	}
	url := "https://soundcloud.com/" + id
	return &url
}
