package seed

import (
	"errors"
	"time"
	"votuna/config"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

func stringPtr(s string) *string {
	return &s
}

// Seed creates a small collaborative playlist with one pending suggestion so a
// fresh development database has something to vote on. Provider tokens are
// left blank; sign in through the provider to get a working one.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data", "environment", config.Environment)

	users := []*User{
		{
			AuthProvider:   ProviderSoundCloud,
			ProviderUserID: "votuna-owner",
			DisplayName:    "Playlist Owner",
			Email:          stringPtr("owner@example.com"),
		},
		{
			AuthProvider:   ProviderSoundCloud,
			ProviderUserID: "votuna-member",
			DisplayName:    "Collaborator",
			Email:          stringPtr("member@example.com"),
		},
	}

	for _, user := range users {
		err := db.Where("auth_provider = ? AND provider_user_id = ?", user.AuthProvider, user.ProviderUserID).
			First(user).Error
		if err == nil {
			log.Info("User already exists", "providerUserID", user.ProviderUserID)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return log.Err("failed to look up user", err, "providerUserID", user.ProviderUserID)
		}
		if err := db.Create(user).Error; err != nil {
			return log.Err("failed to create user", err, "providerUserID", user.ProviderUserID)
		}
	}

	owner, member := users[0], users[1]

	var existing Playlist
	err := db.Where("provider = ? AND provider_playlist_id = ?", ProviderSoundCloud, "seed-playlist").
		First(&existing).Error
	if err == nil {
		log.Info("Seed playlist already exists", "playlistID", existing.ID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return log.Err("failed to look up seed playlist", err)
	}

	now := time.Now().UTC()
	return db.Transaction(func(tx *gorm.DB) error {
		playlist := &Playlist{
			OwnerUserID:        owner.ID,
			Provider:           ProviderSoundCloud,
			ProviderPlaylistID: "seed-playlist",
			Title:              "Seeded Collaborative Mix",
			IsActive:           true,
		}
		if err := tx.Create(playlist).Error; err != nil {
			return log.Err("failed to create playlist", err)
		}

		if err := tx.Create(NewDefaultSettings(playlist.ID)).Error; err != nil {
			return log.Err("failed to create settings", err)
		}

		members := []*PlaylistMember{
			{PlaylistID: playlist.ID, UserID: owner.ID, Role: MemberRoleOwner, JoinedAt: now},
			{PlaylistID: playlist.ID, UserID: member.ID, Role: MemberRoleMember, JoinedAt: now},
		}
		if err := tx.Create(&members).Error; err != nil {
			return log.Err("failed to create members", err)
		}

		suggestion := &Suggestion{
			PlaylistID:        playlist.ID,
			ProviderTrackID:   "seed-track",
			TrackTitle:        stringPtr("Seed Track"),
			TrackArtist:       stringPtr("Seed Artist"),
			SuggestedByUserID: &member.ID,
			Status:            SuggestionPending,
		}
		if err := tx.Create(suggestion).Error; err != nil {
			return log.Err("failed to create suggestion", err)
		}

		reaction := &Reaction{SuggestionID: suggestion.ID, UserID: member.ID, Value: ReactionUp}
		if err := tx.Create(reaction).Error; err != nil {
			return log.Err("failed to create reaction", err)
		}

		log.Info("Seeded playlist", "playlistID", playlist.ID, "suggestionID", suggestion.ID)
		return nil
	})
}
