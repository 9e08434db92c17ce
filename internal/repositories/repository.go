package repositories

import (
	"votuna/internal/database"
)

type Repository struct {
	User                  UserRepository
	Playlist              PlaylistRepository
	Member                MemberRepository
	Settings              SettingsRepository
	Suggestion            SuggestionRepository
	Reaction              ReactionRepository
	TrackAddition         TrackAdditionRepository
	RecommendationDecline RecommendationDeclineRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:                  NewUserRepository(db.Cache.User),
		Playlist:              NewPlaylistRepository(),
		Member:                NewMemberRepository(),
		Settings:              NewSettingsRepository(),
		Suggestion:            NewSuggestionRepository(),
		Reaction:              NewReactionRepository(),
		TrackAddition:         NewTrackAdditionRepository(),
		RecommendationDecline: NewRecommendationDeclineRepository(),
	}
}
