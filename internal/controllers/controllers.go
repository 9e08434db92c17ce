package controllers

import (
	"time"
	"votuna/config"
	"votuna/internal/controllers/access"
	"votuna/internal/database"
	"votuna/internal/repositories"
	"votuna/internal/services"

	playlistController "votuna/internal/controllers/playlists"
	recommendationController "votuna/internal/controllers/recommendation"
	suggestionController "votuna/internal/controllers/suggestions"
)

type Controllers struct {
	Access         *access.Resolver
	Playlist       playlistController.PlaylistControllerInterface
	Suggestion     suggestionController.SuggestionControllerInterface
	Recommendation recommendationController.RecommendationControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	config config.Config,
	db database.DB,
) Controllers {
	resolver := access.New(repos, services.Provider, db.SQL)
	cacheTTL := time.Duration(config.RecommendationCacheMinutes) * time.Minute

	return Controllers{
		Access:     resolver,
		Playlist:   playlistController.New(repos, services.Transaction, resolver, db.SQL),
		Suggestion: suggestionController.New(repos, services.Transaction, resolver, db.SQL),
		Recommendation: recommendationController.New(
			repos,
			resolver,
			db.Cache.ClientAPI,
			cacheTTL,
			db.SQL,
		),
	}
}
