package repositories

import (
	"context"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecommendationDeclineRepository interface {
	// Upsert refreshes declined_at when the user already declined the track.
	Upsert(ctx context.Context, tx *gorm.DB, decline *RecommendationDecline) error
	ListTrackIDs(ctx context.Context, tx *gorm.DB, playlistID, userID uuid.UUID) ([]string, error)
}

type recommendationDeclineRepository struct {
	log logger.Logger
}

func NewRecommendationDeclineRepository() RecommendationDeclineRepository {
	return &recommendationDeclineRepository{
		log: logger.New("recommendationDeclineRepository"),
	}
}

func (r *recommendationDeclineRepository) Upsert(
	ctx context.Context,
	tx *gorm.DB,
	decline *RecommendationDecline,
) error {
	log := r.log.Function("Upsert")

	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "playlist_id"},
				{Name: "user_id"},
				{Name: "provider_track_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"declined_at", "updated_at"}),
		}).
		Create(decline).Error
	if err != nil {
		return log.Err(
			"failed to upsert recommendation decline",
			err,
			"playlistID", decline.PlaylistID,
			"userID", decline.UserID,
			"providerTrackID", decline.ProviderTrackID,
		)
	}

	return nil
}

func (r *recommendationDeclineRepository) ListTrackIDs(
	ctx context.Context,
	tx *gorm.DB,
	playlistID, userID uuid.UUID,
) ([]string, error) {
	log := r.log.Function("ListTrackIDs")

	var trackIDs []string
	err := tx.WithContext(ctx).
		Model(&RecommendationDecline{}).
		Where("playlist_id = ? AND user_id = ?", playlistID, userID).
		Pluck("provider_track_id", &trackIDs).Error
	if err != nil {
		return nil, log.Err("failed to list declined tracks", err, "playlistID", playlistID, "userID", userID)
	}

	return trackIDs, nil
}
