package repositories

import (
	"context"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackAdditionRepository is append-only: there is no update or delete.
type TrackAdditionRepository interface {
	Append(ctx context.Context, tx *gorm.DB, addition *TrackAddition) error
	AppendBatch(ctx context.Context, tx *gorm.DB, additions []*TrackAddition) error
	// ListLatestForTracks returns the newest entry by (added_at, id) per track id.
	ListLatestForTracks(
		ctx context.Context,
		tx *gorm.DB,
		playlistID uuid.UUID,
		trackIDs []string,
	) (map[string]*TrackAddition, error)
}

type trackAdditionRepository struct {
	log logger.Logger
}

func NewTrackAdditionRepository() TrackAdditionRepository {
	return &trackAdditionRepository{
		log: logger.New("trackAdditionRepository"),
	}
}

func (r *trackAdditionRepository) Append(ctx context.Context, tx *gorm.DB, addition *TrackAddition) error {
	log := r.log.Function("Append")

	if err := gorm.G[TrackAddition](tx).Create(ctx, addition); err != nil {
		return log.Err(
			"failed to append track addition",
			err,
			"playlistID", addition.PlaylistID,
			"providerTrackID", addition.ProviderTrackID,
			"source", addition.Source,
		)
	}

	return nil
}

func (r *trackAdditionRepository) AppendBatch(
	ctx context.Context,
	tx *gorm.DB,
	additions []*TrackAddition,
) error {
	log := r.log.Function("AppendBatch")

	if len(additions) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).CreateInBatches(additions, 100).Error; err != nil {
		return log.Err("failed to append track additions", err, "count", len(additions))
	}

	return nil
}

func (r *trackAdditionRepository) ListLatestForTracks(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
	trackIDs []string,
) (map[string]*TrackAddition, error) {
	log := r.log.Function("ListLatestForTracks")

	latest := make(map[string]*TrackAddition, len(trackIDs))
	if len(trackIDs) == 0 {
		return latest, nil
	}

	var additions []*TrackAddition
	err := tx.WithContext(ctx).
		Where("playlist_id = ? AND provider_track_id IN ?", playlistID, trackIDs).
		Order("added_at DESC").
		Order("id DESC").
		Find(&additions).Error
	if err != nil {
		return nil, log.Err("failed to list track additions", err, "playlistID", playlistID)
	}

	for _, addition := range additions {
		if _, seen := latest[addition.ProviderTrackID]; seen {
			continue
		}
		latest[addition.ProviderTrackID] = addition
	}

	return latest, nil
}
