package repositories

import (
	"context"
	"errors"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSettingsNotFound = errors.New("playlist settings not found")

type SettingsRepository interface {
	Create(ctx context.Context, tx *gorm.DB, settings *PlaylistSettings) error
	GetByPlaylistID(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) (*PlaylistSettings, error)
	Update(ctx context.Context, tx *gorm.DB, settings *PlaylistSettings) error
}

type settingsRepository struct {
	log logger.Logger
}

func NewSettingsRepository() SettingsRepository {
	return &settingsRepository{
		log: logger.New("settingsRepository"),
	}
}

func (r *settingsRepository) Create(ctx context.Context, tx *gorm.DB, settings *PlaylistSettings) error {
	log := r.log.Function("Create")

	if err := gorm.G[PlaylistSettings](tx).Create(ctx, settings); err != nil {
		return log.Err("failed to create playlist settings", err, "playlistID", settings.PlaylistID)
	}

	return nil
}

func (r *settingsRepository) GetByPlaylistID(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
) (*PlaylistSettings, error) {
	log := r.log.Function("GetByPlaylistID")

	settings, err := gorm.G[PlaylistSettings](tx).Where("playlist_id = ?", playlistID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, log.Err("failed to get playlist settings", err, "playlistID", playlistID)
	}

	return &settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, tx *gorm.DB, settings *PlaylistSettings) error {
	log := r.log.Function("Update")

	err := tx.WithContext(ctx).
		Model(settings).
		Select("required_vote_percent", "tie_break_mode").
		Updates(settings).Error
	if err != nil {
		return log.Err("failed to update playlist settings", err, "playlistID", settings.PlaylistID)
	}

	return nil
}
