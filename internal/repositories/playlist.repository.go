package repositories

import (
	"context"
	"errors"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPlaylistNotFound = errors.New("playlist not found")

type PlaylistRepository interface {
	Create(ctx context.Context, tx *gorm.DB, playlist *Playlist) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Playlist, error)
	GetByProviderPlaylistID(
		ctx context.Context,
		tx *gorm.DB,
		provider string,
		providerPlaylistID string,
	) (*Playlist, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*Playlist, error)
	ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*Playlist, error)
	Update(ctx context.Context, tx *gorm.DB, playlist *Playlist) error
}

type playlistRepository struct {
	log logger.Logger
}

func NewPlaylistRepository() PlaylistRepository {
	return &playlistRepository{
		log: logger.New("playlistRepository"),
	}
}

func (r *playlistRepository) Create(ctx context.Context, tx *gorm.DB, playlist *Playlist) error {
	log := r.log.Function("Create")

	if err := gorm.G[Playlist](tx).Create(ctx, playlist); err != nil {
		return log.Err(
			"failed to create playlist",
			err,
			"provider", playlist.Provider,
			"providerPlaylistID", playlist.ProviderPlaylistID,
		)
	}

	return nil
}

func (r *playlistRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Playlist, error) {
	log := r.log.Function("GetByID")

	playlist, err := gorm.G[Playlist](tx).Preload("Settings", nil).Where("id = ?", id).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, log.Err("failed to get playlist", err, "playlistID", id)
	}

	return &playlist, nil
}

func (r *playlistRepository) GetByProviderPlaylistID(
	ctx context.Context,
	tx *gorm.DB,
	provider string,
	providerPlaylistID string,
) (*Playlist, error) {
	log := r.log.Function("GetByProviderPlaylistID")

	playlist, err := gorm.G[Playlist](tx).
		Where("provider = ? AND provider_playlist_id = ?", provider, providerPlaylistID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, log.Err(
			"failed to get playlist by provider id",
			err,
			"provider", provider,
			"providerPlaylistID", providerPlaylistID,
		)
	}

	return &playlist, nil
}

func (r *playlistRepository) ListForUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) ([]*Playlist, error) {
	log := r.log.Function("ListForUser")

	var playlists []*Playlist
	err := tx.WithContext(ctx).
		Joins("JOIN playlist_members pm ON pm.playlist_id = playlists.id").
		Where("pm.user_id = ?", userID).
		Order("playlists.created_at DESC").
		Find(&playlists).Error
	if err != nil {
		return nil, log.Err("failed to list playlists for user", err, "userID", userID)
	}

	return playlists, nil
}

func (r *playlistRepository) ListByIDs(
	ctx context.Context,
	tx *gorm.DB,
	ids []uuid.UUID,
) ([]*Playlist, error) {
	log := r.log.Function("ListByIDs")

	if len(ids) == 0 {
		return []*Playlist{}, nil
	}

	var playlists []*Playlist
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&playlists).Error; err != nil {
		return nil, log.Err("failed to list playlists", err, "count", len(ids))
	}

	return playlists, nil
}

func (r *playlistRepository) Update(ctx context.Context, tx *gorm.DB, playlist *Playlist) error {
	log := r.log.Function("Update")

	err := tx.WithContext(ctx).
		Model(playlist).
		Select("title", "description", "image_url", "is_active", "last_synced_at", "provider_snapshot").
		Updates(playlist).Error
	if err != nil {
		return log.Err("failed to update playlist", err, "playlistID", playlist.ID)
	}

	return nil
}
