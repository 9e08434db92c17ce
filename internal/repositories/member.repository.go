package repositories

import (
	"context"
	"errors"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("playlist member not found")

type MemberRepository interface {
	Create(ctx context.Context, tx *gorm.DB, member *PlaylistMember) error
	GetMember(ctx context.Context, tx *gorm.DB, playlistID, userID uuid.UUID) (*PlaylistMember, error)
	// ListMembers returns every member including the owner, oldest first, with
	// the User preloaded.
	ListMembers(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) ([]*PlaylistMember, error)
	HasNonOwnerMembers(ctx context.Context, tx *gorm.DB, playlistID, ownerID uuid.UUID) (bool, error)
	RemoveNonOwnerMembers(ctx context.Context, tx *gorm.DB, playlistID, ownerID uuid.UUID) (int, error)
}

type memberRepository struct {
	log logger.Logger
}

func NewMemberRepository() MemberRepository {
	return &memberRepository{
		log: logger.New("memberRepository"),
	}
}

func (r *memberRepository) Create(ctx context.Context, tx *gorm.DB, member *PlaylistMember) error {
	log := r.log.Function("Create")

	if err := gorm.G[PlaylistMember](tx).Create(ctx, member); err != nil {
		return log.Err(
			"failed to create playlist member",
			err,
			"playlistID", member.PlaylistID,
			"userID", member.UserID,
		)
	}

	return nil
}

func (r *memberRepository) GetMember(
	ctx context.Context,
	tx *gorm.DB,
	playlistID, userID uuid.UUID,
) (*PlaylistMember, error) {
	log := r.log.Function("GetMember")

	member, err := gorm.G[PlaylistMember](tx).
		Where("playlist_id = ? AND user_id = ?", playlistID, userID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, log.Err("failed to get member", err, "playlistID", playlistID, "userID", userID)
	}

	return &member, nil
}

func (r *memberRepository) ListMembers(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
) ([]*PlaylistMember, error) {
	log := r.log.Function("ListMembers")

	var members []*PlaylistMember
	err := tx.WithContext(ctx).
		Preload("User").
		Where("playlist_id = ?", playlistID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, log.Err("failed to list members", err, "playlistID", playlistID)
	}

	return members, nil
}

func (r *memberRepository) HasNonOwnerMembers(
	ctx context.Context,
	tx *gorm.DB,
	playlistID, ownerID uuid.UUID,
) (bool, error) {
	log := r.log.Function("HasNonOwnerMembers")

	var count int64
	err := tx.WithContext(ctx).
		Model(&PlaylistMember{}).
		Where("playlist_id = ? AND user_id <> ?", playlistID, ownerID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, log.Err("failed to count collaborators", err, "playlistID", playlistID)
	}

	return count > 0, nil
}

func (r *memberRepository) RemoveNonOwnerMembers(
	ctx context.Context,
	tx *gorm.DB,
	playlistID, ownerID uuid.UUID,
) (int, error) {
	log := r.log.Function("RemoveNonOwnerMembers")

	rows, err := gorm.G[PlaylistMember](tx).
		Where("playlist_id = ? AND user_id <> ?", playlistID, ownerID).
		Delete(ctx)
	if err != nil {
		return 0, log.Err("failed to remove collaborators", err, "playlistID", playlistID)
	}

	return rows, nil
}
