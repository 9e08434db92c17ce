package repositories

import (
	"context"
	"errors"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository interface {
	ListForSuggestion(ctx context.Context, tx *gorm.DB, suggestionID uuid.UUID) ([]*Reaction, error)
	// Get returns nil without error when the user has not reacted.
	Get(ctx context.Context, tx *gorm.DB, suggestionID, userID uuid.UUID) (*Reaction, error)
	Upsert(ctx context.Context, tx *gorm.DB, suggestionID, userID uuid.UUID, value ReactionValue) error
	Delete(ctx context.Context, tx *gorm.DB, suggestionID, userID uuid.UUID) error
}

type reactionRepository struct {
	log logger.Logger
}

func NewReactionRepository() ReactionRepository {
	return &reactionRepository{
		log: logger.New("reactionRepository"),
	}
}

func (r *reactionRepository) ListForSuggestion(
	ctx context.Context,
	tx *gorm.DB,
	suggestionID uuid.UUID,
) ([]*Reaction, error) {
	log := r.log.Function("ListForSuggestion")

	var reactions []*Reaction
	err := tx.WithContext(ctx).
		Where("suggestion_id = ?", suggestionID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, log.Err("failed to list reactions", err, "suggestionID", suggestionID)
	}

	return reactions, nil
}

func (r *reactionRepository) Get(
	ctx context.Context,
	tx *gorm.DB,
	suggestionID, userID uuid.UUID,
) (*Reaction, error) {
	log := r.log.Function("Get")

	reaction, err := gorm.G[Reaction](tx).
		Where("suggestion_id = ? AND user_id = ?", suggestionID, userID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, log.Err("failed to get reaction", err, "suggestionID", suggestionID, "userID", userID)
	}

	return &reaction, nil
}

// Upsert relies on the (suggestion_id, user_id) unique index so a concurrent
// first reaction from the same voter updates in place instead of double counting.
func (r *reactionRepository) Upsert(
	ctx context.Context,
	tx *gorm.DB,
	suggestionID, userID uuid.UUID,
	value ReactionValue,
) error {
	log := r.log.Function("Upsert")

	reaction := &Reaction{
		SuggestionID: suggestionID,
		UserID:       userID,
		Value:        value,
	}

	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "suggestion_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(reaction).Error
	if err != nil {
		return log.Err(
			"failed to upsert reaction",
			err,
			"suggestionID", suggestionID,
			"userID", userID,
			"value", value,
		)
	}

	return nil
}

func (r *reactionRepository) Delete(
	ctx context.Context,
	tx *gorm.DB,
	suggestionID, userID uuid.UUID,
) error {
	log := r.log.Function("Delete")

	_, err := gorm.G[Reaction](tx).
		Where("suggestion_id = ? AND user_id = ?", suggestionID, userID).
		Delete(ctx)
	if err != nil {
		return log.Err("failed to delete reaction", err, "suggestionID", suggestionID, "userID", userID)
	}

	return nil
}
