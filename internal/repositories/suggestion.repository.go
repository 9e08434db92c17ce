package repositories

import (
	"context"
	"errors"
	"time"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrDuplicatePending is returned by Create when another pending suggestion
	// for the same playlist and track won the race.
	ErrDuplicatePending = errors.New("pending suggestion already exists for track")
)

type SuggestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, suggestion *Suggestion) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Suggestion, error)
	GetPendingByTrack(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID, trackID string) (*Suggestion, error)
	GetLatestRejectedByTrack(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID, trackID string) (*Suggestion, error)
	ListForPlaylist(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID, status *SuggestionStatus) ([]*Suggestion, error)
	ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*Suggestion, error)
	ListPending(ctx context.Context, tx *gorm.DB) ([]*Suggestion, error)
	ListPendingTrackIDs(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) ([]string, error)
	CountBySuggester(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) (map[uuid.UUID]int, error)
	// ResolvePending writes the terminal state on suggestion only if the stored
	// row is still pending. It reports whether this call made the transition.
	ResolvePending(ctx context.Context, tx *gorm.DB, suggestion *Suggestion) (bool, error)
	CancelPendingForPlaylist(
		ctx context.Context,
		tx *gorm.DB,
		playlistID uuid.UUID,
		actorID uuid.UUID,
		at time.Time,
	) (int, error)
}

type suggestionRepository struct {
	log logger.Logger
}

func NewSuggestionRepository() SuggestionRepository {
	return &suggestionRepository{
		log: logger.New("suggestionRepository"),
	}
}

func (r *suggestionRepository) Create(ctx context.Context, tx *gorm.DB, suggestion *Suggestion) error {
	log := r.log.Function("Create")

	if err := gorm.G[Suggestion](tx).Create(ctx, suggestion); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePending
		}
		return log.Err(
			"failed to create suggestion",
			err,
			"playlistID", suggestion.PlaylistID,
			"providerTrackID", suggestion.ProviderTrackID,
		)
	}

	return nil
}

func (r *suggestionRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Suggestion, error) {
	log := r.log.Function("GetByID")

	suggestion, err := gorm.G[Suggestion](tx).Where("id = ?", id).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, log.Err("failed to get suggestion", err, "suggestionID", id)
	}

	return &suggestion, nil
}

func (r *suggestionRepository) GetPendingByTrack(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
	trackID string,
) (*Suggestion, error) {
	return r.firstByTrack(ctx, tx, playlistID, trackID, SuggestionPending, "created_at DESC")
}

func (r *suggestionRepository) GetLatestRejectedByTrack(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
	trackID string,
) (*Suggestion, error) {
	return r.firstByTrack(ctx, tx, playlistID, trackID, SuggestionRejected, "updated_at DESC")
}

func (r *suggestionRepository) firstByTrack(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
	trackID string,
	status SuggestionStatus,
	order string,
) (*Suggestion, error) {
	log := r.log.Function("firstByTrack")

	suggestion, err := gorm.G[Suggestion](tx).
		Where("playlist_id = ? AND provider_track_id = ? AND status = ?", playlistID, trackID, status).
		Order(order).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, log.Err(
			"failed to get suggestion by track",
			err,
			"playlistID", playlistID,
			"providerTrackID", trackID,
			"status", status,
		)
	}

	return &suggestion, nil
}

func (r *suggestionRepository) ListForPlaylist(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
	status *SuggestionStatus,
) ([]*Suggestion, error) {
	log := r.log.Function("ListForPlaylist")

	query := tx.WithContext(ctx).Where("playlist_id = ?", playlistID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var suggestions []*Suggestion
	if err := query.Order("created_at DESC").Find(&suggestions).Error; err != nil {
		return nil, log.Err("failed to list suggestions", err, "playlistID", playlistID)
	}

	return suggestions, nil
}

func (r *suggestionRepository) ListByIDs(
	ctx context.Context,
	tx *gorm.DB,
	ids []uuid.UUID,
) (map[uuid.UUID]*Suggestion, error) {
	log := r.log.Function("ListByIDs")

	result := make(map[uuid.UUID]*Suggestion, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	suggestions, err := gorm.G[Suggestion](tx).Where("id IN ?", ids).Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list suggestions by id", err, "count", len(ids))
	}

	for i := range suggestions {
		result[suggestions[i].ID] = &suggestions[i]
	}

	return result, nil
}

func (r *suggestionRepository) ListPending(ctx context.Context, tx *gorm.DB) ([]*Suggestion, error) {
	log := r.log.Function("ListPending")

	var suggestions []*Suggestion
	err := tx.WithContext(ctx).
		Where("status = ?", SuggestionPending).
		Order("playlist_id ASC").
		Order("created_at ASC").
		Find(&suggestions).Error
	if err != nil {
		return nil, log.Err("failed to list pending suggestions", err)
	}

	return suggestions, nil
}

func (r *suggestionRepository) ListPendingTrackIDs(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
) ([]string, error) {
	log := r.log.Function("ListPendingTrackIDs")

	var trackIDs []string
	err := tx.WithContext(ctx).
		Model(&Suggestion{}).
		Where("playlist_id = ? AND status = ?", playlistID, SuggestionPending).
		Pluck("provider_track_id", &trackIDs).Error
	if err != nil {
		return nil, log.Err("failed to list pending track ids", err, "playlistID", playlistID)
	}

	return trackIDs, nil
}

func (r *suggestionRepository) CountBySuggester(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
) (map[uuid.UUID]int, error) {
	log := r.log.Function("CountBySuggester")

	var rows []struct {
		SuggestedByUserID uuid.UUID
		Total             int
	}
	err := tx.WithContext(ctx).
		Model(&Suggestion{}).
		Select("suggested_by_user_id, COUNT(id) AS total").
		Where("playlist_id = ? AND suggested_by_user_id IS NOT NULL", playlistID).
		Group("suggested_by_user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to count suggestions by suggester", err, "playlistID", playlistID)
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.SuggestedByUserID] = row.Total
	}

	return counts, nil
}

func (r *suggestionRepository) ResolvePending(
	ctx context.Context,
	tx *gorm.DB,
	suggestion *Suggestion,
) (bool, error) {
	log := r.log.Function("ResolvePending")

	result := tx.WithContext(ctx).
		Model(&Suggestion{}).
		Where("id = ? AND status = ?", suggestion.ID, SuggestionPending).
		Updates(map[string]any{
			"status":              suggestion.Status,
			"resolution_reason":   suggestion.ResolutionReason,
			"resolved_at":         suggestion.ResolvedAt,
			"resolved_by_user_id": suggestion.ResolvedByUserID,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, log.Err(
			"failed to resolve suggestion",
			result.Error,
			"suggestionID", suggestion.ID,
			"status", suggestion.Status,
		)
	}

	return result.RowsAffected == 1, nil
}

func (r *suggestionRepository) CancelPendingForPlaylist(
	ctx context.Context,
	tx *gorm.DB,
	playlistID uuid.UUID,
	actorID uuid.UUID,
	at time.Time,
) (int, error) {
	log := r.log.Function("CancelPendingForPlaylist")

	result := tx.WithContext(ctx).
		Model(&Suggestion{}).
		Where("playlist_id = ? AND status = ?", playlistID, SuggestionPending).
		Updates(map[string]any{
			"status":              SuggestionCanceled,
			"resolution_reason":   ReasonCanceledByOwner,
			"resolved_at":         at,
			"resolved_by_user_id": actorID,
			"updated_at":          at,
		})
	if result.Error != nil {
		return 0, log.Err("failed to cancel pending suggestions", result.Error, "playlistID", playlistID)
	}

	return int(result.RowsAffected), nil
}
