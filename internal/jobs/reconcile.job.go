package jobs

import (
	"context"
	"votuna/internal/controllers/access"
	"votuna/internal/metrics"
	. "votuna/internal/models"
	"votuna/internal/repositories"
	"votuna/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SuggestionResolver is the slice of the suggestion engine the sweep drives.
type SuggestionResolver interface {
	ResolveIfAllVoted(ctx context.Context, suggestion *Suggestion) (*Suggestion, error)
	MarkAlreadyLive(ctx context.Context, suggestion *Suggestion) (bool, error)
}

// PendingReconciliationJob closes pending suggestions whose track already went
// live upstream and re-evaluates the rest against the current member set.
type PendingReconciliationJob struct {
	suggestionRepo repositories.SuggestionRepository
	access         *access.Resolver
	suggestions    SuggestionResolver
	db             *gorm.DB
	log            logger.Logger
	schedule       services.Schedule
}

func NewPendingReconciliationJob(
	repos repositories.Repository,
	resolver *access.Resolver,
	suggestions SuggestionResolver,
	db *gorm.DB,
	schedule services.Schedule,
) *PendingReconciliationJob {
	log := logger.New("pendingReconciliationJob")
	log.Info("Creating new pending reconciliation job", "schedule", schedule)

	return &PendingReconciliationJob{
		suggestionRepo: repos.Suggestion,
		access:         resolver,
		suggestions:    suggestions,
		db:             db,
		log:            log,
		schedule:       schedule,
	}
}

func (j *PendingReconciliationJob) Name() string {
	return "PendingSuggestionReconciliation"
}

func (j *PendingReconciliationJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *PendingReconciliationJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	pending, err := j.suggestionRepo.ListPending(ctx, j.db)
	if err != nil {
		return log.Err("failed to list pending suggestions", err)
	}
	if len(pending) == 0 {
		log.Debug("No pending suggestions to reconcile")
		return nil
	}

	order := []uuid.UUID{}
	byPlaylist := map[uuid.UUID][]*Suggestion{}
	for _, suggestion := range pending {
		if _, ok := byPlaylist[suggestion.PlaylistID]; !ok {
			order = append(order, suggestion.PlaylistID)
		}
		byPlaylist[suggestion.PlaylistID] = append(byPlaylist[suggestion.PlaylistID], suggestion)
	}

	var markedLive, resolved int
	for _, playlistID := range order {
		if err := ctx.Err(); err != nil {
			return log.Err("reconciliation interrupted", err)
		}
		live, settled := j.reconcilePlaylist(ctx, playlistID, byPlaylist[playlistID])
		markedLive += live
		resolved += settled
	}

	log.Info("Pending reconciliation completed",
		"pending", len(pending),
		"playlists", len(order),
		"markedLive", markedLive,
		"resolved", resolved)
	return nil
}

// reconcilePlaylist lists the live tracks once and walks the playlist's
// pending suggestions. Failures are logged per suggestion and never stop the
// sweep.
func (j *PendingReconciliationJob) reconcilePlaylist(
	ctx context.Context,
	playlistID uuid.UUID,
	pending []*Suggestion,
) (markedLive int, resolved int) {
	log := j.log.Function("reconcilePlaylist")

	playlist, err := j.access.Playlist(ctx, playlistID)
	if err != nil {
		log.Er("failed to load playlist, skipping", err, "playlistID", playlistID)
		return 0, 0
	}

	gateway, err := j.access.Gateway(ctx, playlist, true)
	if err != nil {
		log.Er("failed to build provider client, skipping", err, "playlistID", playlistID)
		return 0, 0
	}

	tracks, err := gateway.ListTracks(ctx, playlist.ProviderPlaylistID)
	if err != nil {
		log.Er("failed to list live tracks, skipping", err, "playlistID", playlistID)
		return 0, 0
	}

	live := make(map[string]bool, len(tracks))
	for _, track := range tracks {
		live[track.ProviderTrackID] = true
	}

	for _, suggestion := range pending {
		if live[suggestion.ProviderTrackID] {
			changed, err := j.suggestions.MarkAlreadyLive(ctx, suggestion)
			if err != nil {
				log.Er("failed to mark suggestion live", err, "suggestionID", suggestion.ID)
				continue
			}
			if changed {
				markedLive++
				metrics.ReconciledSuggestions.Inc()
			}
			continue
		}

		result, err := j.suggestions.ResolveIfAllVoted(ctx, suggestion)
		if err != nil {
			log.Er("failed to re-evaluate suggestion", err, "suggestionID", suggestion.ID)
			continue
		}
		if result != nil && !result.IsPending() {
			resolved++
		}
	}

	return markedLive, resolved
}
