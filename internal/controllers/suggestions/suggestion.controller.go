package suggestionController

import (
	"context"
	"errors"
	"time"
	"votuna/internal/controllers/access"
	"votuna/internal/metrics"
	. "votuna/internal/models"
	"votuna/internal/repositories"
	"votuna/internal/services"
	"votuna/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SuggestionController struct {
	suggestionRepo    repositories.SuggestionRepository
	reactionRepo      repositories.ReactionRepository
	memberRepo        repositories.MemberRepository
	settingsRepo      repositories.SettingsRepository
	trackAdditionRepo repositories.TrackAdditionRepository
	access            *access.Resolver
	transaction       services.Transactor
	db                *gorm.DB
	now               func() time.Time
	log               logger.Logger
}

type SuggestionControllerInterface interface {
	CreateOrMerge(
		ctx context.Context,
		user *User,
		playlistID uuid.UUID,
		request CreateRequest,
	) (*SuggestionView, error)
	// SetReaction toggles: sending the value the user already has clears it, and
	// a nil reaction always clears.
	SetReaction(
		ctx context.Context,
		user *User,
		suggestionID uuid.UUID,
		reaction *ReactionValue,
	) (*SuggestionView, error)
	Cancel(ctx context.Context, user *User, suggestionID uuid.UUID) (*SuggestionView, error)
	ForceAdd(ctx context.Context, user *User, suggestionID uuid.UUID) (*SuggestionView, error)
	List(
		ctx context.Context,
		user *User,
		playlistID uuid.UUID,
		status *SuggestionStatus,
	) ([]*SuggestionView, error)
	ResolveIfAllVoted(ctx context.Context, suggestion *Suggestion) (*Suggestion, error)
	MarkAlreadyLive(ctx context.Context, suggestion *Suggestion) (bool, error)
}

// CreateRequest names the track to suggest. AllowResuggest confirms a track
// that was rejected before.
type CreateRequest struct {
	Track          access.TrackRef
	AllowResuggest bool
}

func New(
	repos repositories.Repository,
	transaction services.Transactor,
	resolver *access.Resolver,
	db *gorm.DB,
) SuggestionControllerInterface {
	return &SuggestionController{
		suggestionRepo:    repos.Suggestion,
		reactionRepo:      repos.Reaction,
		memberRepo:        repos.Member,
		settingsRepo:      repos.Settings,
		trackAdditionRepo: repos.TrackAddition,
		access:            resolver,
		transaction:       transaction,
		db:                db,
		now:               func() time.Time { return time.Now().UTC() },
		log:               logger.New("suggestionController"),
	}
}

func (c *SuggestionController) CreateOrMerge(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	request CreateRequest,
) (*SuggestionView, error) {
	log := c.log.TraceFromContext(ctx).Function("CreateOrMerge")

	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	playlist := playlistAccess.Playlist

	collaborative, err := c.access.IsCollaborative(ctx, playlist)
	if err != nil {
		return nil, err
	}
	if !collaborative {
		return nil, types.NewValidation("Suggestions are disabled for personal playlists").
			WithCode(types.CodePersonalSuggestionsDisabled)
	}

	gateway, err := c.access.Gateway(ctx, playlist, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}

	track, err := request.Track.Resolve(ctx, gateway, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}

	if err := access.EnsureNotLive(ctx, gateway, playlist, track.ProviderTrackID, playlistAccess.IsOwner); err != nil {
		return nil, err
	}

	existing, err := c.suggestionRepo.GetPendingByTrack(ctx, c.db, playlist.ID, track.ProviderTrackID)
	if err == nil {
		return c.merge(ctx, playlistAccess, existing)
	}
	if !errors.Is(err, repositories.ErrSuggestionNotFound) {
		return nil, log.Err("failed to look up pending suggestion", err, "playlistID", playlist.ID)
	}

	if !request.AllowResuggest {
		_, err := c.suggestionRepo.GetLatestRejectedByTrack(ctx, c.db, playlist.ID, track.ProviderTrackID)
		if err == nil {
			return nil, types.NewConflict("Track was previously rejected. Confirm to suggest it again.").
				WithCode(types.CodeTrackPreviouslyRejected)
		}
		if !errors.Is(err, repositories.ErrSuggestionNotFound) {
			return nil, log.Err("failed to look up rejected suggestion", err, "playlistID", playlist.ID)
		}
	}

	suggestion := &Suggestion{
		PlaylistID:        playlist.ID,
		ProviderTrackID:   track.ProviderTrackID,
		TrackArtist:       track.Artist,
		TrackArtworkURL:   track.ArtworkURL,
		TrackURL:          track.URL,
		SuggestedByUserID: &user.ID,
		Status:            SuggestionPending,
	}
	if track.Title != "" {
		title := track.Title
		suggestion.TrackTitle = &title
	}

	err = c.transaction.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		if err := c.suggestionRepo.Create(txCtx, tx, suggestion); err != nil {
			return err
		}
		return c.reactionRepo.Upsert(txCtx, tx, suggestion.ID, user.ID, ReactionUp)
	})
	if errors.Is(err, repositories.ErrDuplicatePending) {
		// Lost a race with another suggester; fold into their row.
		existing, err := c.suggestionRepo.GetPendingByTrack(ctx, c.db, playlist.ID, track.ProviderTrackID)
		if err != nil {
			return nil, log.Err("failed to reload pending suggestion after duplicate", err, "playlistID", playlist.ID)
		}
		return c.merge(ctx, playlistAccess, existing)
	}
	if err != nil {
		return nil, log.Err("failed to create suggestion", err, "playlistID", playlist.ID)
	}

	log.Info("suggestion created", "suggestionID", suggestion.ID, "playlistID", playlist.ID, "trackID", suggestion.ProviderTrackID)

	resolved, err := c.resolve(ctx, playlist, suggestion, &user.ID, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}
	return c.view(ctx, playlist, resolved, user.ID)
}

// merge turns a repeat suggestion into an upvote on the pending row.
func (c *SuggestionController) merge(
	ctx context.Context,
	playlistAccess *access.PlaylistAccess,
	existing *Suggestion,
) (*SuggestionView, error) {
	log := c.log.TraceFromContext(ctx).Function("merge")

	actorID := playlistAccess.Actor.ID
	// Written outside the acceptance transaction: the vote is kept even if the provider add fails.
	if err := c.reactionRepo.Upsert(ctx, c.db, existing.ID, actorID, ReactionUp); err != nil {
		return nil, log.Err("failed to upvote pending suggestion", err, "suggestionID", existing.ID)
	}

	resolved, err := c.resolve(ctx, playlistAccess.Playlist, existing, &actorID, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}
	return c.view(ctx, playlistAccess.Playlist, resolved, actorID)
}

func (c *SuggestionController) SetReaction(
	ctx context.Context,
	user *User,
	suggestionID uuid.UUID,
	reaction *ReactionValue,
) (*SuggestionView, error) {
	log := c.log.TraceFromContext(ctx).Function("SetReaction")

	if reaction != nil && !reaction.Valid() {
		return nil, types.NewValidation("Reaction must be up or down")
	}

	suggestion, err := c.load(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	playlistAccess, err := c.access.ForMember(ctx, suggestion.PlaylistID, user)
	if err != nil {
		return nil, err
	}

	if !suggestion.IsPending() {
		return c.view(ctx, playlistAccess.Playlist, suggestion, user.ID)
	}

	existing, err := c.reactionRepo.Get(ctx, c.db, suggestion.ID, user.ID)
	if err != nil {
		return nil, log.Err("failed to load reaction", err, "suggestionID", suggestion.ID)
	}

	// Written outside the acceptance transaction: the vote is kept even if the provider add fails.
	shouldClear := reaction == nil || (existing != nil && existing.Value == *reaction)
	if shouldClear {
		if existing != nil {
			if err := c.reactionRepo.Delete(ctx, c.db, suggestion.ID, user.ID); err != nil {
				return nil, log.Err("failed to clear reaction", err, "suggestionID", suggestion.ID)
			}
		}
	} else if err := c.reactionRepo.Upsert(ctx, c.db, suggestion.ID, user.ID, *reaction); err != nil {
		return nil, log.Err("failed to save reaction", err, "suggestionID", suggestion.ID)
	}

	resolved, err := c.resolve(ctx, playlistAccess.Playlist, suggestion, &user.ID, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}
	return c.view(ctx, playlistAccess.Playlist, resolved, user.ID)
}

func (c *SuggestionController) Cancel(
	ctx context.Context,
	user *User,
	suggestionID uuid.UUID,
) (*SuggestionView, error) {
	log := c.log.TraceFromContext(ctx).Function("Cancel")

	suggestion, err := c.load(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	playlistAccess, err := c.access.ForMember(ctx, suggestion.PlaylistID, user)
	if err != nil {
		return nil, err
	}

	if !suggestion.IsPending() {
		return nil, types.NewConflict("Only pending suggestions can be canceled")
	}

	isSuggester := suggestion.WasSuggestedBy(user.ID)
	if !isSuggester && !playlistAccess.IsOwner {
		return nil, types.NewPermission("Only the suggester or playlist owner can cancel this suggestion")
	}

	reason := ReasonCanceledByOwner
	if isSuggester {
		reason = ReasonCanceledBySuggester
	}

	canceled := *suggestion
	canceled.Resolve(SuggestionCanceled, reason, &user.ID, c.now())

	changed, err := c.suggestionRepo.ResolvePending(ctx, c.db, &canceled)
	if err != nil {
		return nil, log.Err("failed to cancel suggestion", err, "suggestionID", suggestion.ID)
	}
	if !changed {
		return nil, types.NewConflict("Only pending suggestions can be canceled")
	}

	metrics.RecordResolution(string(SuggestionCanceled), string(reason))
	log.Info("suggestion canceled", "suggestionID", suggestion.ID, "reason", reason)

	return c.view(ctx, playlistAccess.Playlist, &canceled, user.ID)
}

func (c *SuggestionController) ForceAdd(
	ctx context.Context,
	user *User,
	suggestionID uuid.UUID,
) (*SuggestionView, error) {
	suggestion, err := c.load(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	playlistAccess, err := c.access.ForOwner(ctx, suggestion.PlaylistID, user)
	if err != nil {
		return nil, err
	}

	if !suggestion.IsPending() {
		return nil, types.NewConflict("Only pending suggestions can be force-added")
	}

	accepted, _, err := c.accept(ctx, playlistAccess.Playlist, suggestion, ReasonForceAdd, &user.ID, true)
	if err != nil {
		return nil, err
	}
	return c.view(ctx, playlistAccess.Playlist, accepted, user.ID)
}

func (c *SuggestionController) List(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	status *SuggestionStatus,
) ([]*SuggestionView, error) {
	log := c.log.TraceFromContext(ctx).Function("List")

	if status != nil && !status.Valid() {
		return nil, types.NewValidation("Unknown suggestion status")
	}

	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}

	suggestions, err := c.suggestionRepo.ListForPlaylist(ctx, c.db, playlistID, status)
	if err != nil {
		return nil, log.Err("failed to list suggestions", err, "playlistID", playlistID)
	}

	members, err := c.memberRepo.ListMembers(ctx, c.db, playlistID)
	if err != nil {
		return nil, log.Err("failed to list members", err, "playlistID", playlistID)
	}

	views := make([]*SuggestionView, 0, len(suggestions))
	for _, suggestion := range suggestions {
		reactions, err := c.reactionRepo.ListForSuggestion(ctx, c.db, suggestion.ID)
		if err != nil {
			return nil, log.Err("failed to list reactions", err, "suggestionID", suggestion.ID)
		}
		views = append(views, buildView(playlistAccess.Playlist, suggestion, members, reactions, user.ID))
	}

	return views, nil
}

// ResolveIfAllVoted re-evaluates a suggestion outside any user request, with
// no acting user.
func (c *SuggestionController) ResolveIfAllVoted(ctx context.Context, suggestion *Suggestion) (*Suggestion, error) {
	playlist, err := c.access.Playlist(ctx, suggestion.PlaylistID)
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, playlist, suggestion, nil, false)
}

// MarkAlreadyLive closes a pending suggestion whose track is already on the
// provider playlist without calling the provider again. It reports whether
// this call made the transition. When the ledger already records an addition
// made after the suggestion, that entry stays the track's provenance and no
// suggestion entry is appended.
func (c *SuggestionController) MarkAlreadyLive(ctx context.Context, suggestion *Suggestion) (bool, error) {
	log := c.log.TraceFromContext(ctx).Function("MarkAlreadyLive")

	playlist, err := c.access.Playlist(ctx, suggestion.PlaylistID)
	if err != nil {
		return false, err
	}

	latest, err := c.trackAdditionRepo.ListLatestForTracks(
		ctx,
		c.db,
		playlist.ID,
		[]string{suggestion.ProviderTrackID},
	)
	if err != nil {
		return false, log.Err("failed to load track provenance", err,
			"suggestionID", suggestion.ID, "trackID", suggestion.ProviderTrackID)
	}

	recordLedger := true
	if addition, ok := latest[suggestion.ProviderTrackID]; ok && addition.AddedAt.After(suggestion.CreatedAt) {
		log.Info("track added after suggestion, keeping existing provenance",
			"suggestionID", suggestion.ID, "source", addition.Source)
		recordLedger = false
	}

	_, changed, err := c.commitAcceptance(ctx, playlist, suggestion, ReasonThresholdMet, nil, recordLedger)
	return changed, err
}

// resolve is a no-op for terminal suggestions and for suggestions still waiting
// on a vote. Voters, reactions and settings are read fresh on every call.
func (c *SuggestionController) resolve(
	ctx context.Context,
	playlist *Playlist,
	suggestion *Suggestion,
	actor *uuid.UUID,
	ownerAction bool,
) (*Suggestion, error) {
	log := c.log.TraceFromContext(ctx).Function("resolve")

	if !suggestion.IsPending() {
		return suggestion, nil
	}

	members, err := c.memberRepo.ListMembers(ctx, c.db, playlist.ID)
	if err != nil {
		return nil, log.Err("failed to list members", err, "playlistID", playlist.ID)
	}

	reactions, err := c.reactionRepo.ListForSuggestion(ctx, c.db, suggestion.ID)
	if err != nil {
		return nil, log.Err("failed to list reactions", err, "suggestionID", suggestion.ID)
	}

	settings, err := c.settings(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}

	decision, decided := Evaluate(voterIDs(members), reactionsByUser(reactions), *settings)
	if !decided {
		return suggestion, nil
	}

	if decision.Status == SuggestionAccepted {
		accepted, _, err := c.accept(ctx, playlist, suggestion, decision.Reason, actor, ownerAction)
		return accepted, err
	}

	return c.reject(ctx, suggestion, decision.Reason, actor)
}

func (c *SuggestionController) settings(ctx context.Context, playlistID uuid.UUID) (*PlaylistSettings, error) {
	settings, err := c.settingsRepo.GetByPlaylistID(ctx, c.db, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return NewDefaultSettings(playlistID), nil
		}
		return nil, c.log.TraceFromContext(ctx).Function("settings").
			Err("failed to load playlist settings", err, "playlistID", playlistID)
	}
	return settings, nil
}

// accept adds the track on the provider first. A provider failure leaves the
// suggestion pending and is returned to the caller.
func (c *SuggestionController) accept(
	ctx context.Context,
	playlist *Playlist,
	suggestion *Suggestion,
	reason ResolutionReason,
	actor *uuid.UUID,
	ownerAction bool,
) (*Suggestion, bool, error) {
	log := c.log.TraceFromContext(ctx).Function("accept")

	gateway, err := c.access.Gateway(ctx, playlist, ownerAction)
	if err != nil {
		return nil, false, err
	}

	err = gateway.AddTracks(ctx, playlist.ProviderPlaylistID, []string{suggestion.ProviderTrackID})
	if err != nil {
		log.Er("provider rejected track add, suggestion stays pending", err,
			"suggestionID", suggestion.ID, "playlistID", playlist.ID)
		return nil, false, access.ProviderError(err, ownerAction)
	}

	return c.commitAcceptance(ctx, playlist, suggestion, reason, actor, true)
}

// commitAcceptance flips the row to accepted and, when recordLedger is set,
// appends the ledger entry in the same transaction. The ledger row is only
// written when this call won the transition.
func (c *SuggestionController) commitAcceptance(
	ctx context.Context,
	playlist *Playlist,
	suggestion *Suggestion,
	reason ResolutionReason,
	actor *uuid.UUID,
	recordLedger bool,
) (*Suggestion, bool, error) {
	log := c.log.TraceFromContext(ctx).Function("commitAcceptance")

	now := c.now()
	accepted := *suggestion
	accepted.Resolve(SuggestionAccepted, reason, actor, now)

	var changed bool
	err := c.transaction.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		var err error
		changed, err = c.suggestionRepo.ResolvePending(txCtx, tx, &accepted)
		if err != nil || !changed || !recordLedger {
			return err
		}

		addition := NewTrackAddition(
			playlist.ID,
			accepted.ProviderTrackID,
			SuggestionProvenance{SuggestionID: accepted.ID, AddedBy: actor},
			now,
		)
		return c.trackAdditionRepo.Append(txCtx, tx, addition)
	})
	if err != nil {
		return nil, false, log.Err("failed to commit acceptance", err, "suggestionID", suggestion.ID)
	}

	if !changed {
		log.Info("suggestion already resolved elsewhere", "suggestionID", suggestion.ID)
		current, err := c.load(ctx, suggestion.ID)
		return current, false, err
	}

	metrics.RecordResolution(string(SuggestionAccepted), string(reason))
	log.Info("suggestion accepted", "suggestionID", accepted.ID, "reason", reason)

	return &accepted, true, nil
}

func (c *SuggestionController) reject(
	ctx context.Context,
	suggestion *Suggestion,
	reason ResolutionReason,
	actor *uuid.UUID,
) (*Suggestion, error) {
	log := c.log.TraceFromContext(ctx).Function("reject")

	rejected := *suggestion
	rejected.Resolve(SuggestionRejected, reason, actor, c.now())

	changed, err := c.suggestionRepo.ResolvePending(ctx, c.db, &rejected)
	if err != nil {
		return nil, log.Err("failed to reject suggestion", err, "suggestionID", suggestion.ID)
	}
	if !changed {
		return c.load(ctx, suggestion.ID)
	}

	metrics.RecordResolution(string(SuggestionRejected), string(reason))
	log.Info("suggestion rejected", "suggestionID", rejected.ID, "reason", reason)

	return &rejected, nil
}

func (c *SuggestionController) load(ctx context.Context, suggestionID uuid.UUID) (*Suggestion, error) {
	suggestion, err := c.suggestionRepo.GetByID(ctx, c.db, suggestionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSuggestionNotFound) {
			return nil, types.NewNotFound("Suggestion not found")
		}
		return nil, c.log.TraceFromContext(ctx).Function("load").
			Err("failed to load suggestion", err, "suggestionID", suggestionID)
	}
	return suggestion, nil
}

func (c *SuggestionController) view(
	ctx context.Context,
	playlist *Playlist,
	suggestion *Suggestion,
	viewerID uuid.UUID,
) (*SuggestionView, error) {
	log := c.log.TraceFromContext(ctx).Function("view")

	members, err := c.memberRepo.ListMembers(ctx, c.db, playlist.ID)
	if err != nil {
		return nil, log.Err("failed to list members", err, "playlistID", playlist.ID)
	}

	reactions, err := c.reactionRepo.ListForSuggestion(ctx, c.db, suggestion.ID)
	if err != nil {
		return nil, log.Err("failed to list reactions", err, "suggestionID", suggestion.ID)
	}

	return buildView(playlist, suggestion, members, reactions, viewerID), nil
}
