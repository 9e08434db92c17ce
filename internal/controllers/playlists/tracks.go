package playlistController

import (
	"context"
	"strings"
	"time"
	"votuna/internal/controllers/access"
	. "votuna/internal/models"
	"votuna/internal/types"

	"github.com/google/uuid"
)

const maxSearchLimit = 25

// TrackView is a live provider track overlaid with how it reached the playlist.
type TrackView struct {
	types.ProviderTrack
	AddedAt                *time.Time     `json:"addedAt,omitempty"`
	AddedSource            AdditionSource `json:"addedSource"`
	AddedByLabel           string         `json:"addedByLabel"`
	SuggestedByUserID      *uuid.UUID     `json:"suggestedByUserId,omitempty"`
	SuggestedByDisplayName *string        `json:"suggestedByDisplayName,omitempty"`
}

func (c *PlaylistController) ListTracks(ctx context.Context, user *User, playlistID uuid.UUID) ([]*TrackView, error) {
	log := c.log.TraceFromContext(ctx).Function("ListTracks")

	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	playlist := playlistAccess.Playlist

	gateway, err := c.access.Gateway(ctx, playlist, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}

	tracks, err := gateway.ListTracks(ctx, playlist.ProviderPlaylistID)
	if err != nil {
		return nil, access.ProviderError(err, playlistAccess.IsOwner)
	}

	trackIDs := make([]string, 0, len(tracks))
	for _, track := range tracks {
		if track.ProviderTrackID != "" {
			trackIDs = append(trackIDs, track.ProviderTrackID)
		}
	}

	latest, err := c.trackAdditionRepo.ListLatestForTracks(ctx, c.db, playlistID, trackIDs)
	if err != nil {
		return nil, log.Err("failed to load track provenance", err, "playlistID", playlistID)
	}

	labels, err := c.provenanceLabels(ctx, playlistID, user.ID, latest)
	if err != nil {
		return nil, err
	}

	views := make([]*TrackView, 0, len(tracks))
	for _, track := range tracks {
		views = append(views, labels.describe(track, latest[track.ProviderTrackID]))
	}
	return views, nil
}

// provenanceLabeler holds everything needed to turn ledger rows into labels
// without further reads.
type provenanceLabeler struct {
	viewerID    uuid.UUID
	suggestions map[uuid.UUID]*Suggestion
	members     map[uuid.UUID]*User
	users       map[uuid.UUID]*User
}

func (c *PlaylistController) provenanceLabels(
	ctx context.Context,
	playlistID uuid.UUID,
	viewerID uuid.UUID,
	latest map[string]*TrackAddition,
) (*provenanceLabeler, error) {
	log := c.log.TraceFromContext(ctx).Function("provenanceLabels")

	var suggestionIDs, adderIDs []uuid.UUID
	for _, addition := range latest {
		switch provenance := addition.Provenance().(type) {
		case SuggestionProvenance:
			if provenance.SuggestionID != uuid.Nil {
				suggestionIDs = append(suggestionIDs, provenance.SuggestionID)
			}
		case PersonalAddProvenance:
			if provenance.AddedBy != nil {
				adderIDs = append(adderIDs, *provenance.AddedBy)
			}
		}
	}

	labeler := &provenanceLabeler{
		viewerID:    viewerID,
		suggestions: map[uuid.UUID]*Suggestion{},
		members:     map[uuid.UUID]*User{},
		users:       map[uuid.UUID]*User{},
	}

	if len(suggestionIDs) > 0 {
		suggestions, err := c.suggestionRepo.ListByIDs(ctx, c.db, suggestionIDs)
		if err != nil {
			return nil, log.Err("failed to load linked suggestions", err, "playlistID", playlistID)
		}
		labeler.suggestions = suggestions
	}

	members, err := c.memberRepo.ListMembers(ctx, c.db, playlistID)
	if err != nil {
		return nil, log.Err("failed to list members", err, "playlistID", playlistID)
	}
	for _, member := range members {
		if member.User != nil {
			labeler.members[member.UserID] = member.User
		}
	}

	if len(adderIDs) > 0 {
		users, err := c.userRepo.GetByIDs(ctx, c.db, adderIDs)
		if err != nil {
			return nil, log.Err("failed to load adding users", err, "playlistID", playlistID)
		}
		labeler.users = users
	}

	return labeler, nil
}

// describe labels one live track. A missing ledger row means the track
// predates tracking or was added outside the app.
func (p *provenanceLabeler) describe(track types.ProviderTrack, addition *TrackAddition) *TrackView {
	view := &TrackView{
		ProviderTrack: track,
		AddedSource:   SourceOutsideVotuna,
		AddedByLabel:  "Added outside Votuna",
	}
	if addition == nil {
		return view
	}

	addedAt := addition.AddedAt
	view.AddedAt = &addedAt

	switch provenance := addition.Provenance().(type) {
	case SuggestionProvenance:
		view.AddedSource = SourceSuggestion
		p.describeSuggestion(view, provenance)
	case PersonalAddProvenance:
		view.AddedSource = SourcePersonalAdd
		view.AddedByLabel = p.directLabel(provenance.AddedBy)
	case PlaylistUtilsProvenance:
		view.AddedSource = SourcePlaylistUtils
		view.AddedByLabel = "Added by playlist utils"
	case OutsideProvenance:
		view.AddedSource = SourceOutsideVotuna
		view.AddedByLabel = "Added outside Votuna"
	}

	return view
}

func (p *provenanceLabeler) describeSuggestion(view *TrackView, provenance SuggestionProvenance) {
	view.AddedByLabel = "Suggested via Votuna"

	suggestion, ok := p.suggestions[provenance.SuggestionID]
	if !ok || suggestion.SuggestedByUserID == nil {
		return
	}

	suggesterID := *suggestion.SuggestedByUserID
	view.SuggestedByUserID = &suggesterID

	var name string
	switch member, isMember := p.members[suggesterID]; {
	case suggesterID == p.viewerID:
		name = "You"
	case isMember:
		name = member.Name()
	default:
		view.AddedByLabel = "Suggested by a former member"
		return
	}

	view.SuggestedByDisplayName = &name
	view.AddedByLabel = "Suggested by " + name
}

func (p *provenanceLabeler) directLabel(addedBy *uuid.UUID) string {
	if addedBy == nil {
		return "Added directly"
	}
	if *addedBy == p.viewerID {
		return "Added directly by You"
	}
	if user, ok := p.members[*addedBy]; ok {
		return "Added directly by " + user.Name()
	}
	if user, ok := p.users[*addedBy]; ok {
		return "Added directly by " + user.Name()
	}
	return "Added directly"
}

// AddTrackDirect adds a track to a personal playlist without a vote.
func (c *PlaylistController) AddTrackDirect(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	ref access.TrackRef,
) (*TrackView, error) {
	log := c.log.TraceFromContext(ctx).Function("AddTrackDirect")

	playlistAccess, err := c.access.ForOwner(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	playlist := playlistAccess.Playlist

	collaborative, err := c.access.IsCollaborative(ctx, playlist)
	if err != nil {
		return nil, err
	}
	if collaborative {
		return nil, types.NewConflict("Direct add is disabled for collaborative playlists").
			WithCode(types.CodeCollaborativeDirectAddDenied)
	}

	gateway, err := c.access.Gateway(ctx, playlist, true)
	if err != nil {
		return nil, err
	}

	track, err := ref.Resolve(ctx, gateway, true)
	if err != nil {
		return nil, err
	}

	if err := access.EnsureNotLive(ctx, gateway, playlist, track.ProviderTrackID, true); err != nil {
		return nil, err
	}

	if err := gateway.AddTracks(ctx, playlist.ProviderPlaylistID, []string{track.ProviderTrackID}); err != nil {
		log.Warn("provider add failed", "playlistID", playlist.ID, "trackID", track.ProviderTrackID, "error", err)
		return nil, access.ProviderError(err, true)
	}

	addition := NewTrackAddition(playlist.ID, track.ProviderTrackID, PersonalAddProvenance{AddedBy: &user.ID}, c.now())
	if err := c.trackAdditionRepo.Append(ctx, c.db, addition); err != nil {
		return nil, log.Err("failed to record track addition", err, "playlistID", playlist.ID)
	}

	log.Info("track added directly", "playlistID", playlist.ID, "trackID", track.ProviderTrackID)

	if track.Title == "" {
		track.Title = track.ProviderTrackID
	}
	labeler := &provenanceLabeler{viewerID: user.ID}
	return labeler.describe(track, addition), nil
}

func (c *PlaylistController) RemoveTrack(ctx context.Context, user *User, playlistID uuid.UUID, trackID string) error {
	log := c.log.TraceFromContext(ctx).Function("RemoveTrack")

	playlistAccess, err := c.access.ForOwner(ctx, playlistID, user)
	if err != nil {
		return err
	}

	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return types.NewValidation("Track id is required")
	}

	gateway, err := c.access.Gateway(ctx, playlistAccess.Playlist, true)
	if err != nil {
		return err
	}

	if err := gateway.RemoveTracks(ctx, playlistAccess.Playlist.ProviderPlaylistID, []string{trackID}); err != nil {
		return access.ProviderError(err, true)
	}

	log.Info("track removed", "playlistID", playlistID, "trackID", trackID)
	return nil
}

func (c *PlaylistController) SearchTracks(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	query string,
	limit int,
) ([]types.ProviderTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.NewValidation("Search query is required")
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, types.NewValidation("limit must be between 1 and 25")
	}

	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}

	gateway, err := c.access.Gateway(ctx, playlistAccess.Playlist, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}

	tracks, err := gateway.SearchTracks(ctx, query, limit)
	if err != nil {
		return nil, access.ProviderError(err, playlistAccess.IsOwner)
	}
	return tracks, nil
}
