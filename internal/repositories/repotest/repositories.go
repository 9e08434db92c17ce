package repotest

import (
	"context"
	"sort"
	"time"
	. "votuna/internal/models"
	"votuna/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error) {
	user, err := r.GetWithCredentials(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	user.AccessToken = ""
	return user, nil
}

func (r *userRepo) GetWithCredentials(_ context.Context, _ *gorm.DB, id uuid.UUID) (*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make(map[uuid.UUID]*User, len(ids))
	for _, id := range ids {
		if user, ok := r.s.users[id]; ok {
			user.AccessToken = ""
			result[id] = &user
		}
	}
	return result, nil
}

func (r *userRepo) Create(_ context.Context, _ *gorm.DB, user *User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = newID()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) ClearUserCache(context.Context, uuid.UUID) {}

type playlistRepo struct{ s *Store }

func (r *playlistRepo) Create(_ context.Context, _ *gorm.DB, playlist *Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.playlists {
		if existing.Provider == playlist.Provider && existing.ProviderPlaylistID == playlist.ProviderPlaylistID {
			return gorm.ErrDuplicatedKey
		}
	}

	now := r.s.tick()
	if playlist.ID == uuid.Nil {
		playlist.ID = newID()
	}
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	stored := *playlist
	stored.Settings = nil
	stored.Members = nil
	stored.Owner = nil
	r.s.playlists[playlist.ID] = stored
	return nil
}

func (r *playlistRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	playlist, ok := r.s.playlists[id]
	if !ok {
		return nil, repositories.ErrPlaylistNotFound
	}
	if settings, ok := r.s.settings[id]; ok {
		playlist.Settings = &settings
	}
	return &playlist, nil
}

func (r *playlistRepo) GetByProviderPlaylistID(
	_ context.Context,
	_ *gorm.DB,
	provider string,
	providerPlaylistID string,
) (*Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, playlist := range r.s.playlists {
		if playlist.Provider == provider && playlist.ProviderPlaylistID == providerPlaylistID {
			return &playlist, nil
		}
	}
	return nil, repositories.ErrPlaylistNotFound
}

func (r *playlistRepo) ListForUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	playlists := []*Playlist{}
	for _, member := range r.s.members {
		if member.UserID != userID {
			continue
		}
		if playlist, ok := r.s.playlists[member.PlaylistID]; ok {
			playlists = append(playlists, &playlist)
		}
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
	})
	return playlists, nil
}

func (r *playlistRepo) ListByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	playlists := []*Playlist{}
	for _, id := range ids {
		if playlist, ok := r.s.playlists[id]; ok {
			playlists = append(playlists, &playlist)
		}
	}
	return playlists, nil
}

func (r *playlistRepo) Update(_ context.Context, _ *gorm.DB, playlist *Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.playlists[playlist.ID]
	if !ok {
		return repositories.ErrPlaylistNotFound
	}
	stored.Title = playlist.Title
	stored.Description = playlist.Description
	stored.ImageURL = playlist.ImageURL
	stored.IsActive = playlist.IsActive
	stored.LastSyncedAt = playlist.LastSyncedAt
	stored.ProviderSnapshot = playlist.ProviderSnapshot
	stored.UpdatedAt = r.s.tick()
	r.s.playlists[playlist.ID] = stored
	return nil
}

type memberRepo struct{ s *Store }

func (r *memberRepo) Create(_ context.Context, _ *gorm.DB, member *PlaylistMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.members {
		if existing.PlaylistID == member.PlaylistID && existing.UserID == member.UserID {
			return gorm.ErrDuplicatedKey
		}
	}

	now := r.s.tick()
	if member.ID == uuid.Nil {
		member.ID = newID()
	}
	member.CreatedAt = now
	member.UpdatedAt = now
	if member.JoinedAt.IsZero() {
		member.JoinedAt = now
	}
	stored := *member
	stored.User = nil
	r.s.members = append(r.s.members, stored)
	return nil
}

func (r *memberRepo) GetMember(_ context.Context, _ *gorm.DB, playlistID, userID uuid.UUID) (*PlaylistMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, member := range r.s.members {
		if member.PlaylistID == playlistID && member.UserID == userID {
			return &member, nil
		}
	}
	return nil, repositories.ErrMemberNotFound
}

func (r *memberRepo) ListMembers(_ context.Context, _ *gorm.DB, playlistID uuid.UUID) ([]*PlaylistMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members := []*PlaylistMember{}
	for _, member := range r.s.members {
		if member.PlaylistID != playlistID {
			continue
		}
		if user, ok := r.s.users[member.UserID]; ok {
			user.AccessToken = ""
			member.User = &user
		}
		members = append(members, &member)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *memberRepo) HasNonOwnerMembers(_ context.Context, _ *gorm.DB, playlistID, ownerID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, member := range r.s.members {
		if member.PlaylistID == playlistID && member.UserID != ownerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memberRepo) RemoveNonOwnerMembers(_ context.Context, _ *gorm.DB, playlistID, ownerID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	removed := 0
	kept := r.s.members[:0]
	for _, member := range r.s.members {
		if member.PlaylistID == playlistID && member.UserID != ownerID {
			removed++
			continue
		}
		kept = append(kept, member)
	}
	r.s.members = kept
	return removed, nil
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) Create(_ context.Context, _ *gorm.DB, settings *PlaylistSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.settings[settings.PlaylistID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if settings.ID == uuid.Nil {
		settings.ID = newID()
	}
	r.s.settings[settings.PlaylistID] = *settings
	return nil
}

func (r *settingsRepo) GetByPlaylistID(_ context.Context, _ *gorm.DB, playlistID uuid.UUID) (*PlaylistSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	settings, ok := r.s.settings[playlistID]
	if !ok {
		return nil, repositories.ErrSettingsNotFound
	}
	return &settings, nil
}

func (r *settingsRepo) Update(_ context.Context, _ *gorm.DB, settings *PlaylistSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.settings[settings.PlaylistID]
	if !ok {
		return repositories.ErrSettingsNotFound
	}
	stored.RequiredVotePercent = settings.RequiredVotePercent
	stored.TieBreakMode = settings.TieBreakMode
	r.s.settings[settings.PlaylistID] = stored
	return nil
}

type suggestionRepo struct{ s *Store }

func (r *suggestionRepo) Create(_ context.Context, _ *gorm.DB, suggestion *Suggestion) error {
	if hook := r.s.BeforeSuggestionCreate; hook != nil {
		r.s.BeforeSuggestionCreate = nil
		hook(r.s, suggestion)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if suggestion.Status == SuggestionPending {
		for _, existing := range r.s.suggestions {
			if existing.PlaylistID == suggestion.PlaylistID &&
				existing.ProviderTrackID == suggestion.ProviderTrackID &&
				existing.Status == SuggestionPending {
				return repositories.ErrDuplicatePending
			}
		}
	}

	now := r.s.tick()
	if suggestion.ID == uuid.Nil {
		suggestion.ID = newID()
	}
	suggestion.CreatedAt = now
	suggestion.UpdatedAt = now
	r.s.suggestions = append(r.s.suggestions, *suggestion)
	return nil
}

func (r *suggestionRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*Suggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, suggestion := range r.s.suggestions {
		if suggestion.ID == id {
			return &suggestion, nil
		}
	}
	return nil, repositories.ErrSuggestionNotFound
}

func (r *suggestionRepo) GetPendingByTrack(
	_ context.Context,
	_ *gorm.DB,
	playlistID uuid.UUID,
	trackID string,
) (*Suggestion, error) {
	return r.latestByTrack(playlistID, trackID, SuggestionPending, func(s Suggestion) time.Time { return s.CreatedAt })
}

func (r *suggestionRepo) GetLatestRejectedByTrack(
	_ context.Context,
	_ *gorm.DB,
	playlistID uuid.UUID,
	trackID string,
) (*Suggestion, error) {
	return r.latestByTrack(playlistID, trackID, SuggestionRejected, func(s Suggestion) time.Time { return s.UpdatedAt })
}

func (r *suggestionRepo) latestByTrack(
	playlistID uuid.UUID,
	trackID string,
	status SuggestionStatus,
	orderBy func(Suggestion) time.Time,
) (*Suggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *Suggestion
	for _, suggestion := range r.s.suggestions {
		if suggestion.PlaylistID != playlistID ||
			suggestion.ProviderTrackID != trackID ||
			suggestion.Status != status {
			continue
		}
		if found == nil || orderBy(suggestion).After(orderBy(*found)) {
			copied := suggestion
			found = &copied
		}
	}
	if found == nil {
		return nil, repositories.ErrSuggestionNotFound
	}
	return found, nil
}

func (r *suggestionRepo) ListForPlaylist(
	_ context.Context,
	_ *gorm.DB,
	playlistID uuid.UUID,
	status *SuggestionStatus,
) ([]*Suggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	suggestions := []*Suggestion{}
	for _, suggestion := range r.s.suggestions {
		if suggestion.PlaylistID != playlistID {
			continue
		}
		if status != nil && suggestion.Status != *status {
			continue
		}
		suggestions = append(suggestions, &suggestion)
	}
	sortByCreatedDesc(suggestions)
	return suggestions, nil
}

func (r *suggestionRepo) ListByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*Suggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	result := make(map[uuid.UUID]*Suggestion, len(ids))
	for _, suggestion := range r.s.suggestions {
		if wanted[suggestion.ID] {
			result[suggestion.ID] = &suggestion
		}
	}
	return result, nil
}

func (r *suggestionRepo) ListPending(_ context.Context, _ *gorm.DB) ([]*Suggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	suggestions := []*Suggestion{}
	for _, suggestion := range r.s.suggestions {
		if suggestion.Status == SuggestionPending {
			suggestions = append(suggestions, &suggestion)
		}
	}
	return suggestions, nil
}

func (r *suggestionRepo) ListPendingTrackIDs(_ context.Context, _ *gorm.DB, playlistID uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	trackIDs := []string{}
	for _, suggestion := range r.s.suggestions {
		if suggestion.PlaylistID == playlistID && suggestion.Status == SuggestionPending {
			trackIDs = append(trackIDs, suggestion.ProviderTrackID)
		}
	}
	return trackIDs, nil
}

func (r *suggestionRepo) CountBySuggester(_ context.Context, _ *gorm.DB, playlistID uuid.UUID) (map[uuid.UUID]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	counts := make(map[uuid.UUID]int)
	for _, suggestion := range r.s.suggestions {
		if suggestion.PlaylistID == playlistID && suggestion.SuggestedByUserID != nil {
			counts[*suggestion.SuggestedByUserID]++
		}
	}
	return counts, nil
}

func (r *suggestionRepo) ResolvePending(_ context.Context, _ *gorm.DB, suggestion *Suggestion) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, stored := range r.s.suggestions {
		if stored.ID != suggestion.ID {
			continue
		}
		if stored.Status != SuggestionPending {
			return false, nil
		}
		stored.Status = suggestion.Status
		stored.ResolutionReason = suggestion.ResolutionReason
		stored.ResolvedAt = suggestion.ResolvedAt
		stored.ResolvedByUserID = suggestion.ResolvedByUserID
		stored.UpdatedAt = r.s.tick()
		r.s.suggestions[i] = stored
		return true, nil
	}
	return false, nil
}

func (r *suggestionRepo) CancelPendingForPlaylist(
	_ context.Context,
	_ *gorm.DB,
	playlistID uuid.UUID,
	actorID uuid.UUID,
	at time.Time,
) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	canceled := 0
	for i, stored := range r.s.suggestions {
		if stored.PlaylistID != playlistID || stored.Status != SuggestionPending {
			continue
		}
		actor := actorID
		stored.Resolve(SuggestionCanceled, ReasonCanceledByOwner, &actor, at)
		stored.UpdatedAt = r.s.tick()
		r.s.suggestions[i] = stored
		canceled++
	}
	return canceled, nil
}

type reactionRepo struct{ s *Store }

func (r *reactionRepo) ListForSuggestion(_ context.Context, _ *gorm.DB, suggestionID uuid.UUID) ([]*Reaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reactions := []*Reaction{}
	for _, reaction := range r.s.reactions {
		if reaction.SuggestionID == suggestionID {
			reactions = append(reactions, &reaction)
		}
	}
	return reactions, nil
}

func (r *reactionRepo) Get(_ context.Context, _ *gorm.DB, suggestionID, userID uuid.UUID) (*Reaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, reaction := range r.s.reactions {
		if reaction.SuggestionID == suggestionID && reaction.UserID == userID {
			return &reaction, nil
		}
	}
	return nil, nil
}

func (r *reactionRepo) Upsert(_ context.Context, _ *gorm.DB, suggestionID, userID uuid.UUID, value ReactionValue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.tick()
	for i, reaction := range r.s.reactions {
		if reaction.SuggestionID == suggestionID && reaction.UserID == userID {
			r.s.reactions[i].Value = value
			r.s.reactions[i].UpdatedAt = now
			return nil
		}
	}

	r.s.reactions = append(r.s.reactions, Reaction{
		BaseUUIDModel: BaseUUIDModel{ID: newID(), CreatedAt: now, UpdatedAt: now},
		SuggestionID:  suggestionID,
		UserID:        userID,
		Value:         value,
	})
	return nil
}

func (r *reactionRepo) Delete(_ context.Context, _ *gorm.DB, suggestionID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.reactions[:0]
	for _, reaction := range r.s.reactions {
		if reaction.SuggestionID == suggestionID && reaction.UserID == userID {
			continue
		}
		kept = append(kept, reaction)
	}
	r.s.reactions = kept
	return nil
}

type trackAdditionRepo struct{ s *Store }

func (r *trackAdditionRepo) Append(_ context.Context, _ *gorm.DB, addition *TrackAddition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if addition.ID == uuid.Nil {
		addition.ID = newID()
	}
	addition.CreatedAt = r.s.tick()
	r.s.additions = append(r.s.additions, *addition)
	return nil
}

func (r *trackAdditionRepo) AppendBatch(ctx context.Context, tx *gorm.DB, additions []*TrackAddition) error {
	for _, addition := range additions {
		if err := r.Append(ctx, tx, addition); err != nil {
			return err
		}
	}
	return nil
}

func (r *trackAdditionRepo) ListLatestForTracks(
	_ context.Context,
	_ *gorm.DB,
	playlistID uuid.UUID,
	trackIDs []string,
) (map[string]*TrackAddition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[string]bool, len(trackIDs))
	for _, trackID := range trackIDs {
		wanted[trackID] = true
	}

	latest := make(map[string]*TrackAddition)
	for _, addition := range r.s.additions {
		if addition.PlaylistID != playlistID || !wanted[addition.ProviderTrackID] {
			continue
		}
		current, ok := latest[addition.ProviderTrackID]
		if ok && !newerAddition(addition, *current) {
			continue
		}
		copied := addition
		latest[addition.ProviderTrackID] = &copied
	}
	return latest, nil
}

// newerAddition orders by (added_at, id), matching the SQL ORDER BY.
func newerAddition(a, b TrackAddition) bool {
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.After(b.AddedAt)
	}
	return a.ID.String() > b.ID.String()
}

type declineRepo struct{ s *Store }

func (r *declineRepo) Upsert(_ context.Context, _ *gorm.DB, decline *RecommendationDecline) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, existing := range r.s.declines {
		if existing.PlaylistID == decline.PlaylistID &&
			existing.UserID == decline.UserID &&
			existing.ProviderTrackID == decline.ProviderTrackID {
			r.s.declines[i].DeclinedAt = decline.DeclinedAt
			return nil
		}
	}

	if decline.ID == uuid.Nil {
		decline.ID = newID()
	}
	r.s.declines = append(r.s.declines, *decline)
	return nil
}

func (r *declineRepo) ListTrackIDs(_ context.Context, _ *gorm.DB, playlistID, userID uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	trackIDs := []string{}
	for _, decline := range r.s.declines {
		if decline.PlaylistID == playlistID && decline.UserID == userID {
			trackIDs = append(trackIDs, decline.ProviderTrackID)
		}
	}
	return trackIDs, nil
}
