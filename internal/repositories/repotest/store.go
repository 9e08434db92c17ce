// Package repotest holds in-memory implementations of the repository
// interfaces for controller and job tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"
	. "votuna/internal/models"
	"votuna/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a single in-memory database shared by every fake repository. Values
// are copied in and out so callers cannot mutate stored rows by accident.
type Store struct {
	mu sync.Mutex

	users       map[uuid.UUID]User
	playlists   map[uuid.UUID]Playlist
	members     []PlaylistMember
	settings    map[uuid.UUID]PlaylistSettings
	suggestions []Suggestion
	reactions   []Reaction
	additions   []TrackAddition
	declines    []RecommendationDecline

	clock time.Time

	// BeforeSuggestionCreate runs just before a suggestion insert, letting a
	// test slip in a competing row.
	BeforeSuggestionCreate func(s *Store, suggestion *Suggestion)
}

func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]User),
		playlists: make(map[uuid.UUID]Playlist),
		settings:  make(map[uuid.UUID]PlaylistSettings),
		clock:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Transactor runs fn directly with a nil *gorm.DB.
type Transactor struct{}

func (Transactor) Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	return fn(ctx, nil)
}

func (s *Store) Repository() repositories.Repository {
	return repositories.Repository{
		User:                  &userRepo{s},
		Playlist:              &playlistRepo{s},
		Member:                &memberRepo{s},
		Settings:              &settingsRepo{s},
		Suggestion:            &suggestionRepo{s},
		Reaction:              &reactionRepo{s},
		TrackAddition:         &trackAdditionRepo{s},
		RecommendationDecline: &declineRepo{s},
	}
}

// tick returns a strictly increasing timestamp so ordering by time is stable.
// Callers must hold s.mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// AddUser seeds a user with a provider token.
func (s *Store) AddUser(displayName string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	user := User{
		BaseUUIDModel:  BaseUUIDModel{ID: newID(), CreatedAt: now, UpdatedAt: now},
		AuthProvider:   ProviderSoundCloud,
		ProviderUserID: "sc-" + displayName,
		DisplayName:    displayName,
		AccessToken:    "token-" + displayName,
	}
	s.users[user.ID] = user
	return &user
}

// AddPlaylist seeds a playlist with default settings and the owner as a member.
func (s *Store) AddPlaylist(owner *User, providerPlaylistID string) *Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	playlist := Playlist{
		BaseUUIDModel:      BaseUUIDModel{ID: newID(), CreatedAt: now, UpdatedAt: now},
		OwnerUserID:        owner.ID,
		Provider:           ProviderSoundCloud,
		ProviderPlaylistID: providerPlaylistID,
		Title:              "Playlist " + providerPlaylistID,
		IsActive:           true,
	}
	s.playlists[playlist.ID] = playlist

	settings := NewDefaultSettings(playlist.ID)
	settings.ID = newID()
	s.settings[playlist.ID] = *settings

	s.members = append(s.members, PlaylistMember{
		BaseUUIDModel: BaseUUIDModel{ID: newID(), CreatedAt: now, UpdatedAt: now},
		PlaylistID:    playlist.ID,
		UserID:        owner.ID,
		Role:          MemberRoleOwner,
		JoinedAt:      now,
	})

	return &playlist
}

func (s *Store) AddMember(playlist *Playlist, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	s.members = append(s.members, PlaylistMember{
		BaseUUIDModel: BaseUUIDModel{ID: newID(), CreatedAt: now, UpdatedAt: now},
		PlaylistID:    playlist.ID,
		UserID:        user.ID,
		Role:          MemberRoleMember,
		JoinedAt:      now,
	})
}

func (s *Store) RemoveMember(playlist *Playlist, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.members[:0]
	for _, member := range s.members {
		if member.PlaylistID == playlist.ID && member.UserID == user.ID {
			continue
		}
		kept = append(kept, member)
	}
	s.members = kept
}

func (s *Store) SetSettings(playlist *Playlist, percent int, mode TieBreakMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settings[playlist.ID]
	settings.RequiredVotePercent = percent
	settings.TieBreakMode = mode
	s.settings[playlist.ID] = settings
}

// AddSuggestion seeds a suggestion row as-is, bypassing the pending uniqueness check.
func (s *Store) AddSuggestion(suggestion Suggestion) *Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	if suggestion.ID == uuid.Nil {
		suggestion.ID = newID()
	}
	suggestion.CreatedAt = now
	suggestion.UpdatedAt = now
	s.suggestions = append(s.suggestions, suggestion)
	return &suggestion
}

func (s *Store) AddReaction(suggestionID, userID uuid.UUID, value ReactionValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	s.reactions = append(s.reactions, Reaction{
		BaseUUIDModel: BaseUUIDModel{ID: newID(), CreatedAt: now, UpdatedAt: now},
		SuggestionID:  suggestionID,
		UserID:        userID,
		Value:         value,
	})
}

func (s *Store) AddTrackAddition(addition TrackAddition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addition.ID == uuid.Nil {
		addition.ID = newID()
	}
	addition.CreatedAt = s.tick()
	s.additions = append(s.additions, addition)
}

// Suggestion returns the stored row, or nil.
func (s *Store) Suggestion(id uuid.UUID) *Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, suggestion := range s.suggestions {
		if suggestion.ID == id {
			copied := suggestion
			return &copied
		}
	}
	return nil
}

func (s *Store) Suggestions() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Suggestion(nil), s.suggestions...)
}

func (s *Store) Reactions(suggestionID uuid.UUID) map[uuid.UUID]ReactionValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[uuid.UUID]ReactionValue)
	for _, reaction := range s.reactions {
		if reaction.SuggestionID == suggestionID {
			result[reaction.UserID] = reaction.Value
		}
	}
	return result
}

func (s *Store) TrackAdditions() []TrackAddition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TrackAddition(nil), s.additions...)
}

func (s *Store) Declines() []RecommendationDecline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecommendationDecline(nil), s.declines...)
}

func (s *Store) Members(playlistID uuid.UUID) []PlaylistMember {
	s.mu.Lock()
	defer s.mu.Unlock()

	var members []PlaylistMember
	for _, member := range s.members {
		if member.PlaylistID == playlistID {
			members = append(members, member)
		}
	}
	return members
}

func (s *Store) Playlist(id uuid.UUID) *Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return nil
	}
	return &playlist
}

func (s *Store) Settings(playlistID uuid.UUID) *PlaylistSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[playlistID]
	if !ok {
		return nil
	}
	return &settings
}

func sortByCreatedDesc(suggestions []*Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].CreatedAt.After(suggestions[j].CreatedAt)
	})
}
