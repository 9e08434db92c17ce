package playlistController

import (
	"context"
	"testing"
	"votuna/internal/controllers/access"
	. "votuna/internal/models"
	"votuna/internal/repositories/repotest"
	"votuna/internal/services"
	"votuna/internal/services/servicetest"
	"votuna/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *repotest.Store
	factory    *servicetest.Factory
	gateway    *servicetest.MockGateway
	controller PlaylistControllerInterface
	owner      *User
	playlist   *Playlist
}

// setup builds a personal playlist "pl-1" owned by "owner".
func setup(t *testing.T) *fixture {
	t.Helper()

	store := repotest.New()
	factory := servicetest.NewFactory()
	repos := store.Repository()
	resolver := access.New(repos, factory, nil)

	owner := store.AddUser("owner")
	playlist := store.AddPlaylist(owner, "pl-1")

	t.Cleanup(func() { factory.Gateway.AssertExpectations(t) })

	return &fixture{
		store:      store,
		factory:    factory,
		gateway:    factory.Gateway,
		controller: New(repos, repotest.Transactor{}, resolver, nil),
		owner:      owner,
		playlist:   playlist,
	}
}

func (f *fixture) addMember(name string) *User {
	user := f.store.AddUser(name)
	f.store.AddMember(f.playlist, user)
	return user
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func TestCreatePlaylist(t *testing.T) {
	f := setup(t)
	creator := f.store.AddUser("creator")

	f.gateway.On("GetPlaylist", mock.Anything, "sc-99").Return(&types.ProviderPlaylist{
		Provider:           ProviderSoundCloud,
		ProviderPlaylistID: "sc-99",
		Title:              "Late Night",
		Description:        strPtr("chill"),
		TrackCount:         intPtr(12),
	}, nil).Once()

	detail, err := f.controller.CreatePlaylist(context.Background(), creator, CreatePlaylistRequest{
		Provider:           " SoundCloud ",
		ProviderPlaylistID: "sc-99",
	})
	require.NoError(t, err)

	assert.Equal(t, "Late Night", detail.Title)
	assert.Equal(t, "chill", *detail.Description)
	assert.Equal(t, ProviderSoundCloud, detail.Provider)
	assert.Equal(t, PlaylistPersonal, detail.PlaylistType)
	assert.True(t, detail.IsOwner)
	assert.NotNil(t, detail.LastSyncedAt)
	assert.Equal(t, 12, *detail.ProviderSnapshot.Data().TrackCount)

	settings := f.store.Settings(detail.ID)
	require.NotNil(t, settings)
	assert.Equal(t, DefaultRequiredVotePercent, settings.RequiredVotePercent)
	assert.Equal(t, TieBreakAdd, settings.TieBreakMode)

	members := f.store.Members(detail.ID)
	require.Len(t, members, 1)
	assert.Equal(t, creator.ID, members[0].UserID)
	assert.Equal(t, MemberRoleOwner, members[0].Role)

	users := f.factory.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "token-creator", users[0].AccessToken)
}

func TestCreatePlaylist_Rejections(t *testing.T) {
	t.Run("already enabled", func(t *testing.T) {
		f := setup(t)
		_, err := f.controller.CreatePlaylist(context.Background(), f.owner, CreatePlaylistRequest{
			Provider:           ProviderSoundCloud,
			ProviderPlaylistID: "pl-1",
		})
		assert.True(t, types.IsKind(err, types.KindConflict))
	})

	t.Run("missing playlist id", func(t *testing.T) {
		f := setup(t)
		_, err := f.controller.CreatePlaylist(context.Background(), f.owner, CreatePlaylistRequest{
			Provider: ProviderSoundCloud,
		})
		assert.True(t, types.IsKind(err, types.KindValidation))
	})

	t.Run("expired token asks the creator to reconnect", func(t *testing.T) {
		f := setup(t)
		f.gateway.On("GetPlaylist", mock.Anything, "sc-99").
			Return(nil, &services.ProviderAuthError{Provider: ProviderSoundCloud, Message: "expired"}).Once()

		_, err := f.controller.CreatePlaylist(context.Background(), f.owner, CreatePlaylistRequest{
			Provider:           ProviderSoundCloud,
			ProviderPlaylistID: "sc-99",
		})
		appErr, ok := types.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, types.KindUpstreamAuth, appErr.Kind)
		assert.True(t, appErr.OwnerAction)
	})
}

func TestGetPlaylist(t *testing.T) {
	f := setup(t)
	member := f.addMember("member")

	detail, err := f.controller.GetPlaylist(context.Background(), member, f.playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, PlaylistCollaborative, detail.PlaylistType)
	assert.False(t, detail.IsOwner)
	require.NotNil(t, detail.Settings)
	assert.Equal(t, 60, detail.Settings.RequiredVotePercent)

	stranger := f.store.AddUser("stranger")
	_, err = f.controller.GetPlaylist(context.Background(), stranger, f.playlist.ID)
	assert.True(t, types.IsKind(err, types.KindPermission))
}

func TestListPlaylists(t *testing.T) {
	f := setup(t)
	other := f.store.AddUser("other")
	f.store.AddPlaylist(other, "pl-2")

	playlists, err := f.controller.ListPlaylists(context.Background(), f.owner)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, f.playlist.ID, playlists[0].ID)
}

func TestUpdateSettings(t *testing.T) {
	reject := TieBreakReject

	t.Run("owner updates collaborative playlist", func(t *testing.T) {
		f := setup(t)
		f.addMember("member")

		settings, err := f.controller.UpdateSettings(context.Background(), f.owner, f.playlist.ID, SettingsUpdate{
			RequiredVotePercent: intPtr(75),
			TieBreakMode:        &reject,
		})
		require.NoError(t, err)
		assert.Equal(t, 75, settings.RequiredVotePercent)

		stored := f.store.Settings(f.playlist.ID)
		assert.Equal(t, 75, stored.RequiredVotePercent)
		assert.Equal(t, TieBreakReject, stored.TieBreakMode)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		f := setup(t)
		f.addMember("member")

		_, err := f.controller.UpdateSettings(context.Background(), f.owner, f.playlist.ID, SettingsUpdate{
			TieBreakMode: &reject,
		})
		require.NoError(t, err)
		assert.Equal(t, 60, f.store.Settings(f.playlist.ID).RequiredVotePercent)
	})

	t.Run("personal playlist", func(t *testing.T) {
		f := setup(t)
		_, err := f.controller.UpdateSettings(context.Background(), f.owner, f.playlist.ID, SettingsUpdate{
			RequiredVotePercent: intPtr(75),
		})
		assert.ErrorIs(t, err, &types.AppError{Kind: types.KindConflict, Code: types.CodePersonalSettingsDisabled})
	})

	t.Run("member is not owner", func(t *testing.T) {
		f := setup(t)
		member := f.addMember("member")
		_, err := f.controller.UpdateSettings(context.Background(), member, f.playlist.ID, SettingsUpdate{
			RequiredVotePercent: intPtr(75),
		})
		assert.True(t, types.IsKind(err, types.KindPermission))
	})

	t.Run("out of range values", func(t *testing.T) {
		f := setup(t)
		f.addMember("member")
		coinflip := TieBreakMode("coinflip")

		for _, update := range []SettingsUpdate{
			{RequiredVotePercent: intPtr(0)},
			{RequiredVotePercent: intPtr(101)},
			{TieBreakMode: &coinflip},
		} {
			_, err := f.controller.UpdateSettings(context.Background(), f.owner, f.playlist.ID, update)
			assert.True(t, types.IsKind(err, types.KindValidation))
		}
		assert.Equal(t, 60, f.store.Settings(f.playlist.ID).RequiredVotePercent)
	})
}

func TestSyncPlaylist(t *testing.T) {
	f := setup(t)
	member := f.addMember("member")

	f.gateway.On("GetPlaylist", mock.Anything, "pl-1").Return(&types.ProviderPlaylist{
		ProviderPlaylistID: "pl-1",
		Title:              "Renamed",
		ImageURL:           strPtr("https://img"),
	}, nil).Once()

	synced, err := f.controller.SyncPlaylist(context.Background(), member, f.playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", synced.Title)

	stored := f.store.Playlist(f.playlist.ID)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, "https://img", *stored.ImageURL)
	assert.NotNil(t, stored.LastSyncedAt)

	users := f.factory.Users()
	require.Len(t, users, 1)
	assert.Equal(t, f.owner.ID, users[0].ID)
}

func TestListMembers(t *testing.T) {
	f := setup(t)
	member := f.addMember("member")
	f.store.AddSuggestion(Suggestion{PlaylistID: f.playlist.ID, ProviderTrackID: "a", SuggestedByUserID: &member.ID, Status: SuggestionPending})
	f.store.AddSuggestion(Suggestion{PlaylistID: f.playlist.ID, ProviderTrackID: "b", SuggestedByUserID: &member.ID, Status: SuggestionRejected})

	members, err := f.controller.ListMembers(context.Background(), f.owner, f.playlist.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, "owner", members[0].DisplayName)
	assert.Equal(t, MemberRoleOwner, members[0].Role)
	assert.Equal(t, 0, members[0].SuggestedCount)

	assert.Equal(t, "member", members[1].DisplayName)
	assert.Equal(t, 2, members[1].SuggestedCount)
	assert.Equal(t, "https://soundcloud.com/sc-member", *members[1].ProfileURL)
}

func TestPersonalize(t *testing.T) {
	f := setup(t)
	member := f.addMember("member")
	f.addMember("another")

	pending := f.store.AddSuggestion(Suggestion{PlaylistID: f.playlist.ID, ProviderTrackID: "a", SuggestedByUserID: &member.ID, Status: SuggestionPending})
	rejected := f.store.AddSuggestion(Suggestion{PlaylistID: f.playlist.ID, ProviderTrackID: "b", Status: SuggestionRejected})

	_, err := f.controller.Personalize(context.Background(), member, f.playlist.ID)
	assert.True(t, types.IsKind(err, types.KindPermission))

	result, err := f.controller.Personalize(context.Background(), f.owner, f.playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, PlaylistPersonal, result.PlaylistType)
	assert.Equal(t, 2, result.RemovedCollaborators)
	assert.Equal(t, 1, result.CanceledSuggestions)

	assert.Len(t, f.store.Members(f.playlist.ID), 1)

	canceled := f.store.Suggestion(pending.ID)
	assert.Equal(t, SuggestionCanceled, canceled.Status)
	assert.Equal(t, ReasonCanceledByOwner, *canceled.ResolutionReason)
	assert.Equal(t, &f.owner.ID, canceled.ResolvedByUserID)

	assert.Equal(t, SuggestionRejected, f.store.Suggestion(rejected.ID).Status)
}
