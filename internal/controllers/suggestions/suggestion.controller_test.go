package suggestionController

import (
	"context"
	"testing"
	"votuna/internal/controllers/access"
	. "votuna/internal/models"
	"votuna/internal/repositories/repotest"
	"votuna/internal/services"
	"votuna/internal/services/servicetest"
	"votuna/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *repotest.Store
	factory    *servicetest.Factory
	gateway    *servicetest.MockGateway
	controller SuggestionControllerInterface
	owner      *User
	member     *User
	playlist   *Playlist
}

// setup builds a playlist owned by "owner" with one extra member.
func setup(t *testing.T) *fixture {
	t.Helper()

	store := repotest.New()
	factory := servicetest.NewFactory()
	repos := store.Repository()
	resolver := access.New(repos, factory, nil)

	owner := store.AddUser("owner")
	member := store.AddUser("member")
	playlist := store.AddPlaylist(owner, "pl-1")
	store.AddMember(playlist, member)

	t.Cleanup(func() { factory.Gateway.AssertExpectations(t) })

	return &fixture{
		store:      store,
		factory:    factory,
		gateway:    factory.Gateway,
		controller: New(repos, repotest.Transactor{}, resolver, nil),
		owner:      owner,
		member:     member,
		playlist:   playlist,
	}
}

func (f *fixture) addMember(name string) *User {
	user := f.store.AddUser(name)
	f.store.AddMember(f.playlist, user)
	return user
}

func (f *fixture) trackIsNotLive() {
	f.gateway.On("TrackExists", mock.Anything, "pl-1", mock.Anything).Return(false, nil).Maybe()
}

func (f *fixture) expectAdd(trackID string, err error) {
	f.gateway.On("AddTracks", mock.Anything, "pl-1", []string{trackID}).Return(err).Once()
}

func (f *fixture) suggest(t *testing.T, user *User, trackID string) *SuggestionView {
	t.Helper()
	view, err := f.controller.CreateOrMerge(context.Background(), user, f.playlist.ID, CreateRequest{
		Track: access.TrackRef{ProviderTrackID: trackID},
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) react(t *testing.T, user *User, suggestionID uuid.UUID, value *ReactionValue) *SuggestionView {
	t.Helper()
	view, err := f.controller.SetReaction(context.Background(), user, suggestionID, value)
	require.NoError(t, err)
	return view
}

func up() *ReactionValue {
	value := ReactionUp
	return &value
}

func down() *ReactionValue {
	value := ReactionDown
	return &value
}

func TestCreateOrMerge_TieAddAccepts(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()

	created := f.suggest(t, f.owner, "abc")
	assert.Equal(t, SuggestionPending, created.Status)
	assert.Equal(t, 1, created.UpvoteCount)
	assert.Equal(t, []string{"member"}, created.AwaitingVoteNames)
	assert.Equal(t, ReactionUp, *created.MyReaction)

	f.expectAdd("abc", nil)
	resolved := f.react(t, f.member, created.ID, down())

	assert.Equal(t, SuggestionAccepted, resolved.Status)
	assert.Equal(t, ReasonTieAdd, *resolved.ResolutionReason)
	assert.Equal(t, &f.member.ID, resolved.ResolvedByUserID)
	f.gateway.AssertNumberOfCalls(t, "AddTracks", 1)

	additions := f.store.TrackAdditions()
	require.Len(t, additions, 1)
	assert.Equal(t, SourceSuggestion, additions[0].Source)
	assert.Equal(t, "abc", additions[0].ProviderTrackID)
	assert.Equal(t, &created.ID, additions[0].SuggestionID)

	stored := f.store.Suggestion(created.ID)
	assert.Equal(t, SuggestionAccepted, stored.Status)
}

func TestCreateOrMerge_TieRejectSkipsProvider(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.store.SetSettings(f.playlist, 60, TieBreakReject)

	created := f.suggest(t, f.owner, "abc")
	resolved := f.react(t, f.member, created.ID, down())

	assert.Equal(t, SuggestionRejected, resolved.Status)
	assert.Equal(t, ReasonTieReject, *resolved.ResolutionReason)
	f.gateway.AssertNotCalled(t, "AddTracks", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.store.TrackAdditions())
}

func TestResolution_ThresholdBoundary(t *testing.T) {
	t.Run("3 up of 5 accepts", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		m2, m3, m4 := f.addMember("m2"), f.addMember("m3"), f.addMember("m4")

		created := f.suggest(t, f.owner, "abc")
		f.react(t, f.member, created.ID, up())
		f.react(t, m2, created.ID, down())
		f.react(t, m3, created.ID, down())

		f.expectAdd("abc", nil)
		resolved := f.react(t, m4, created.ID, up())

		assert.Equal(t, SuggestionAccepted, resolved.Status)
		assert.Equal(t, ReasonThresholdMet, *resolved.ResolutionReason)
		assert.Equal(t, 3, resolved.UpvoteCount)
		assert.Equal(t, 2, resolved.DownvoteCount)
	})

	t.Run("2 up of 5 rejects", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		m2, m3, m4 := f.addMember("m2"), f.addMember("m3"), f.addMember("m4")

		created := f.suggest(t, f.owner, "abc")
		f.react(t, f.member, created.ID, up())
		f.react(t, m2, created.ID, down())
		f.react(t, m3, created.ID, down())
		resolved := f.react(t, m4, created.ID, down())

		assert.Equal(t, SuggestionRejected, resolved.Status)
		assert.Equal(t, ReasonThresholdNotMet, *resolved.ResolutionReason)
		f.gateway.AssertNotCalled(t, "AddTracks", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSetReaction_Toggle(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	third := f.addMember("third")

	created := f.suggest(t, f.owner, "abc")

	view := f.react(t, f.member, created.ID, up())
	assert.Equal(t, ReactionUp, *view.MyReaction)

	view = f.react(t, f.member, created.ID, up())
	assert.Nil(t, view.MyReaction)
	_, reacted := f.store.Reactions(created.ID)[f.member.ID]
	assert.False(t, reacted)

	view = f.react(t, f.member, created.ID, up())
	assert.Equal(t, ReactionUp, *view.MyReaction)

	view = f.react(t, f.member, created.ID, down())
	assert.Equal(t, ReactionDown, *view.MyReaction)
	assert.Equal(t, 1, view.DownvoteCount)

	view = f.react(t, f.member, created.ID, nil)
	assert.Nil(t, view.MyReaction)
	assert.ElementsMatch(t, []string{"member", "third"}, view.AwaitingVoteNames)

	// clearing when nothing is set is harmless
	view = f.react(t, third, created.ID, nil)
	assert.Nil(t, view.MyReaction)
	assert.Equal(t, SuggestionPending, view.Status)
}

func TestSetReaction_InvalidValue(t *testing.T) {
	f := setup(t)
	value := ReactionValue("sideways")

	_, err := f.controller.SetReaction(context.Background(), f.member, uuid.New(), &value)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestSetReaction_TerminalIsNoOp(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.store.SetSettings(f.playlist, 60, TieBreakReject)

	created := f.suggest(t, f.owner, "abc")
	rejected := f.react(t, f.member, created.ID, down())
	require.Equal(t, SuggestionRejected, rejected.Status)

	for _, value := range []*ReactionValue{up(), down(), nil} {
		view := f.react(t, f.member, created.ID, value)
		assert.Equal(t, SuggestionRejected, view.Status)
		assert.Equal(t, ReasonTieReject, *view.ResolutionReason)
	}

	assert.Equal(t, ReactionDown, f.store.Reactions(created.ID)[f.member.ID])
}

func TestCreateOrMerge_MergesIntoPending(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.addMember("third")

	first := f.suggest(t, f.owner, "abc")
	second := f.suggest(t, f.member, "abc")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.UpvoteCount)
	assert.Equal(t, ReactionUp, *second.MyReaction)
	assert.Len(t, f.store.Suggestions(), 1)
}

func TestCreateOrMerge_ConcurrentDuplicateMerges(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.addMember("third")

	var winner *Suggestion
	f.store.BeforeSuggestionCreate = func(s *repotest.Store, candidate *Suggestion) {
		winner = s.AddSuggestion(Suggestion{
			PlaylistID:        candidate.PlaylistID,
			ProviderTrackID:   candidate.ProviderTrackID,
			SuggestedByUserID: &f.member.ID,
			Status:            SuggestionPending,
		})
		s.AddReaction(winner.ID, f.member.ID, ReactionUp)
	}

	view := f.suggest(t, f.owner, "abc")

	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, view.ID)
	assert.Equal(t, 2, view.UpvoteCount)

	pending := 0
	for _, suggestion := range f.store.Suggestions() {
		if suggestion.IsPending() && suggestion.ProviderTrackID == "abc" {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
}

func TestCreateOrMerge_PreviouslyRejected(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.addMember("third")

	reason := ReasonThresholdNotMet
	old := f.store.AddSuggestion(Suggestion{
		PlaylistID:       f.playlist.ID,
		ProviderTrackID:  "xyz",
		Status:           SuggestionRejected,
		ResolutionReason: &reason,
	})

	_, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
		Track: access.TrackRef{ProviderTrackID: "xyz"},
	})
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindConflict, appErr.Kind)
	assert.Equal(t, types.CodeTrackPreviouslyRejected, appErr.Code)
	assert.Len(t, f.store.Suggestions(), 1)

	view, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
		Track:          access.TrackRef{ProviderTrackID: "xyz"},
		AllowResuggest: true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, view.ID)
	assert.Equal(t, SuggestionPending, view.Status)
	assert.Equal(t, SuggestionRejected, f.store.Suggestion(old.ID).Status)
}

func TestResolution_GatewayFailureStaysPending(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()

	created := f.suggest(t, f.owner, "abc")

	f.expectAdd("abc", &services.ProviderAPIError{Provider: "soundcloud", StatusCode: 503, Message: "down"})
	_, err := f.controller.SetReaction(context.Background(), f.member, created.ID, up())

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindUpstreamUnavailable))
	assert.Equal(t, SuggestionPending, f.store.Suggestion(created.ID).Status)
	assert.Empty(t, f.store.TrackAdditions())

	// the vote was kept, so the next trigger retries the add
	f.expectAdd("abc", nil)
	resolved, err := f.controller.ResolveIfAllVoted(context.Background(), f.store.Suggestion(created.ID))
	require.NoError(t, err)
	assert.Equal(t, SuggestionAccepted, resolved.Status)
	assert.Nil(t, resolved.ResolvedByUserID)
}

func TestResolution_GatewayAuthFailureByRole(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()

	created := f.suggest(t, f.owner, "abc")

	authErr := &services.ProviderAuthError{Provider: "soundcloud", Message: "expired"}
	f.expectAdd("abc", authErr)
	_, err := f.controller.SetReaction(context.Background(), f.member, created.ID, up())

	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindUpstreamAuth, appErr.Kind)
	assert.False(t, appErr.OwnerAction)
	assert.Equal(t, SuggestionPending, f.store.Suggestion(created.ID).Status)
}

func TestCreateOrMerge_PersonalPlaylist(t *testing.T) {
	f := setup(t)
	f.store.RemoveMember(f.playlist, f.member)

	_, err := f.controller.CreateOrMerge(context.Background(), f.owner, f.playlist.ID, CreateRequest{
		Track: access.TrackRef{ProviderTrackID: "abc"},
	})
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindValidation, appErr.Kind)
	assert.Equal(t, types.CodePersonalSuggestionsDisabled, appErr.Code)
	assert.Empty(t, f.store.Suggestions())
}

func TestCreateOrMerge_NonMember(t *testing.T) {
	f := setup(t)
	outsider := f.store.AddUser("outsider")

	_, err := f.controller.CreateOrMerge(context.Background(), outsider, f.playlist.ID, CreateRequest{
		Track: access.TrackRef{ProviderTrackID: "abc"},
	})
	assert.True(t, types.IsKind(err, types.KindPermission))

	_, err = f.controller.CreateOrMerge(context.Background(), f.owner, uuid.New(), CreateRequest{
		Track: access.TrackRef{ProviderTrackID: "abc"},
	})
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestCreateOrMerge_TrackReference(t *testing.T) {
	t.Run("missing id and url", func(t *testing.T) {
		f := setup(t)
		_, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{})
		assert.True(t, types.IsKind(err, types.KindValidation))
	})

	t.Run("url resolves to id and metadata", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")

		artist := "Bonobo"
		link := "https://soundcloud.com/bonobo/kerala"
		f.gateway.On("ResolveTrackURL", mock.Anything, link).
			Return(&types.ProviderTrack{ProviderTrackID: "555", Title: "Kerala", Artist: &artist, URL: &link}, nil).
			Once()

		view, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{TrackURL: "  " + link + " "},
		})
		require.NoError(t, err)
		assert.Equal(t, "555", view.ProviderTrackID)
		assert.Equal(t, "Kerala", *view.TrackTitle)
		assert.Equal(t, "Bonobo", *view.TrackArtist)
	})

	t.Run("explicit id wins over url", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")

		view, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{ProviderTrackID: "abc", TrackURL: "https://soundcloud.com/x/y"},
		})
		require.NoError(t, err)
		assert.Equal(t, "abc", view.ProviderTrackID)
		f.gateway.AssertNotCalled(t, "ResolveTrackURL", mock.Anything, mock.Anything)
	})

	t.Run("not found url is a validation error", func(t *testing.T) {
		f := setup(t)
		f.gateway.On("ResolveTrackURL", mock.Anything, "https://soundcloud.com/gone").
			Return(nil, &services.ProviderAPIError{StatusCode: 404, Message: "Track not found"}).
			Once()

		_, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{TrackURL: "https://soundcloud.com/gone"},
		})
		assert.True(t, types.IsKind(err, types.KindValidation))
	})

	t.Run("provider outage on resolve is upstream", func(t *testing.T) {
		f := setup(t)
		f.gateway.On("ResolveTrackURL", mock.Anything, "https://soundcloud.com/x").
			Return(nil, &services.ProviderAPIError{StatusCode: 500, Message: "boom"}).
			Once()

		_, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{TrackURL: "https://soundcloud.com/x"},
		})
		assert.True(t, types.IsKind(err, types.KindUpstreamUnavailable))
	})
}

func TestCreateOrMerge_ExistenceProbe(t *testing.T) {
	t.Run("already live is a conflict", func(t *testing.T) {
		f := setup(t)
		f.gateway.On("TrackExists", mock.Anything, "pl-1", "abc").Return(true, nil).Once()

		_, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{ProviderTrackID: "abc"},
		})
		appErr, ok := types.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, types.KindConflict, appErr.Kind)
		assert.Equal(t, types.CodeTrackAlreadyInPlaylist, appErr.Code)
	})

	t.Run("provider error is ignored", func(t *testing.T) {
		f := setup(t)
		f.addMember("third")
		f.gateway.On("TrackExists", mock.Anything, "pl-1", "abc").
			Return(false, &services.ProviderAPIError{StatusCode: 502, Message: "flaky"}).
			Once()

		view, err := f.controller.CreateOrMerge(context.Background(), f.member, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{ProviderTrackID: "abc"},
		})
		require.NoError(t, err)
		assert.Equal(t, SuggestionPending, view.Status)
	})

	t.Run("auth error is surfaced", func(t *testing.T) {
		f := setup(t)
		f.gateway.On("TrackExists", mock.Anything, "pl-1", "abc").
			Return(false, &services.ProviderAuthError{Message: "expired"}).
			Once()

		_, err := f.controller.CreateOrMerge(context.Background(), f.owner, f.playlist.ID, CreateRequest{
			Track: access.TrackRef{ProviderTrackID: "abc"},
		})
		appErr, ok := types.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, types.KindUpstreamAuth, appErr.Kind)
		assert.True(t, appErr.OwnerAction)
	})
}

func TestCreateOrMerge_UsesOwnerToken(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.addMember("third")

	f.suggest(t, f.member, "abc")

	users := f.factory.Users()
	require.NotEmpty(t, users)
	for _, user := range users {
		assert.Equal(t, f.owner.ID, user.ID)
		assert.Equal(t, "token-owner", user.AccessToken)
	}
}

func TestCancel(t *testing.T) {
	t.Run("suggester cancels", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")

		view, err := f.controller.Cancel(context.Background(), f.member, created.ID)
		require.NoError(t, err)
		assert.Equal(t, SuggestionCanceled, view.Status)
		assert.Equal(t, ReasonCanceledBySuggester, *view.ResolutionReason)
		assert.Equal(t, &f.member.ID, view.ResolvedByUserID)
		assert.False(t, view.CanCancel)
		f.gateway.AssertNotCalled(t, "AddTracks", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owner cancels", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")

		view, err := f.controller.Cancel(context.Background(), f.owner, created.ID)
		require.NoError(t, err)
		assert.Equal(t, ReasonCanceledByOwner, *view.ResolutionReason)
		assert.Equal(t, SuggestionCanceled, f.store.Suggestion(created.ID).Status)
	})

	t.Run("other member is forbidden", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		third := f.addMember("third")
		created := f.suggest(t, f.member, "abc")

		_, err := f.controller.Cancel(context.Background(), third, created.ID)
		assert.True(t, types.IsKind(err, types.KindPermission))
		assert.Equal(t, SuggestionPending, f.store.Suggestion(created.ID).Status)
	})

	t.Run("terminal is a conflict", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")
		_, err := f.controller.Cancel(context.Background(), f.member, created.ID)
		require.NoError(t, err)

		_, err = f.controller.Cancel(context.Background(), f.owner, created.ID)
		assert.True(t, types.IsKind(err, types.KindConflict))
	})

	t.Run("missing suggestion", func(t *testing.T) {
		f := setup(t)
		_, err := f.controller.Cancel(context.Background(), f.owner, uuid.New())
		assert.True(t, types.IsKind(err, types.KindNotFound))
	})
}

func TestForceAdd(t *testing.T) {
	t.Run("owner force adds", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")

		f.expectAdd("abc", nil)
		view, err := f.controller.ForceAdd(context.Background(), f.owner, created.ID)
		require.NoError(t, err)
		assert.Equal(t, SuggestionAccepted, view.Status)
		assert.Equal(t, ReasonForceAdd, *view.ResolutionReason)
		assert.False(t, view.CanForceAdd)

		additions := f.store.TrackAdditions()
		require.Len(t, additions, 1)
		assert.Equal(t, &f.owner.ID, additions[0].AddedByUserID)
		assert.Equal(t, &created.ID, additions[0].SuggestionID)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")

		_, err := f.controller.ForceAdd(context.Background(), f.member, created.ID)
		assert.True(t, types.IsKind(err, types.KindPermission))
	})

	t.Run("terminal is a conflict", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")
		_, err := f.controller.Cancel(context.Background(), f.member, created.ID)
		require.NoError(t, err)

		_, err = f.controller.ForceAdd(context.Background(), f.owner, created.ID)
		assert.True(t, types.IsKind(err, types.KindConflict))
		f.gateway.AssertNotCalled(t, "AddTracks", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider failure keeps it pending", func(t *testing.T) {
		f := setup(t)
		f.trackIsNotLive()
		f.addMember("third")
		created := f.suggest(t, f.member, "abc")

		f.expectAdd("abc", &services.ProviderAPIError{StatusCode: 500, Message: "boom"})
		_, err := f.controller.ForceAdd(context.Background(), f.owner, created.ID)
		assert.True(t, types.IsKind(err, types.KindUpstreamUnavailable))
		assert.Equal(t, SuggestionPending, f.store.Suggestion(created.ID).Status)
	})
}

func TestResolveIfAllVoted_MemberLeaves(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	third := f.addMember("third")

	created := f.suggest(t, f.owner, "abc")
	f.react(t, f.member, created.ID, up())
	require.Equal(t, SuggestionPending, f.store.Suggestion(created.ID).Status)

	f.store.RemoveMember(f.playlist, third)

	f.expectAdd("abc", nil)
	resolved, err := f.controller.ResolveIfAllVoted(context.Background(), f.store.Suggestion(created.ID))
	require.NoError(t, err)
	assert.Equal(t, SuggestionAccepted, resolved.Status)
	assert.Equal(t, ReasonThresholdMet, *resolved.ResolutionReason)

	// a second pass is a no-op
	again, err := f.controller.ResolveIfAllVoted(context.Background(), f.store.Suggestion(created.ID))
	require.NoError(t, err)
	assert.Equal(t, SuggestionAccepted, again.Status)
	assert.Len(t, f.store.TrackAdditions(), 1)
}

func TestMarkAlreadyLive(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.addMember("third")
	created := f.suggest(t, f.member, "abc")

	changed, err := f.controller.MarkAlreadyLive(context.Background(), f.store.Suggestion(created.ID))
	require.NoError(t, err)
	assert.True(t, changed)

	stored := f.store.Suggestion(created.ID)
	assert.Equal(t, SuggestionAccepted, stored.Status)
	assert.Equal(t, ReasonThresholdMet, *stored.ResolutionReason)
	assert.Nil(t, stored.ResolvedByUserID)

	additions := f.store.TrackAdditions()
	require.Len(t, additions, 1)
	assert.Nil(t, additions[0].AddedByUserID)

	changed, err = f.controller.MarkAlreadyLive(context.Background(), stored)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, f.store.TrackAdditions(), 1)
	f.gateway.AssertNotCalled(t, "AddTracks", mock.Anything, mock.Anything, mock.Anything)
}

func TestList(t *testing.T) {
	f := setup(t)
	f.trackIsNotLive()
	f.addMember("third")

	first := f.suggest(t, f.member, "one")
	second := f.suggest(t, f.member, "two")
	_, err := f.controller.Cancel(context.Background(), f.member, first.ID)
	require.NoError(t, err)

	all, err := f.controller.List(context.Background(), f.owner, f.playlist.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	pending := SuggestionPending
	filtered, err := f.controller.List(context.Background(), f.owner, f.playlist.ID, &pending)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)
	assert.True(t, filtered[0].CanForceAdd)
	assert.True(t, filtered[0].CanCancel)

	unknown := SuggestionStatus("archived")
	_, err = f.controller.List(context.Background(), f.owner, f.playlist.ID, &unknown)
	assert.True(t, types.IsKind(err, types.KindValidation))
}
