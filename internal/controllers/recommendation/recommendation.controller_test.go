package recommendationController

import (
	"context"
	"testing"
	"time"
	"votuna/internal/controllers/access"
	. "votuna/internal/models"
	"votuna/internal/repositories/repotest"
	"votuna/internal/services"
	"votuna/internal/services/servicetest"
	"votuna/internal/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func track(id, artist string) types.ProviderTrack {
	return types.ProviderTrack{ProviderTrackID: id, Title: "Title " + id, Artist: &artist}
}

func ids(recommendations []Recommendation) []string {
	result := make([]string, 0, len(recommendations))
	for _, recommendation := range recommendations {
		result = append(result, recommendation.ProviderTrackID)
	}
	return result
}

func TestRank(t *testing.T) {
	t.Run("co-occurrence beats seed order", func(t *testing.T) {
		ranked := Rank([][]types.ProviderTrack{
			{track("x", "A"), track("y", "B")},
			{track("y", "B"), track("z", "C")},
		}, nil)
		assert.Equal(t, []string{"y", "x", "z"}, ids(ranked))
		assert.Equal(t, 2, ranked[0].Score)
	})

	t.Run("ties go to earlier seed then smaller id", func(t *testing.T) {
		ranked := Rank([][]types.ProviderTrack{
			{track("m", "A"), track("b", "B")},
			{track("a", "C")},
		}, nil)
		assert.Equal(t, []string{"b", "m", "a"}, ids(ranked))
	})

	t.Run("repeat within one seed counts once", func(t *testing.T) {
		ranked := Rank([][]types.ProviderTrack{
			{track("x", "A"), track("x", "A")},
		}, nil)
		require.Len(t, ranked, 1)
		assert.Equal(t, 1, ranked[0].Score)
	})

	t.Run("excluded and blank ids dropped", func(t *testing.T) {
		ranked := Rank([][]types.ProviderTrack{
			{track("live", "A"), track("", "B"), track("ok", "C")},
		}, map[string]bool{"live": true})
		assert.Equal(t, []string{"ok"}, ids(ranked))
	})

	t.Run("at most two per normalized artist", func(t *testing.T) {
		ranked := Rank([][]types.ProviderTrack{
			{track("1", "Bonobo"), track("2", " bonobo"), track("3", "BONOBO"), track("4", "Tycho")},
		}, nil)
		assert.Equal(t, []string{"1", "2", "4"}, ids(ranked))
	})

	t.Run("tracks without artist are not capped", func(t *testing.T) {
		ranked := Rank([][]types.ProviderTrack{
			{{ProviderTrackID: "1"}, {ProviderTrackID: "2"}, {ProviderTrackID: "3"}},
		}, nil)
		assert.Len(t, ranked, 3)
	})

	t.Run("deterministic", func(t *testing.T) {
		related := [][]types.ProviderTrack{
			{track("c", "A"), track("a", "B"), track("b", "C")},
			{track("b", "C"), track("d", "D")},
		}
		first := Rank(related, nil)
		for range 5 {
			assert.Equal(t, first, Rank(related, nil))
		}
	})
}

type fixture struct {
	store      *repotest.Store
	gateway    *servicetest.MockGateway
	controller RecommendationControllerInterface
	owner      *User
	member     *User
	playlist   *Playlist
}

func setup(t *testing.T, cache valkey.Client) *fixture {
	t.Helper()

	store := repotest.New()
	factory := servicetest.NewFactory()
	repos := store.Repository()

	owner := store.AddUser("owner")
	member := store.AddUser("member")
	playlist := store.AddPlaylist(owner, "pl-1")
	store.AddMember(playlist, member)

	t.Cleanup(func() { factory.Gateway.AssertExpectations(t) })

	return &fixture{
		store:      store,
		gateway:    factory.Gateway,
		controller: New(repos, access.New(repos, factory, nil), cache, 10*time.Minute, nil),
		owner:      owner,
		member:     member,
		playlist:   playlist,
	}
}

func (f *fixture) liveTracks(ids ...string) {
	tracks := make([]types.ProviderTrack, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, types.ProviderTrack{ProviderTrackID: id})
	}
	f.gateway.On("ListTracks", mock.Anything, "pl-1").Return(tracks, nil)
}

func TestRecommendations_FiltersAndPages(t *testing.T) {
	f := setup(t, nil)
	f.liveTracks("seed")

	f.gateway.On("RelatedTracks", mock.Anything, "seed", RelatedPerSeed, 0).Return([]types.ProviderTrack{
		track("seed", "Self"),
		track("pending", "A"),
		track("declined", "B"),
		track("r1", "C"),
		track("r2", "D"),
		track("r3", "E"),
	}, nil).Once()

	f.store.AddSuggestion(Suggestion{PlaylistID: f.playlist.ID, ProviderTrackID: "pending", Status: SuggestionPending})
	require.NoError(t, f.controller.DeclineRecommendation(context.Background(), f.member, f.playlist.ID, "declined"))

	page, err := f.controller.Recommendations(context.Background(), f.member, f.playlist.ID, Query{
		Nonce:  "n",
		Offset: 1,
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"r2"}, ids(page.Tracks))
}

func TestRecommendations_DeclineIsPerUser(t *testing.T) {
	f := setup(t, nil)
	f.liveTracks("seed")
	f.gateway.On("RelatedTracks", mock.Anything, "seed", RelatedPerSeed, 0).
		Return([]types.ProviderTrack{track("r1", "A")}, nil).Twice()

	require.NoError(t, f.controller.DeclineRecommendation(context.Background(), f.member, f.playlist.ID, "r1"))

	mine, err := f.controller.Recommendations(context.Background(), f.member, f.playlist.ID, Query{})
	require.NoError(t, err)
	assert.Empty(t, mine.Tracks)

	theirs, err := f.controller.Recommendations(context.Background(), f.owner, f.playlist.ID, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(theirs.Tracks))
}

func TestRecommendations_FailedSeedSkipped(t *testing.T) {
	f := setup(t, nil)
	f.liveTracks("good", "bad")

	f.gateway.On("RelatedTracks", mock.Anything, "good", RelatedPerSeed, 0).
		Return([]types.ProviderTrack{track("r1", "A")}, nil).Once()
	f.gateway.On("RelatedTracks", mock.Anything, "bad", RelatedPerSeed, 0).
		Return(nil, &services.ProviderAPIError{StatusCode: 500, Message: "boom"}).Once()

	page, err := f.controller.Recommendations(context.Background(), f.owner, f.playlist.ID, Query{Nonce: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(page.Tracks))
}

func TestRecommendations_SeedsCapped(t *testing.T) {
	f := setup(t, nil)
	live := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10"}
	f.liveTracks(live...)
	f.gateway.On("RelatedTracks", mock.Anything, mock.Anything, RelatedPerSeed, 0).
		Return([]types.ProviderTrack{}, nil)

	_, err := f.controller.Recommendations(context.Background(), f.owner, f.playlist.ID, Query{Nonce: "x"})
	require.NoError(t, err)
	f.gateway.AssertNumberOfCalls(t, "RelatedTracks", MaxSeeds)
}

func TestRelatedTracks_SharedLoadOutlivesCaller(t *testing.T) {
	f := setup(t, nil)
	notCanceled := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	f.gateway.On("RelatedTracks", notCanceled, "seed", RelatedPerSeed, 0).
		Return([]types.ProviderTrack{track("r1", "A")}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	controller := f.controller.(*RecommendationController)
	tracks, err := controller.relatedTracks(ctx, f.gateway, ProviderSoundCloud, "seed")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "r1", tracks[0].ProviderTrackID)
}

func TestRecommendations_CachedRelatedTracks(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{mr.Addr()}, DisableCache: true})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	f := setup(t, client)
	f.liveTracks("seed")
	f.gateway.On("RelatedTracks", mock.Anything, "seed", RelatedPerSeed, 0).
		Return([]types.ProviderTrack{track("r1", "A")}, nil).Once()

	for range 2 {
		page, err := f.controller.Recommendations(context.Background(), f.owner, f.playlist.ID, Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{"r1"}, ids(page.Tracks))
	}

	key := "related_tracks:soundcloud:seed:25"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))
}

func TestRecommendations_Validation(t *testing.T) {
	f := setup(t, nil)

	for _, query := range []Query{{Limit: -1}, {Limit: MaxLimit + 1}, {Offset: -1}} {
		_, err := f.controller.Recommendations(context.Background(), f.owner, f.playlist.ID, query)
		assert.True(t, types.IsKind(err, types.KindValidation))
	}

	stranger := f.store.AddUser("stranger")
	_, err := f.controller.Recommendations(context.Background(), stranger, f.playlist.ID, Query{})
	assert.True(t, types.IsKind(err, types.KindPermission))
}

func TestDeclineRecommendation_Upserts(t *testing.T) {
	f := setup(t, nil)

	require.NoError(t, f.controller.DeclineRecommendation(context.Background(), f.member, f.playlist.ID, "r1"))
	require.NoError(t, f.controller.DeclineRecommendation(context.Background(), f.member, f.playlist.ID, " r1 "))

	declines := f.store.Declines()
	require.Len(t, declines, 1)
	assert.Equal(t, "r1", declines[0].ProviderTrackID)

	err := f.controller.DeclineRecommendation(context.Background(), f.member, f.playlist.ID, "  ")
	assert.True(t, types.IsKind(err, types.KindValidation))
}
