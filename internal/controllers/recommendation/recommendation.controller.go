package recommendationController

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"votuna/internal/constants"
	"votuna/internal/controllers/access"
	"votuna/internal/database"
	. "votuna/internal/models"
	"votuna/internal/repositories"
	"votuna/internal/services"
	"votuna/internal/types"
	"votuna/internal/utils"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	MaxSeeds        = 8
	RelatedPerSeed  = 25
	MaxPerArtist    = 2
	DefaultLimit    = 10
	MaxLimit        = 50
	seedConcurrency = 4
)

type RecommendationController struct {
	suggestionRepo repositories.SuggestionRepository
	declineRepo    repositories.RecommendationDeclineRepository
	access         *access.Resolver
	cache          database.CacheClient
	cacheTTL       time.Duration
	related        singleflight.Group
	db             *gorm.DB
	now            func() time.Time
	log            logger.Logger
}

type RecommendationControllerInterface interface {
	Recommendations(
		ctx context.Context,
		user *User,
		playlistID uuid.UUID,
		query Query,
	) (*RecommendationPage, error)
	DeclineRecommendation(ctx context.Context, user *User, playlistID uuid.UUID, trackID string) error
}

// Query pages through the ranked list. The same Nonce always picks the same
// seeds; a new one reshuffles them.
type Query struct {
	Nonce  string
	Offset int
	Limit  int
}

type Recommendation struct {
	types.ProviderTrack
	Score int `json:"score"`
}

type RecommendationPage struct {
	Tracks []Recommendation `json:"tracks"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

func New(
	repos repositories.Repository,
	resolver *access.Resolver,
	cache database.CacheClient,
	cacheTTL time.Duration,
	db *gorm.DB,
) RecommendationControllerInterface {
	return &RecommendationController{
		suggestionRepo: repos.Suggestion,
		declineRepo:    repos.RecommendationDecline,
		access:         resolver,
		cache:          cache,
		cacheTTL:       cacheTTL,
		db:             db,
		now:            func() time.Time { return time.Now().UTC() },
		log:            logger.New("recommendationController"),
	}
}

func (c *RecommendationController) Recommendations(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	query Query,
) (*RecommendationPage, error) {
	log := c.log.TraceFromContext(ctx).Function("Recommendations")

	if query.Limit == 0 {
		query.Limit = DefaultLimit
	}
	if query.Limit < 1 || query.Limit > MaxLimit {
		return nil, types.NewValidation(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	if query.Offset < 0 {
		return nil, types.NewValidation("offset must not be negative")
	}

	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	playlist := playlistAccess.Playlist

	gateway, err := c.access.Gateway(ctx, playlist, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}

	live, err := gateway.ListTracks(ctx, playlist.ProviderPlaylistID)
	if err != nil {
		return nil, access.ProviderError(err, playlistAccess.IsOwner)
	}

	exclude := make(map[string]bool, len(live))
	liveIDs := make([]string, 0, len(live))
	for _, track := range live {
		if track.ProviderTrackID == "" {
			continue
		}
		exclude[track.ProviderTrackID] = true
		liveIDs = append(liveIDs, track.ProviderTrackID)
	}

	pending, err := c.suggestionRepo.ListPendingTrackIDs(ctx, c.db, playlist.ID)
	if err != nil {
		return nil, log.Err("failed to list pending tracks", err, "playlistID", playlist.ID)
	}
	declined, err := c.declineRepo.ListTrackIDs(ctx, c.db, playlist.ID, user.ID)
	if err != nil {
		return nil, log.Err("failed to list declined tracks", err, "playlistID", playlist.ID)
	}
	for _, trackID := range append(pending, declined...) {
		exclude[trackID] = true
	}

	seeds := utils.RankByNonce(liveIDs, query.Nonce, MaxSeeds)
	related := c.fetchRelated(ctx, gateway, playlist.Provider, seeds)

	ranked := Rank(related, exclude)

	page := &RecommendationPage{
		Tracks: []Recommendation{},
		Total:  len(ranked),
		Offset: query.Offset,
		Limit:  query.Limit,
	}
	if query.Offset < len(ranked) {
		end := min(query.Offset+query.Limit, len(ranked))
		page.Tracks = ranked[query.Offset:end]
	}

	log.Debug("recommendations ranked", "playlistID", playlist.ID, "seeds", len(seeds), "candidates", len(ranked))
	return page, nil
}

// fetchRelated looks up related tracks for every seed in parallel. The result
// is indexed like seeds; a seed whose lookup failed gets nil and is skipped.
func (c *RecommendationController) fetchRelated(
	ctx context.Context,
	gateway services.ProviderGateway,
	provider string,
	seeds []string,
) [][]types.ProviderTrack {
	log := c.log.TraceFromContext(ctx).Function("fetchRelated")

	results := make([][]types.ProviderTrack, len(seeds))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(seedConcurrency)
	for i, seed := range seeds {
		group.Go(func() error {
			tracks, err := c.relatedTracks(groupCtx, gateway, provider, seed)
			if err != nil {
				log.Warn("related track lookup failed, skipping seed", "seed", seed, "error", err)
				return nil
			}
			results[i] = tracks
			return nil
		})
	}
	_ = group.Wait()

	return results
}

// relatedTracks serves one seed from the cache, collapsing concurrent misses
// for the same seed into a single provider call.
func (c *RecommendationController) relatedTracks(
	ctx context.Context,
	gateway services.ProviderGateway,
	provider string,
	seed string,
) ([]types.ProviderTrack, error) {
	log := c.log.TraceFromContext(ctx).Function("relatedTracks")

	key := fmt.Sprintf("%s:%s:%d", provider, seed, RelatedPerSeed)

	if c.cache != nil {
		var cached []types.ProviderTrack
		found, err := database.NewCacheBuilder(c.cache, key).
			WithContext(ctx).
			WithHash(constants.RelatedTracksCachePrefix).
			Get(&cached)
		if err != nil {
			log.Warn("related tracks cache read failed", "key", key, "error", err)
		}
		if found {
			return cached, nil
		}
	}

	// The load is shared by every caller waiting on key, so one caller going
	// away must not cancel it for the rest.
	loadCtx := context.WithoutCancel(ctx)
	value, err, _ := c.related.Do(key, func() (any, error) {
		tracks, err := gateway.RelatedTracks(loadCtx, seed, RelatedPerSeed, 0)
		if err != nil {
			return nil, err
		}

		if c.cache != nil {
			err := database.NewCacheBuilder(c.cache, key).
				WithContext(loadCtx).
				WithHash(constants.RelatedTracksCachePrefix).
				WithStruct(tracks).
				WithTTL(c.cacheTTL).
				Set()
			if err != nil {
				log.Warn("related tracks cache write failed", "key", key, "error", err)
			}
		}
		return tracks, nil
	})
	if err != nil {
		return nil, err
	}

	return value.([]types.ProviderTrack), nil
}

type candidate struct {
	track     types.ProviderTrack
	score     int
	firstSeed int
}

// Rank scores candidates by how many seeds surfaced them. Ties go to the
// candidate first surfaced by an earlier seed, then to the smaller track id.
// Excluded ids are dropped and no artist appears more than MaxPerArtist times.
func Rank(related [][]types.ProviderTrack, exclude map[string]bool) []Recommendation {
	candidates := map[string]*candidate{}

	for seedIndex, tracks := range related {
		seen := map[string]bool{}
		for _, track := range tracks {
			id := strings.TrimSpace(track.ProviderTrackID)
			if id == "" || exclude[id] || seen[id] {
				continue
			}
			seen[id] = true

			entry, ok := candidates[id]
			if !ok {
				entry = &candidate{track: track, firstSeed: seedIndex}
				candidates[id] = entry
			}
			entry.score++
		}
	}

	ordered := make([]*candidate, 0, len(candidates))
	for _, entry := range candidates {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.firstSeed != b.firstSeed {
			return a.firstSeed < b.firstSeed
		}
		return a.track.ProviderTrackID < b.track.ProviderTrackID
	})

	perArtist := map[string]int{}
	ranked := make([]Recommendation, 0, len(ordered))
	for _, entry := range ordered {
		artist := utils.NormalizePtr(entry.track.Artist)
		if artist != "" {
			if perArtist[artist] >= MaxPerArtist {
				continue
			}
			perArtist[artist]++
		}
		ranked = append(ranked, Recommendation{ProviderTrack: entry.track, Score: entry.score})
	}

	return ranked
}

// DeclineRecommendation hides a track from this user's feed for the playlist.
// Declining again refreshes the timestamp.
func (c *RecommendationController) DeclineRecommendation(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	trackID string,
) error {
	log := c.log.TraceFromContext(ctx).Function("DeclineRecommendation")

	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return types.NewValidation("provider_track_id is required")
	}

	if _, err := c.access.ForMember(ctx, playlistID, user); err != nil {
		return err
	}

	decline := &RecommendationDecline{
		PlaylistID:      playlistID,
		UserID:          user.ID,
		ProviderTrackID: trackID,
		DeclinedAt:      c.now(),
	}
	if err := c.declineRepo.Upsert(ctx, c.db, decline); err != nil {
		return log.Err("failed to decline recommendation", err, "playlistID", playlistID, "trackID", trackID)
	}

	return nil
}
