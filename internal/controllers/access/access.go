// Package access holds the playlist membership checks and provider plumbing
// shared by the playlist, suggestion and recommendation controllers.
package access

import (
	"context"
	"errors"
	"strings"
	. "votuna/internal/models"
	"votuna/internal/repositories"
	"votuna/internal/services"
	"votuna/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Resolver struct {
	playlistRepo repositories.PlaylistRepository
	memberRepo   repositories.MemberRepository
	userRepo     repositories.UserRepository
	providers    services.ProviderFactory
	db           *gorm.DB
	log          logger.Logger
}

// PlaylistAccess is a playlist as seen by one acting user.
type PlaylistAccess struct {
	Playlist *Playlist
	Actor    *User
	IsOwner  bool
}

func New(repos repositories.Repository, providers services.ProviderFactory, db *gorm.DB) *Resolver {
	return &Resolver{
		playlistRepo: repos.Playlist,
		memberRepo:   repos.Member,
		userRepo:     repos.User,
		providers:    providers,
		db:           db,
		log:          logger.New("access"),
	}
}

func (r *Resolver) Playlist(ctx context.Context, playlistID uuid.UUID) (*Playlist, error) {
	log := r.log.TraceFromContext(ctx).Function("Playlist")

	playlist, err := r.playlistRepo.GetByID(ctx, r.db, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlaylistNotFound) {
			return nil, types.NewNotFound("Playlist not found")
		}
		return nil, log.Err("failed to load playlist", err, "playlistID", playlistID)
	}
	return playlist, nil
}

// ForMember loads the playlist and requires user to be one of its members.
func (r *Resolver) ForMember(ctx context.Context, playlistID uuid.UUID, user *User) (*PlaylistAccess, error) {
	log := r.log.TraceFromContext(ctx).Function("ForMember")

	playlist, err := r.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	if _, err := r.memberRepo.GetMember(ctx, r.db, playlist.ID, user.ID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, types.NewPermission("Not a playlist member")
		}
		return nil, log.Err("failed to load membership", err, "playlistID", playlistID, "userID", user.ID)
	}

	return &PlaylistAccess{Playlist: playlist, Actor: user, IsOwner: playlist.IsOwner(user.ID)}, nil
}

// ForOwner loads the playlist and requires user to own it.
func (r *Resolver) ForOwner(ctx context.Context, playlistID uuid.UUID, user *User) (*PlaylistAccess, error) {
	playlist, err := r.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	if !playlist.IsOwner(user.ID) {
		return nil, types.NewPermission("Not playlist owner")
	}

	return &PlaylistAccess{Playlist: playlist, Actor: user, IsOwner: true}, nil
}

func (r *Resolver) IsCollaborative(ctx context.Context, playlist *Playlist) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("IsCollaborative")

	collaborative, err := r.memberRepo.HasNonOwnerMembers(ctx, r.db, playlist.ID, playlist.OwnerUserID)
	if err != nil {
		return false, log.Err("failed to check collaborators", err, "playlistID", playlist.ID)
	}
	return collaborative, nil
}

// Gateway builds a provider client that acts with the playlist owner's token.
// ownerAction tells the error mapping whether the caller can reconnect.
func (r *Resolver) Gateway(ctx context.Context, playlist *Playlist, ownerAction bool) (services.ProviderGateway, error) {
	log := r.log.TraceFromContext(ctx).Function("Gateway")

	owner, err := r.userRepo.GetWithCredentials(ctx, r.db, playlist.OwnerUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, types.NewNotFound("Playlist owner not found")
		}
		return nil, log.Err("failed to load playlist owner", err, "playlistID", playlist.ID)
	}

	gateway, err := r.providers.ForUser(playlist.Provider, owner)
	if err != nil {
		return nil, ProviderError(err, ownerAction)
	}
	return gateway, nil
}

// ActorGateway builds a provider client with the acting user's own token, for
// calls made before a playlist overlay exists.
func (r *Resolver) ActorGateway(ctx context.Context, provider string, user *User) (services.ProviderGateway, error) {
	log := r.log.TraceFromContext(ctx).Function("ActorGateway")

	actor, err := r.userRepo.GetWithCredentials(ctx, r.db, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, types.NewNotFound("User not found")
		}
		return nil, log.Err("failed to load user credentials", err, "userID", user.ID)
	}

	gateway, err := r.providers.ForUser(provider, actor)
	if err != nil {
		return nil, ProviderError(err, true)
	}
	return gateway, nil
}

// ProviderError maps gateway failures onto the engine's error kinds. Errors that
// already carry a kind, and anything that is not a provider error, pass through.
func ProviderError(err error, ownerAction bool) error {
	if err == nil {
		return nil
	}

	if _, ok := types.AsAppError(err); ok {
		return err
	}

	var authErr *services.ProviderAuthError
	if errors.As(err, &authErr) {
		return types.NewUpstreamAuth(ownerAction, err)
	}

	var apiErr *services.ProviderAPIError
	if errors.As(err, &apiErr) {
		return types.NewUpstreamUnavailable(err)
	}

	return err
}

// TrackRef names a track either by provider id or by a shareable URL. An
// explicit id always wins; the URL is only resolved when the id is blank.
type TrackRef struct {
	ProviderTrackID string
	TrackURL        string
	Title           *string
	Artist          *string
	ArtworkURL      *string
}

// Resolve fills in the provider id and any missing metadata.
func (ref TrackRef) Resolve(
	ctx context.Context,
	gateway services.ProviderGateway,
	ownerAction bool,
) (types.ProviderTrack, error) {
	trackID := strings.TrimSpace(ref.ProviderTrackID)
	trackURL := strings.TrimSpace(ref.TrackURL)

	track := types.ProviderTrack{
		ProviderTrackID: trackID,
		Artist:          ref.Artist,
		ArtworkURL:      ref.ArtworkURL,
	}
	if ref.Title != nil {
		track.Title = *ref.Title
	}
	if trackURL != "" {
		track.URL = &trackURL
	}

	if trackID != "" {
		return track, nil
	}

	if trackURL == "" {
		return track, types.NewValidation("Either provider_track_id or track_url is required")
	}

	resolved, err := gateway.ResolveTrackURL(ctx, trackURL)
	if err != nil {
		var apiErr *services.ProviderAPIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 400 || apiErr.StatusCode == 404) {
			return track, &types.AppError{Kind: types.KindValidation, Message: apiErr.Message, Err: err}
		}
		return track, ProviderError(err, ownerAction)
	}

	track.ProviderTrackID = resolved.ProviderTrackID
	if track.Title == "" {
		track.Title = resolved.Title
	}
	if track.Artist == nil {
		track.Artist = resolved.Artist
	}
	if track.ArtworkURL == nil {
		track.ArtworkURL = resolved.ArtworkURL
	}
	track.Genre = resolved.Genre
	if resolved.URL != nil {
		track.URL = resolved.URL
	}

	return track, nil
}

// EnsureNotLive is the advisory duplicate probe. Provider API failures are
// ignored so a flaky upstream never blocks the caller; auth failures are not.
func EnsureNotLive(
	ctx context.Context,
	gateway services.ProviderGateway,
	playlist *Playlist,
	trackID string,
	ownerAction bool,
) error {
	exists, err := gateway.TrackExists(ctx, playlist.ProviderPlaylistID, trackID)
	if err != nil {
		var authErr *services.ProviderAuthError
		if errors.As(err, &authErr) {
			return types.NewUpstreamAuth(ownerAction, err)
		}
		logger.New("access").TraceFromContext(ctx).Function("EnsureNotLive").
			Warn("track existence check failed, continuing", "playlistID", playlist.ID, "trackID", trackID, "error", err)
		return nil
	}

	if exists {
		return types.NewConflict("Track already exists in playlist").WithCode(types.CodeTrackAlreadyInPlaylist)
	}
	return nil
}
