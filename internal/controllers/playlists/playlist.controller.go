package playlistController

import (
	"context"
	"errors"
	"strings"
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

type PlaylistType string

const (
	PlaylistPersonal      PlaylistType = "personal"
	PlaylistCollaborative PlaylistType = "collaborative"
)

type PlaylistController struct {
	playlistRepo      repositories.PlaylistRepository
	memberRepo        repositories.MemberRepository
	settingsRepo      repositories.SettingsRepository
	suggestionRepo    repositories.SuggestionRepository
	trackAdditionRepo repositories.TrackAdditionRepository
	userRepo          repositories.UserRepository
	access            *access.Resolver
	transaction       services.Transactor
	db                *gorm.DB
	now               func() time.Time
	log               logger.Logger
}

type PlaylistControllerInterface interface {
	CreatePlaylist(ctx context.Context, user *User, request CreatePlaylistRequest) (*PlaylistDetail, error)
	GetPlaylist(ctx context.Context, user *User, playlistID uuid.UUID) (*PlaylistDetail, error)
	ListPlaylists(ctx context.Context, user *User) ([]*Playlist, error)
	UpdateSettings(
		ctx context.Context,
		user *User,
		playlistID uuid.UUID,
		update SettingsUpdate,
	) (*PlaylistSettings, error)
	SyncPlaylist(ctx context.Context, user *User, playlistID uuid.UUID) (*Playlist, error)
	ListMembers(ctx context.Context, user *User, playlistID uuid.UUID) ([]*MemberView, error)
	Personalize(ctx context.Context, user *User, playlistID uuid.UUID) (*PersonalizeResult, error)
	ListTracks(ctx context.Context, user *User, playlistID uuid.UUID) ([]*TrackView, error)
	AddTrackDirect(ctx context.Context, user *User, playlistID uuid.UUID, ref access.TrackRef) (*TrackView, error)
	RemoveTrack(ctx context.Context, user *User, playlistID uuid.UUID, trackID string) error
	SearchTracks(
		ctx context.Context,
		user *User,
		playlistID uuid.UUID,
		query string,
		limit int,
	) ([]types.ProviderTrack, error)
	ImportTracks(ctx context.Context, user *User, playlistID uuid.UUID, request ImportRequest) (*ImportResult, error)
	PreviewImport(ctx context.Context, user *User, playlistID uuid.UUID, request ImportRequest) (*ImportPreview, error)
	ListSourceTracks(
		ctx context.Context,
		user *User,
		playlistID uuid.UUID,
		query SourceTracksQuery,
	) (*SourceTracksPage, error)
}

type CreatePlaylistRequest struct {
	Provider           string
	ProviderPlaylistID string
}

// PlaylistDetail is a playlist with its settings and the caller's relation to it.
type PlaylistDetail struct {
	*Playlist
	PlaylistType PlaylistType `json:"playlistType"`
	IsOwner      bool         `json:"isOwner"`
}

// SettingsUpdate applies only the fields that are set.
type SettingsUpdate struct {
	RequiredVotePercent *int
	TieBreakMode        *TieBreakMode
}

type MemberView struct {
	UserID         uuid.UUID  `json:"userId"`
	DisplayName    string     `json:"displayName"`
	AvatarURL      *string    `json:"avatarUrl,omitempty"`
	ProfileURL     *string    `json:"profileUrl,omitempty"`
	Role           MemberRole `json:"role"`
	JoinedAt       time.Time  `json:"joinedAt"`
	SuggestedCount int        `json:"suggestedCount"`
}

type PersonalizeResult struct {
	PlaylistType         PlaylistType `json:"playlistType"`
	RemovedCollaborators int          `json:"removedCollaborators"`
	CanceledSuggestions  int          `json:"canceledSuggestions"`
}

func New(
	repos repositories.Repository,
	transaction services.Transactor,
	resolver *access.Resolver,
	db *gorm.DB,
) PlaylistControllerInterface {
	return &PlaylistController{
		playlistRepo:      repos.Playlist,
		memberRepo:        repos.Member,
		settingsRepo:      repos.Settings,
		suggestionRepo:    repos.Suggestion,
		trackAdditionRepo: repos.TrackAddition,
		userRepo:          repos.User,
		access:            resolver,
		transaction:       transaction,
		db:                db,
		now:               func() time.Time { return time.Now().UTC() },
		log:               logger.New("playlistController"),
	}
}

// CreatePlaylist enables an existing provider playlist. Metadata is fetched with
// the creator's own token.
func (c *PlaylistController) CreatePlaylist(
	ctx context.Context,
	user *User,
	request CreatePlaylistRequest,
) (*PlaylistDetail, error) {
	log := c.log.TraceFromContext(ctx).Function("CreatePlaylist")

	provider := strings.ToLower(strings.TrimSpace(request.Provider))
	providerPlaylistID := strings.TrimSpace(request.ProviderPlaylistID)
	if providerPlaylistID == "" {
		return nil, types.NewValidation("provider_playlist_id is required")
	}

	_, err := c.playlistRepo.GetByProviderPlaylistID(ctx, c.db, provider, providerPlaylistID)
	if err == nil {
		return nil, types.NewConflict("Playlist already enabled")
	}
	if !errors.Is(err, repositories.ErrPlaylistNotFound) {
		return nil, log.Err("failed to check existing playlist", err, "provider", provider)
	}

	gateway, err := c.access.ActorGateway(ctx, provider, user)
	if err != nil {
		return nil, err
	}

	remote, err := gateway.GetPlaylist(ctx, providerPlaylistID)
	if err != nil {
		return nil, access.ProviderError(err, true)
	}

	playlist := &Playlist{
		OwnerUserID:        user.ID,
		Provider:           gateway.Provider(),
		ProviderPlaylistID: providerPlaylistID,
		IsActive:           true,
	}
	if remote.ProviderPlaylistID != "" {
		playlist.ProviderPlaylistID = remote.ProviderPlaylistID
	}
	playlist.ApplySnapshot(snapshotOf(remote), c.now())

	settings := NewDefaultSettings(uuid.Nil)
	err = c.transaction.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		if err := c.playlistRepo.Create(txCtx, tx, playlist); err != nil {
			return err
		}

		settings.PlaylistID = playlist.ID
		if err := c.settingsRepo.Create(txCtx, tx, settings); err != nil {
			return err
		}

		return c.memberRepo.Create(txCtx, tx, &PlaylistMember{
			PlaylistID: playlist.ID,
			UserID:     user.ID,
			Role:       MemberRoleOwner,
			JoinedAt:   c.now(),
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, types.NewConflict("Playlist already enabled")
	}
	if err != nil {
		return nil, log.Err("failed to create playlist", err, "provider", provider)
	}

	log.Info("playlist enabled", "playlistID", playlist.ID, "provider", playlist.Provider)

	playlist.Settings = settings
	return &PlaylistDetail{Playlist: playlist, PlaylistType: PlaylistPersonal, IsOwner: true}, nil
}

func snapshotOf(remote *types.ProviderPlaylist) ProviderPlaylistSnapshot {
	return ProviderPlaylistSnapshot{
		Title:       remote.Title,
		Description: remote.Description,
		ImageURL:    remote.ImageURL,
		TrackCount:  remote.TrackCount,
		IsPublic:    remote.IsPublic,
	}
}

func (c *PlaylistController) GetPlaylist(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
) (*PlaylistDetail, error) {
	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}

	playlistType, err := c.playlistType(ctx, playlistAccess.Playlist)
	if err != nil {
		return nil, err
	}

	return &PlaylistDetail{
		Playlist:     playlistAccess.Playlist,
		PlaylistType: playlistType,
		IsOwner:      playlistAccess.IsOwner,
	}, nil
}

func (c *PlaylistController) ListPlaylists(ctx context.Context, user *User) ([]*Playlist, error) {
	log := c.log.TraceFromContext(ctx).Function("ListPlaylists")

	playlists, err := c.playlistRepo.ListForUser(ctx, c.db, user.ID)
	if err != nil {
		return nil, log.Err("failed to list playlists", err, "userID", user.ID)
	}
	return playlists, nil
}

func (c *PlaylistController) playlistType(ctx context.Context, playlist *Playlist) (PlaylistType, error) {
	collaborative, err := c.access.IsCollaborative(ctx, playlist)
	if err != nil {
		return "", err
	}
	if collaborative {
		return PlaylistCollaborative, nil
	}
	return PlaylistPersonal, nil
}

func (c *PlaylistController) UpdateSettings(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	update SettingsUpdate,
) (*PlaylistSettings, error) {
	log := c.log.TraceFromContext(ctx).Function("UpdateSettings")

	if update.RequiredVotePercent != nil &&
		(*update.RequiredVotePercent < 1 || *update.RequiredVotePercent > 100) {
		return nil, types.NewValidation("required_vote_percent must be between 1 and 100")
	}
	if update.TieBreakMode != nil && !update.TieBreakMode.Valid() {
		return nil, types.NewValidation("tie_break_mode must be add or reject")
	}

	playlistAccess, err := c.access.ForOwner(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}

	collaborative, err := c.access.IsCollaborative(ctx, playlistAccess.Playlist)
	if err != nil {
		return nil, err
	}
	if !collaborative {
		return nil, types.NewConflict("Voting settings are disabled for personal playlists").
			WithCode(types.CodePersonalSettingsDisabled)
	}

	settings, err := c.settingsRepo.GetByPlaylistID(ctx, c.db, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return nil, types.NewNotFound("Settings not found")
		}
		return nil, log.Err("failed to load settings", err, "playlistID", playlistID)
	}

	if update.RequiredVotePercent != nil {
		settings.RequiredVotePercent = *update.RequiredVotePercent
	}
	if update.TieBreakMode != nil {
		settings.TieBreakMode = *update.TieBreakMode
	}

	if err := c.settingsRepo.Update(ctx, c.db, settings); err != nil {
		return nil, log.Err("failed to update settings", err, "playlistID", playlistID)
	}

	log.Info(
		"settings updated",
		"playlistID", playlistID,
		"requiredVotePercent", settings.RequiredVotePercent,
		"tieBreakMode", settings.TieBreakMode,
	)
	return settings, nil
}

// SyncPlaylist refreshes the overlay from the provider using the owner's token.
func (c *PlaylistController) SyncPlaylist(ctx context.Context, user *User, playlistID uuid.UUID) (*Playlist, error) {
	log := c.log.TraceFromContext(ctx).Function("SyncPlaylist")

	playlistAccess, err := c.access.ForMember(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	playlist := playlistAccess.Playlist

	gateway, err := c.access.Gateway(ctx, playlist, playlistAccess.IsOwner)
	if err != nil {
		return nil, err
	}

	remote, err := gateway.GetPlaylist(ctx, playlist.ProviderPlaylistID)
	if err != nil {
		return nil, access.ProviderError(err, playlistAccess.IsOwner)
	}

	playlist.ApplySnapshot(snapshotOf(remote), c.now())
	if err := c.playlistRepo.Update(ctx, c.db, playlist); err != nil {
		return nil, log.Err("failed to save synced playlist", err, "playlistID", playlist.ID)
	}

	return playlist, nil
}

func (c *PlaylistController) ListMembers(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
) ([]*MemberView, error) {
	log := c.log.TraceFromContext(ctx).Function("ListMembers")

	if _, err := c.access.ForMember(ctx, playlistID, user); err != nil {
		return nil, err
	}

	counts, err := c.suggestionRepo.CountBySuggester(ctx, c.db, playlistID)
	if err != nil {
		return nil, log.Err("failed to count suggestions", err, "playlistID", playlistID)
	}

	members, err := c.memberRepo.ListMembers(ctx, c.db, playlistID)
	if err != nil {
		return nil, log.Err("failed to list members", err, "playlistID", playlistID)
	}

	views := make([]*MemberView, 0, len(members))
	for _, member := range members {
		view := &MemberView{
			UserID:         member.UserID,
			Role:           member.Role,
			JoinedAt:       member.JoinedAt,
			SuggestedCount: counts[member.UserID],
		}
		if member.User != nil {
			view.DisplayName = member.User.Name()
			view.AvatarURL = member.User.AvatarURL
			view.ProfileURL = member.User.ProfileURL()
		}
		views = append(views, view)
	}

	return views, nil
}

// Personalize turns a collaborative playlist back into a personal one: every
// non-owner member is removed and every pending suggestion canceled by the owner.
func (c *PlaylistController) Personalize(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
) (*PersonalizeResult, error) {
	log := c.log.TraceFromContext(ctx).Function("Personalize")

	if _, err := c.access.ForOwner(ctx, playlistID, user); err != nil {
		return nil, err
	}

	result := &PersonalizeResult{PlaylistType: PlaylistPersonal}
	err := c.transaction.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		removed, err := c.memberRepo.RemoveNonOwnerMembers(txCtx, tx, playlistID, user.ID)
		if err != nil {
			return err
		}
		result.RemovedCollaborators = removed

		canceled, err := c.suggestionRepo.CancelPendingForPlaylist(txCtx, tx, playlistID, user.ID, c.now())
		if err != nil {
			return err
		}
		result.CanceledSuggestions = canceled
		return nil
	})
	if err != nil {
		return nil, log.Err("failed to personalize playlist", err, "playlistID", playlistID)
	}

	metrics.SuggestionResolutions.
		WithLabelValues(string(SuggestionCanceled), string(ReasonCanceledByOwner)).
		Add(float64(result.CanceledSuggestions))

	log.Info(
		"playlist personalized",
		"playlistID", playlistID,
		"removedCollaborators", result.RemovedCollaborators,
		"canceledSuggestions", result.CanceledSuggestions,
	)
	return result, nil
}
