package handlers

import (
	"votuna/internal/app"
	"votuna/internal/controllers/access"
	playlistController "votuna/internal/controllers/playlists"
	"votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type PlaylistHandler struct {
	Handler
	playlistController playlistController.PlaylistControllerInterface
}

type createPlaylistRequest struct {
	Provider           string `json:"provider"           validate:"required,max=32"`
	ProviderPlaylistID string `json:"providerPlaylistId" validate:"required,max=255"`
}

type updateSettingsRequest struct {
	RequiredVotePercent *int    `json:"requiredVotePercent" validate:"omitempty,min=1,max=100"`
	TieBreakMode        *string `json:"tieBreakMode"        validate:"omitempty,oneof=add reject"`
}

type trackRefRequest struct {
	ProviderTrackID string  `json:"providerTrackId" validate:"required_without=TrackURL,max=255"`
	TrackURL        string  `json:"trackUrl"        validate:"omitempty,url,max=2048"`
	Title           *string `json:"title"           validate:"omitempty,max=500"`
	Artist          *string `json:"artist"          validate:"omitempty,max=500"`
	ArtworkURL      *string `json:"artworkUrl"      validate:"omitempty,url,max=2048"`
}

func (r trackRefRequest) ref() access.TrackRef {
	return access.TrackRef{
		ProviderTrackID: r.ProviderTrackID,
		TrackURL:        r.TrackURL,
		Title:           r.Title,
		Artist:          r.Artist,
		ArtworkURL:      r.ArtworkURL,
	}
}

type importRequest struct {
	Direction              string   `json:"direction"              validate:"omitempty,oneof=import_to_current export_from_current"`
	CounterpartyPlaylistID string   `json:"counterpartyPlaylistId" validate:"required,max=255"`
	SelectionMode          string   `json:"selectionMode"          validate:"required,oneof=all songs artist genre"`
	SelectionValues        []string `json:"selectionValues"        validate:"max=500,dive,max=500"`
}

func (r importRequest) request() playlistController.ImportRequest {
	return playlistController.ImportRequest{
		Direction:              playlistController.TransferDirection(r.Direction),
		CounterpartyPlaylistID: r.CounterpartyPlaylistID,
		SelectionMode:          playlistController.SelectionMode(r.SelectionMode),
		SelectionValues:        r.SelectionValues,
	}
}

type sourceTracksQuery struct {
	Source string `query:"source" validate:"required,max=255"`
	Search string `query:"search" validate:"max=200"`
	Limit  int    `query:"limit"  validate:"min=0,max=100"`
	Offset int    `query:"offset" validate:"min=0"`
}

type searchQuery struct {
	Query string `query:"q"     validate:"required,max=200"`
	Limit int    `query:"limit" validate:"min=0,max=25"`
}

func NewPlaylistHandler(app app.App, router fiber.Router) *PlaylistHandler {
	log := logger.New("handlers").File("playlist_handler")
	return &PlaylistHandler{
		playlistController: app.Controllers.Playlist,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *PlaylistHandler) Register() {
	playlists := h.router

	playlists.Get("", h.listPlaylists)
	playlists.Post("", h.createPlaylist)
	playlists.Get("/:id", h.getPlaylist)
	playlists.Patch("/:id/settings", h.updateSettings)
	playlists.Post("/:id/sync", h.syncPlaylist)
	playlists.Post("/:id/personalize", h.personalize)
	playlists.Post("/:id/import", h.importTracks)
	playlists.Post("/:id/import/preview", h.previewImport)
	playlists.Get("/:id/import/source-tracks", h.listSourceTracks)
	playlists.Get("/:id/members", h.listMembers)
	playlists.Get("/:id/tracks/search", h.searchTracks)
	playlists.Get("/:id/tracks", h.listTracks)
	playlists.Post("/:id/tracks", h.addTrack)
	playlists.Delete("/:id/tracks/:trackId", h.removeTrack)
}

func (h *PlaylistHandler) listPlaylists(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listPlaylists")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}

	playlists, err := h.playlistController.ListPlaylists(c.UserContext(), user)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"playlists": playlists})
}

func (h *PlaylistHandler) createPlaylist(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createPlaylist")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req createPlaylistRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	playlist, err := h.playlistController.CreatePlaylist(c.UserContext(), user, playlistController.CreatePlaylistRequest{
		Provider:           req.Provider,
		ProviderPlaylistID: req.ProviderPlaylistID,
	})
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"playlist": playlist})
}

func (h *PlaylistHandler) getPlaylist(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getPlaylist")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	playlist, err := h.playlistController.GetPlaylist(c.UserContext(), user, playlistID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"playlist": playlist})
}

func (h *PlaylistHandler) updateSettings(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateSettings")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req updateSettingsRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	update := playlistController.SettingsUpdate{RequiredVotePercent: req.RequiredVotePercent}
	if req.TieBreakMode != nil {
		mode := models.TieBreakMode(*req.TieBreakMode)
		update.TieBreakMode = &mode
	}

	settings, err := h.playlistController.UpdateSettings(c.UserContext(), user, playlistID, update)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"settings": settings})
}

func (h *PlaylistHandler) syncPlaylist(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("syncPlaylist")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	playlist, err := h.playlistController.SyncPlaylist(c.UserContext(), user, playlistID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"playlist": playlist})
}

func (h *PlaylistHandler) personalize(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("personalize")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	result, err := h.playlistController.Personalize(c.UserContext(), user, playlistID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(result)
}

func (h *PlaylistHandler) importTracks(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("importTracks")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req importRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	result, err := h.playlistController.ImportTracks(c.UserContext(), user, playlistID, req.request())
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(result)
}

func (h *PlaylistHandler) previewImport(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("previewImport")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req importRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	preview, err := h.playlistController.PreviewImport(c.UserContext(), user, playlistID, req.request())
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(preview)
}

func (h *PlaylistHandler) listSourceTracks(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listSourceTracks")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var query sourceTracksQuery
	if err := parseQuery(c, &query); err != nil {
		return h.respondError(c, log, err)
	}

	page, err := h.playlistController.ListSourceTracks(
		c.UserContext(),
		user,
		playlistID,
		playlistController.SourceTracksQuery{
			SourcePlaylistID: query.Source,
			Search:           query.Search,
			Limit:            query.Limit,
			Offset:           query.Offset,
		},
	)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(page)
}

func (h *PlaylistHandler) listMembers(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listMembers")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	members, err := h.playlistController.ListMembers(c.UserContext(), user, playlistID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"members": members})
}

func (h *PlaylistHandler) listTracks(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listTracks")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	tracks, err := h.playlistController.ListTracks(c.UserContext(), user, playlistID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"tracks": tracks})
}

func (h *PlaylistHandler) addTrack(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("addTrack")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req trackRefRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	track, err := h.playlistController.AddTrackDirect(c.UserContext(), user, playlistID, req.ref())
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"track": track})
}

func (h *PlaylistHandler) removeTrack(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("removeTrack")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	if err := h.playlistController.RemoveTrack(c.UserContext(), user, playlistID, c.Params("trackId")); err != nil {
		return h.respondError(c, log, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlaylistHandler) searchTracks(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("searchTracks")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var query searchQuery
	if err := parseQuery(c, &query); err != nil {
		return h.respondError(c, log, err)
	}
	if query.Limit == 0 {
		query.Limit = 10
	}

	tracks, err := h.playlistController.SearchTracks(c.UserContext(), user, playlistID, query.Query, query.Limit)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"tracks": tracks})
}
