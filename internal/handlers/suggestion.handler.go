package handlers

import (
	"votuna/internal/app"
	suggestionController "votuna/internal/controllers/suggestions"
	"votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type SuggestionHandler struct {
	Handler
	suggestions          fiber.Router
	suggestionController suggestionController.SuggestionControllerInterface
}

type createSuggestionRequest struct {
	trackRefRequest
	AllowResuggest bool `json:"allowResuggest"`
}

type reactionRequest struct {
	// A null reaction clears the caller's vote.
	Reaction *string `json:"reaction" validate:"omitempty,oneof=up down"`
}

type listSuggestionsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending accepted rejected canceled"`
}

func NewSuggestionHandler(app app.App, playlists fiber.Router, suggestions fiber.Router) *SuggestionHandler {
	log := logger.New("handlers").File("suggestion_handler")
	return &SuggestionHandler{
		suggestions:          suggestions,
		suggestionController: app.Controllers.Suggestion,
		Handler: Handler{
			log:        log,
			router:     playlists,
			middleware: app.Middleware,
		},
	}
}

func (h *SuggestionHandler) Register() {
	h.router.Get("/:id/suggestions", h.listSuggestions)
	h.router.Post("/:id/suggestions", h.createSuggestion)

	h.suggestions.Put("/:id/reaction", h.setReaction)
	h.suggestions.Post("/:id/cancel", h.cancel)
	h.suggestions.Post("/:id/force-add", h.forceAdd)
}

func (h *SuggestionHandler) listSuggestions(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listSuggestions")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var query listSuggestionsQuery
	if err := parseQuery(c, &query); err != nil {
		return h.respondError(c, log, err)
	}

	var status *models.SuggestionStatus
	if query.Status != "" {
		value := models.SuggestionStatus(query.Status)
		status = &value
	}

	suggestions, err := h.suggestionController.List(c.UserContext(), user, playlistID, status)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"suggestions": suggestions})
}

func (h *SuggestionHandler) createSuggestion(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createSuggestion")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req createSuggestionRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	suggestion, err := h.suggestionController.CreateOrMerge(c.UserContext(), user, playlistID, suggestionController.CreateRequest{
		Track:          req.ref(),
		AllowResuggest: req.AllowResuggest,
	})
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"suggestion": suggestion})
}

func (h *SuggestionHandler) setReaction(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("setReaction")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	suggestionID, err := paramUUID(c, "id", "suggestion")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req reactionRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	var reaction *models.ReactionValue
	if req.Reaction != nil {
		value := models.ReactionValue(*req.Reaction)
		reaction = &value
	}

	suggestion, err := h.suggestionController.SetReaction(c.UserContext(), user, suggestionID, reaction)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"suggestion": suggestion})
}

func (h *SuggestionHandler) cancel(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("cancel")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	suggestionID, err := paramUUID(c, "id", "suggestion")
	if err != nil {
		return h.respondError(c, log, err)
	}

	suggestion, err := h.suggestionController.Cancel(c.UserContext(), user, suggestionID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"suggestion": suggestion})
}

func (h *SuggestionHandler) forceAdd(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("forceAdd")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	suggestionID, err := paramUUID(c, "id", "suggestion")
	if err != nil {
		return h.respondError(c, log, err)
	}

	suggestion, err := h.suggestionController.ForceAdd(c.UserContext(), user, suggestionID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"suggestion": suggestion})
}
