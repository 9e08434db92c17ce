package handlers

import (
	"votuna/internal/app"
	recommendationController "votuna/internal/controllers/recommendation"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type RecommendationHandler struct {
	Handler
	recommendationController recommendationController.RecommendationControllerInterface
}

type recommendationsQuery struct {
	Nonce  string `query:"nonce"  validate:"max=128"`
	Offset int    `query:"offset" validate:"min=0"`
	Limit  int    `query:"limit"  validate:"min=0,max=50"`
}

type declineRequest struct {
	ProviderTrackID string `json:"providerTrackId" validate:"required,max=255"`
}

func NewRecommendationHandler(app app.App, router fiber.Router) *RecommendationHandler {
	log := logger.New("handlers").File("recommendation_handler")
	return &RecommendationHandler{
		recommendationController: app.Controllers.Recommendation,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *RecommendationHandler) Register() {
	h.router.Get("/:id/recommendations", h.listRecommendations)
	h.router.Post("/:id/recommendations/decline", h.decline)
}

func (h *RecommendationHandler) listRecommendations(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listRecommendations")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var query recommendationsQuery
	if err := parseQuery(c, &query); err != nil {
		return h.respondError(c, log, err)
	}

	page, err := h.recommendationController.Recommendations(c.UserContext(), user, playlistID, recommendationController.Query{
		Nonce:  query.Nonce,
		Offset: query.Offset,
		Limit:  query.Limit,
	})
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.JSON(page)
}

func (h *RecommendationHandler) decline(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("decline")

	user, err := requireUser(c)
	if err != nil {
		return h.respondError(c, log, err)
	}
	playlistID, err := paramUUID(c, "id", "playlist")
	if err != nil {
		return h.respondError(c, log, err)
	}

	var req declineRequest
	if err := parseBody(c, &req); err != nil {
		return h.respondError(c, log, err)
	}

	err = h.recommendationController.DeclineRecommendation(c.UserContext(), user, playlistID, req.ProviderTrackID)
	if err != nil {
		return h.respondError(c, log, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
