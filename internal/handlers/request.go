package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"votuna/internal/handlers/middleware"
	"votuna/internal/models"
	"votuna/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return types.NewValidation("Invalid request body")
	}
	return validateRequest(out)
}

func parseQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return types.NewValidation("Invalid query parameters")
	}
	return validateRequest(out)
}

func validateRequest(out any) error {
	err := validate.Struct(out)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		field := fieldErrors[0]
		if field.Param() != "" {
			return types.NewValidation(fmt.Sprintf("%s must satisfy %s=%s", field.Field(), field.Tag(), field.Param()))
		}
		return types.NewValidation(fmt.Sprintf("%s must satisfy %s", field.Field(), field.Tag()))
	}
	return types.NewValidation("Invalid request")
}

func paramUUID(c *fiber.Ctx, name, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, types.NewValidation("Invalid " + label + " ID")
	}
	return id, nil
}

func requireUser(c *fiber.Ctx) (*models.User, error) {
	user := middleware.GetUser(c)
	if user == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	return user, nil
}

// errorStatus maps an error onto the HTTP status the client sees. An expired
// provider token is the owner's to fix (401); a member can only report it (409).
func errorStatus(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	appErr, ok := types.AsAppError(err)
	if !ok {
		return fiber.StatusInternalServerError
	}

	switch appErr.Kind {
	case types.KindValidation:
		return fiber.StatusBadRequest
	case types.KindPermission:
		return fiber.StatusForbidden
	case types.KindNotFound:
		return fiber.StatusNotFound
	case types.KindConflict:
		return fiber.StatusConflict
	case types.KindUpstreamAuth:
		if appErr.OwnerAction {
			return fiber.StatusUnauthorized
		}
		return fiber.StatusConflict
	case types.KindUpstreamUnavailable:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *fiber.Ctx, log logger.Logger, err error) error {
	status := errorStatus(err)

	body := fiber.Map{"error": "Internal server error", "code": nil}
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		body["error"] = fiberErr.Message
	case status != fiber.StatusInternalServerError:
		appErr, _ := types.AsAppError(err)
		body["error"] = appErr.Message
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
	}

	if status >= fiber.StatusInternalServerError {
		log.Er("request failed", err, "path", c.Path())
	} else {
		log.Debug("request rejected", "path", c.Path(), "status", status, "error", err.Error())
	}

	return c.Status(status).JSON(body)
}
