package middleware

import (
	"context"
	"fmt"
	"strings"
	"votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthContextKey is used to store auth info in context
type AuthContextKey string

const (
	UserKey      AuthContextKey = "user"
	UserKeyFiber string         = "User"
)

// RequireAuth validates an HS256 bearer token whose subject is the user id.
// Token issuance happens outside this service.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.New("middleware").TraceFromContext(c.UserContext()).Function("RequireAuth")

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
			log.Info("invalid authorization header format")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		userID, err := m.parseToken(tokenParts[1])
		if err != nil {
			log.Info("token validation failed", "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		user, err := m.userRepo.GetByID(c.UserContext(), m.DB.SQL, userID)
		if err != nil {
			log.Info("user not found in database", "userID", userID, "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		c.Locals(UserKeyFiber, user)

		// Preserve the trace id set by TraceID.
		ctx := context.WithValue(c.UserContext(), UserKey, user)
		c.SetUserContext(ctx)

		log.Debug("user authenticated", "userID", user.ID)
		return c.Next()
	}
}

func (m *Middleware) parseToken(raw string) (uuid.UUID, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.Config.JWTIssuer != "" {
		options = append(options, jwt.WithIssuer(m.Config.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(
		raw,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			return []byte(m.Config.JWTSecret), nil
		},
		options...,
	)
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}

	return userID, nil
}

// GetUser extracts user from Fiber context
func GetUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(UserKeyFiber).(*models.User)
	if !ok {
		return nil
	}
	return user
}
