// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/orochi-idgen/app/dto"
	"github.com/amirphl/orochi-idgen/app/services"
	"github.com/gofiber/fiber/v3"
)

// Context keys set by Authenticate
const (
	LocalTokenClaims = "token_claims"
	LocalSubject     = "subject"
	LocalRequestID   = "request_id"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate is the middleware function that validates operator tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		// Validate the token (this already checks for revocation)
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "Access token has been revoked", "TOKEN_REVOKED")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}

		c.Locals(LocalSubject, claims.Subject)
		c.Locals(LocalTokenClaims, claims)
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals(LocalRequestID, requestID)
		}

		return c.Next()
	}
}

// RequireScope rejects requests whose token does not grant scope. It must run after Authenticate.
func (m *AuthMiddleware) RequireScope(scope string) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := c.Locals(LocalTokenClaims).(*services.TokenClaims)
		if !ok {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}
		if !claims.HasScope(scope) {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Token does not grant " + scope,
				Error:   dto.ErrorDetail{Code: "INSUFFICIENT_SCOPE"},
			})
		}
		return c.Next()
	}
}
