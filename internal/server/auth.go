package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"conduit/internal/cache"
	"conduit/internal/middleware"
	"conduit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "conduit-api"
	tokenAudience = "conduit-client"

	defaultTokenTTL = 11520 * time.Minute // 8 days
)

// Locals keys set by AuthRequired.
const (
	localUserID    = "userID"
	localTokenJTI  = "tokenJTI"
	localTokenExp  = "tokenExp"
	websocketRoute = "/api/ws"
)

var errRevokedToken = errors.New("token has been revoked")

// authClaims is the verified subset of a token's claims.
type authClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// AuthRequired returns the authentication middleware. Token failures yield
// 403. A valid token whose user has been deleted yields 404, so write routes
// never reach the database with a dangling author id.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractToken(c)
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.verifyToken(c.UserContext(), raw)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, errRevokedToken) {
				msg = "Token has been revoked"
			}
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError(msg))
		}

		if _, err := s.userService.GetByID(c.UserContext(), claims.UserID); err != nil {
			return s.respondError(c, err)
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localTokenJTI, claims.JTI)
		c.Locals(localTokenExp, claims.ExpiresAt)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))

		return c.Next()
	}
}

// optionalUserID identifies the viewer when a valid token is present. A
// missing or invalid token means an anonymous viewer (0).
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	raw := extractToken(c)
	if raw == "" {
		return 0
	}
	claims, err := s.verifyToken(c.UserContext(), raw)
	if err != nil {
		return 0
	}
	return claims.UserID
}

// extractToken reads "Token <jwt>" or "Bearer <jwt>" from the Authorization
// header. Browsers cannot set headers on websocket upgrades, so the ws route
// also accepts ?token=.
func extractToken(c *fiber.Ctx) string {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok {
			return ""
		}
		if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if c.Path() == websocketRoute {
		return c.Query("token")
	}
	return ""
}

// verifyToken checks signature, issuer, audience and expiry, then the
// revocation list.
func (s *Server) verifyToken(ctx context.Context, raw string) (*authClaims, error) {
	token, err := jwt.Parse(raw,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(s.config.JWTSecret), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user ID in token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("invalid expiration claim")
	}

	jti, _ := claims["jti"].(string)
	if jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
		if err != nil {
			// Fail open when Redis is unreachable.
			middleware.Logger.WarnContext(ctx, "token revocation check failed", "error", err)
		} else if revoked > 0 {
			return nil, errRevokedToken
		}
	}

	return &authClaims{UserID: uint(userID), JTI: jti, ExpiresAt: exp.Time}, nil
}

// generateToken creates a JWT token for the given user ID and username
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", errors.New("JWT secret not configured")
	}

	ttl := defaultTokenTTL
	if s.config.JWTExpireMinutes > 0 {
		ttl = time.Duration(s.config.JWTExpireMinutes) * time.Minute
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique token id so a single token can be revoked.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.NewString())
}

// revokeToken marks jti revoked until the token would have expired anyway.
func (s *Server) revokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, cache.RevokedTokenKey(jti), "1", ttl).Err()
}

// currentUserID returns the id AuthRequired stored for this request.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}
