package middleware

import (
	"context"
	"errors"

	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/contextkey"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Gin context keys set by AuthMiddleware.
const (
	CtxUserID   = "user_id"
	CtxInternal = "internal_caller"
)

// AuthConfig holds the two accepted credentials: the shared internal API key
// for service-to-service calls and the JWT secret for user tokens.
type AuthConfig struct {
	InternalAPIKey string
	JWTSecret      string
}

// AuthMiddleware accepts either x-internal-api-key or an HS256-signed
// x-access-token. Internal callers carry no user identity; token callers get
// user_id from the "_id" claim.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("x-internal-api-key"); key != "" {
			if cfg.InternalAPIKey == "" || key != cfg.InternalAPIKey {
				response.AbortWithErrorCode(c, appErr.Unauthorized, "invalid internal api key")
				return
			}
			c.Set(CtxInternal, true)
			c.Next()
			return
		}

		token := c.GetHeader("x-access-token")
		if token == "" {
			response.AbortWithErrorCode(c, appErr.Unauthorized, "missing credentials")
			return
		}

		userID, err := parseUserToken(token, cfg.JWTSecret)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set(CtxUserID, userID)
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseUserToken(token, secret string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErr.New(appErr.TokenInvalid)
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", appErr.New(appErr.TokenExpired)
		}
		return "", appErr.New(appErr.TokenInvalid)
	}

	userID, _ := claims["_id"].(string)
	if userID == "" {
		return "", appErr.Newf(appErr.TokenInvalid, "token missing user id claim")
	}
	return userID, nil
}
