package v1

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shenikar/sos_broadcasting_system/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	// IdentityHeader - токен внешнего сервиса идентификации
	IdentityHeader = "X-Identity-Token"

	ownerIDKey   = "owner_id"
	ownerNameKey = "owner_name"
)

// IdentityClaims - утверждения токена идентификации: sub - id пользователя, name - отображаемое имя
type IdentityClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// APIKeyAuthMiddleware - middleware для аутентификации по API-ключу
func APIKeyAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			// Проверяем также заголовок Authorization: Bearer
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if apiKey == "" {
			// Браузер не может выставить заголовки для websocket
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		if !slices.Contains(cfg.APIKeys, apiKey) {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

// IdentityMiddleware проверяет токен идентификации (HS256) и кладет id и имя владельца в контекст
func IdentityMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	secret := []byte(cfg.IdentitySecret)

	return func(c *gin.Context) {
		raw := c.GetHeader(IdentityHeader)
		if raw == "" {
			raw = c.Query("identity_token")
		}
		if raw == "" {
			log.Warn("Identity token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity token required"})
			return
		}

		claims := &IdentityClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			log.WithError(err).Warn("Invalid identity token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid identity token"})
			return
		}

		if strings.TrimSpace(claims.Subject) == "" {
			log.Warn("Identity token without subject")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid identity token"})
			return
		}

		c.Set(ownerIDKey, claims.Subject)
		c.Set(ownerNameKey, claims.Name)
		c.Next()
	}
}

// currentOwner возвращает пользователя, установленного IdentityMiddleware
func currentOwner(c *gin.Context) (id, name string) {
	return c.GetString(ownerIDKey), c.GetString(ownerNameKey)
}
