package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/codecraft-io/codecraft/internal/config"
	"github.com/codecraft-io/codecraft/internal/modules/repo"
	"github.com/codecraft-io/codecraft/internal/modules/serializer"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

// ContextUserKey is where UserAuth stores the authenticated *model.User.
const ContextUserKey = "current_user"

// ContextSubjectKey is where UserAuth stores the raw token subject, which is
// present even when the user row has not been synced yet.
const ContextSubjectKey = "auth_subject"

type identityClaims struct {
	jwt.RegisteredClaims
}

// UserAuth authenticates requests with the identity provider's HS256 bearer
// token and resolves the signed-in user. Routes that only need the subject
// (user sync happens before the row exists) read ContextSubjectKey instead.
func UserAuth(cfg *config.Config, users service.UserService, requireUser bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(cfg.Auth.JWTSecret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		if cfg.Auth.Issuer != "" && claims.Issuer != cfg.Auth.Issuer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)

		if requireUser {
			user, err := users.GetBySubject(c.Request.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, repo.ErrUserNotFound) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, serializer.DBErr("", err))
				return
			}
			c.Set(ContextUserKey, user)
		}

		c.Next()
	}
}
