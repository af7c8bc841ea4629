package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/zaqqye/exit_slip_backend/internal/models"
)

const actorKey = "actor"

type AuthConfig struct {
	JWTSecret     string
	SessionCookie string
}

// Claims identify a staff member. Tokens are issued out of band by the
// token subcommand or an upstream identity service sharing the secret.
type Claims struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Gate    string `json:"gate,omitempty"`
	jwt.RegisteredClaims
}

func IssueToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if !models.IsValidRole(actor.Role) {
		return "", errors.New("invalid role")
	}
	now := time.Now()
	claims := Claims{
		StaffID: actor.ID,
		Name:    actor.Name,
		Role:    actor.Role,
		Gate:    actor.Gate,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.StaffID == "" || !models.IsValidRole(claims.Role) {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware accepts a bearer header or the session cookie and stores the
// resolved actor on the context.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" && cfg.SessionCookie != "" {
			tokenStr, _ = c.Cookie(cfg.SessionCookie)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(actorKey, models.Actor{
			ID:   claims.StaffID,
			Name: claims.Name,
			Role: claims.Role,
			Gate: claims.Gate,
		})
		c.Next()
	}
}

// CurrentActor returns the zero Actor when the request was not authenticated.
func CurrentActor(c *gin.Context) models.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}
	}
	actor, _ := v.(models.Actor)
	return actor
}

func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			// allow admin to pass any role-gate
			if actor.Role != models.RoleAdmin {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if len(auth) < len("Bearer ") || !strings.EqualFold(auth[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("Bearer "):])
}
