package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// ActorClaims is the bearer token issued by the identity collaborator.
// Subject is the actor id.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret string
	Issuer string
	// Disabled lets every request through as DevActor with DevRole. Local use only.
	Disabled bool
	DevActor string
	DevRole  string
}

type AuthMiddleware struct {
	log *logger.Logger
	cfg AuthConfig
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) (*AuthMiddleware, error) {
	if !cfg.Disabled && strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: JWT secret is required unless auth is disabled")
	}
	if cfg.DevActor == "" {
		cfg.DevActor = "dev"
	}
	if cfg.DevRole == "" {
		cfg.DevRole = "admin"
	}
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	if cfg.Disabled {
		middlewareLogger.Warn("auth disabled; all requests run as dev actor", "actor", cfg.DevActor, "role", cfg.DevRole)
	}
	return &AuthMiddleware{log: middlewareLogger, cfg: cfg}, nil
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.cfg.Disabled {
			ctx := ctxutil.WithActor(c.Request.Context(), &ctxutil.ActorData{ActorID: am.cfg.DevActor, Role: am.cfg.DevRole})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		actor, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return func(c *gin.Context) {
		actor := ctxutil.GetActor(c.Request.Context())
		if actor == nil || !allowed[strings.ToLower(actor.Role)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "forbidden", "code": "forbidden"},
			})
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.ActorData, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if am.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.cfg.Issuer))
	}
	claims := &ActorClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(am.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !tok.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return &ctxutil.ActorData{ActorID: claims.Subject, Role: claims.Role}, nil
}

// SignToken issues an HS256 actor token. Used by evctl and tests.
func SignToken(secret, issuer, actorID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// extractToken accepts a bearer header, or ?token= for EventSource clients that cannot set headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
