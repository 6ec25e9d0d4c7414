// Package api wires the HTTP surface: public auth endpoints, the
// session-protected account endpoints, and health.
package api

import (
	"net/http"
	"strings"

	"github.com/authflow-app/authflow/internal/auth"
	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/http/api/handlers"
	"github.com/authflow-app/authflow/internal/ratelimit"
	"github.com/authflow-app/authflow/internal/security"
	"github.com/authflow-app/authflow/internal/store"
	"github.com/authflow-app/authflow/internal/suggest"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries everything route registration needs.
type Deps struct {
	DB            *gorm.DB
	Users         *store.Users
	Authenticator *auth.Authenticator
	Suggest       *suggest.Client
	Limiter       ratelimit.Limiter
	JWT           config.JWTConfig
	Auth          config.AuthConfig
}

// RegisterRoutes mounts all endpoints on the engine.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	authHandler := handlers.NewAuthHandler(deps.Authenticator, deps.Limiter, deps.Auth.LoginRatePerMinute)
	public := r.Group("/v0/auth")
	public.POST("/signup", authHandler.Signup)
	public.POST("/login", authHandler.Login)
	public.POST("/login/2fa", authHandler.LoginSecondFactor)
	public.POST("/forgot-password", authHandler.ForgotPassword)
	public.POST("/reset-password", authHandler.ResetPassword)

	authed := r.Group("/v0")
	authed.Use(sessionAuthMiddleware(deps.Users, deps.JWT))

	profileHandler := handlers.NewProfileHandler(deps.Users)
	authed.GET("/profile", profileHandler.Get)
	authed.PATCH("/profile", profileHandler.Update)
	authed.POST("/profile/password", profileHandler.ChangePassword)

	mfaHandler := handlers.NewMFAHandler(deps.Authenticator)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/enroll", mfaHandler.Begin)
	authed.POST("/mfa/confirm", mfaHandler.Confirm)
	authed.POST("/mfa/disable", mfaHandler.Disable)

	suggestHandler := handlers.NewSuggestHandler(deps.Suggest)
	authed.POST("/ai/form-suggestions", suggestHandler.FormSuggestions)
}

// sessionAuthMiddleware validates session JWTs and loads user context.
func sessionAuthMiddleware(users *store.Users, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user := users.FindByID(c.Request.Context(), claims.UserID)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("username", user.Username)
		c.Next()
	}
}
