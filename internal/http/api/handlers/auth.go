package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/authflow-app/authflow/internal/auth"
	"github.com/authflow-app/authflow/internal/ratelimit"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthHandler serves signup, login, and password reset endpoints.
type AuthHandler struct {
	auth    *auth.Authenticator
	limiter ratelimit.Limiter
	rate    int
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(a *auth.Authenticator, limiter ratelimit.Limiter, ratePerMinute int) *AuthHandler {
	return &AuthHandler{auth: a, limiter: limiter, rate: ratePerMinute}
}

// signupRequest defines the request body for account creation.
type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates an account and returns a session token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var body signupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, errSignup := h.auth.Signup(c.Request.Context(), auth.SignupRequest{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
	})
	if errSignup != nil {
		respondAuthError(c, errSignup)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// loginRequest defines the request body for the password login step.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login runs the password step of the login flow.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !h.allow(c, body.Email) {
		return
	}
	result, errLogin := h.auth.Login(c.Request.Context(), auth.PasswordLogin{
		Email:    body.Email,
		Password: body.Password,
	})
	if errLogin != nil {
		respondAuthError(c, errLogin)
		return
	}
	respondLoginResult(c, result)
}

// secondFactorRequest defines the request body for the code login step.
type secondFactorRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// LoginSecondFactor runs the code step of the login flow.
func (h *AuthHandler) LoginSecondFactor(c *gin.Context) {
	var body secondFactorRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !h.allow(c, body.Email) {
		return
	}
	result, errLogin := h.auth.LoginSecondFactor(c.Request.Context(), auth.SecondFactorLogin{
		Email: body.Email,
		Code:  body.Code,
	})
	if errLogin != nil {
		respondAuthError(c, errLogin)
		return
	}
	respondLoginResult(c, result)
}

// forgotPasswordRequest defines the request body for reset requests.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password reset token. The response is identical
// whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var body forgotPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errRequest := h.auth.RequestReset(c.Request.Context(), body.Email); errRequest != nil {
		respondAuthError(c, errRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": auth.ResetRequestMessage})
}

// resetPasswordRequest defines the request body for reset redemption.
type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword redeems a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var body resetPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errReset := h.auth.PerformReset(c.Request.Context(), body.Token, body.Password); errReset != nil {
		respondAuthError(c, errReset)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully."})
}

// allow applies the login rate limit, answering 429 when exhausted.
func (h *AuthHandler) allow(c *gin.Context, email string) bool {
	if h.limiter == nil {
		return true
	}
	key := ratelimit.LoginKey(email, c.ClientIP())
	result, errAllow := h.limiter.Allow(c.Request.Context(), key, h.rate, time.Now())
	if errAllow != nil {
		// Fail open on limiter backend faults.
		log.WithError(errAllow).Warn("login rate limit check failed")
		return true
	}
	if !result.Allowed {
		c.Header("Retry-After", result.Reset.UTC().Format(http.TimeFormat))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, slow down"})
		return false
	}
	return true
}

// respondLoginResult writes either the 2FA signal or the session.
func respondLoginResult(c *gin.Context, result *auth.LoginResult) {
	if result.TwoFactorRequired {
		c.JSON(http.StatusOK, gin.H{"two_factor": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      result.Session.Token,
		"expires_at": result.Session.ExpiresAt,
	})
}

// respondAuthError maps auth error kinds to HTTP responses.
func respondAuthError(c *gin.Context, err error) {
	var typed *auth.Error
	status := http.StatusInternalServerError
	payload := gin.H{"error": "Service temporarily unavailable."}

	switch auth.ErrKind(err) {
	case auth.KindInvalidInput:
		status = http.StatusBadRequest
		payload = gin.H{"error": err.Error()}
	case auth.KindInvalidCredentials, auth.KindInvalidCode:
		status = http.StatusUnauthorized
		payload = gin.H{"error": err.Error()}
	case auth.KindCodeExpired:
		status = http.StatusUnauthorized
		payload = gin.H{"error": err.Error(), "code_expired": true}
	case auth.KindAccountLocked:
		status = http.StatusLocked
		payload = gin.H{"error": err.Error()}
		if errors.As(err, &typed) {
			payload["locked_until"] = typed.LockedUntil.UTC()
		}
	case auth.KindInvalidToken, auth.KindTokenExpired:
		status = http.StatusBadRequest
		payload = gin.H{"error": err.Error()}
	case auth.KindConflict:
		status = http.StatusConflict
		payload = gin.H{"error": err.Error()}
	}
	c.JSON(status, payload)
}
