package handlers

import (
	"net/http"

	"github.com/authflow-app/authflow/internal/auth"
	"github.com/gin-gonic/gin"
)

// MFAHandler serves two-factor enrollment endpoints.
type MFAHandler struct {
	auth *auth.Authenticator
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(a *auth.Authenticator) *MFAHandler {
	return &MFAHandler{auth: a}
}

// Status reports the caller's second-factor state.
func (h *MFAHandler) Status(c *gin.Context) {
	enabled, strategy, errStatus := h.auth.TwoFactorStatus(c.Request.Context(), c.GetUint64("userID"))
	if errStatus != nil {
		respondAuthError(c, errStatus)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":  enabled,
		"strategy": strategy,
	})
}

// Begin starts second-factor enrollment. TOTP deployments get a secret and
// provisioning URI to render as a QR code; email-code deployments get a
// code dispatched to the account address.
func (h *MFAHandler) Begin(c *gin.Context) {
	enrollment, errBegin := h.auth.BeginTwoFactorEnrollment(c.Request.Context(), c.GetUint64("userID"))
	if errBegin != nil {
		respondAuthError(c, errBegin)
		return
	}
	out := gin.H{}
	if enrollment.Secret != "" {
		out["secret"] = enrollment.Secret
		out["provisioning_uri"] = enrollment.ProvisioningURI
	}
	if enrollment.CodeSent {
		out["code_sent"] = true
	}
	c.JSON(http.StatusOK, out)
}

// confirmMFARequest defines the request body for enrollment confirmation.
type confirmMFARequest struct {
	Code string `json:"code"`
}

// Confirm verifies the submitted code and enables the second factor.
func (h *MFAHandler) Confirm(c *gin.Context) {
	var body confirmMFARequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errConfirm := h.auth.ConfirmTwoFactorEnrollment(c.Request.Context(), c.GetUint64("userID"), body.Code); errConfirm != nil {
		respondAuthError(c, errConfirm)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Disable turns the second factor off.
func (h *MFAHandler) Disable(c *gin.Context) {
	if errDisable := h.auth.DisableTwoFactor(c.Request.Context(), c.GetUint64("userID")); errDisable != nil {
		respondAuthError(c, errDisable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
