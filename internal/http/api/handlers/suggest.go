package handlers

import (
	"net/http"

	"github.com/authflow-app/authflow/internal/suggest"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SuggestHandler serves the AI form-suggestion endpoint.
type SuggestHandler struct {
	client *suggest.Client
}

// NewSuggestHandler constructs a SuggestHandler.
func NewSuggestHandler(client *suggest.Client) *SuggestHandler {
	return &SuggestHandler{client: client}
}

// suggestRequest defines the request body for form suggestions.
type suggestRequest struct {
	FormConfiguration string `json:"form_configuration"`
	UserContext       string `json:"user_context"`
}

// FormSuggestions forwards the form configuration to the suggestion
// service and returns its advice.
func (h *SuggestHandler) FormSuggestions(c *gin.Context) {
	var body suggestRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.FormConfiguration == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing form_configuration"})
		return
	}
	resp, errSuggest := h.client.Suggest(c.Request.Context(), c.GetUint64("userID"), suggest.Request{
		FormConfiguration: body.FormConfiguration,
		UserContext:       body.UserContext,
	})
	if errSuggest != nil {
		log.WithError(errSuggest).Error("form suggestion call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "suggestion service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": resp.Suggestions})
}
