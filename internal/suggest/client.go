package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request asks the text-suggestion service to review a form configuration.
type Request struct {
	FormConfiguration string `json:"formConfiguration"`
	UserContext       string `json:"userContext,omitempty"`
}

// Response carries the service's suggestion text.
type Response struct {
	Suggestions string `json:"suggestions"`
}

// Client calls the external form-suggestion service. The service is an
// opaque collaborator: one request, one response, no retries.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	db       *gorm.DB
}

// NewClient constructs a Client. Exchanges are logged to the database when
// a connection is provided.
func NewClient(cfg config.SuggestConfig, db *gorm.DB) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		db:       db,
	}
}

// Suggest submits the form configuration and returns the suggestion text.
func (c *Client) Suggest(ctx context.Context, userID uint64, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("suggest: endpoint not configured")
	}
	if req.FormConfiguration == "" {
		return nil, fmt.Errorf("suggest: empty form configuration")
	}

	payload, errMarshal := json.Marshal(req)
	if errMarshal != nil {
		return nil, fmt.Errorf("suggest: marshal request: %w", errMarshal)
	}

	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if errReq != nil {
		return nil, fmt.Errorf("suggest: build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, errDo := c.http.Do(httpReq)
	if errDo != nil {
		return nil, fmt.Errorf("suggest: call service: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("suggest: read response: %w", errRead)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest: service returned %d", resp.StatusCode)
	}

	var out Response
	if errUnmarshal := json.Unmarshal(body, &out); errUnmarshal != nil {
		return nil, fmt.Errorf("suggest: decode response: %w", errUnmarshal)
	}

	c.logExchange(ctx, userID, payload, out.Suggestions)
	return &out, nil
}

// logExchange persists the exchange. Best effort.
func (c *Client) logExchange(ctx context.Context, userID uint64, payload []byte, suggestions string) {
	if c.db == nil {
		return
	}
	record := models.SuggestionLog{
		UserID:      userID,
		Request:     datatypes.JSON(payload),
		Suggestions: suggestions,
		CreatedAt:   time.Now().UTC(),
	}
	_ = c.db.WithContext(ctx).Create(&record).Error
}
