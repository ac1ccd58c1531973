// Package cardgateway talks to the card-payment gateway: a second, simpler
// REST integration. Requests are HMAC-signed; there is no retry loop and no
// webhook reconciliation here — card events arrive through the main webhook
// pipeline.
package cardgateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/config"
	"github.com/meridianpay/custodyops/internal/models"
)

type Client struct {
	baseURL string
	keyID   string
	secret  []byte
	httpc   *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.CardGatewayBaseURL,
		keyID:   cfg.CardGatewayKeyID,
		secret:  []byte(cfg.CardGatewaySecret),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

// sign computes the request signature over "timestamp.method.path.body".
func (c *Client) sign(timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write([]byte(method))
	mac.Write([]byte("."))
	mac.Write([]byte(path))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("X-Api-Key-Id", c.keyID)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", c.sign(timestamp, method, path, payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &apperr.ProviderError{Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &apperr.ProviderError{Message: err.Error(), Transient: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.ProviderError{
			Message: http.StatusText(resp.StatusCode),
			Status:  resp.StatusCode,
			Body:    string(respBody),
		}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}

type CreateCardRequest struct {
	CustomerID string `json:"customer_id"`
	Type       string `json:"type"`
	Brand      string `json:"brand"`
}

func (c *Client) CreateCard(ctx context.Context, req CreateCardRequest) (*models.ProviderCard, error) {
	var out models.ProviderCard
	if err := c.do(ctx, http.MethodPost, "/cards", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCard(ctx context.Context, cardID string) (*models.ProviderCard, error) {
	var out models.ProviderCard
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/cards/%s", cardID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCardStatus freezes, unfreezes, or cancels a card at the gateway.
func (c *Client) SetCardStatus(ctx context.Context, cardID, status string) (*models.ProviderCard, error) {
	var out models.ProviderCard
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/cards/%s/status", cardID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
