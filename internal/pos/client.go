// Package pos talks to the external point-of-sale order-injection service.
// Injection is best-effort: callers log failures and move on, the kitchen
// ticket remains the source of truth.
package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type injectRequest struct {
	PreOrderID uuid.UUID `json:"preorder_id"`
}

type injectResponse struct {
	Success    bool   `json:"success"`
	POSOrderID string `json:"pos_order_id"`
	Error      string `json:"error"`
}

// InjectOrder pushes a pre-order into the POS. Returns the POS-side order id
// on success.
func (c *Client) InjectOrder(ctx context.Context, preorderID uuid.UUID) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("pos injection not configured")
	}

	body, err := json.Marshal(injectRequest{PreOrderID: preorderID})
	if err != nil {
		return "", fmt.Errorf("marshal inject request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders/inject", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build inject request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pos inject: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pos inject: unexpected status %d", resp.StatusCode)
	}

	var out injectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode inject response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("pos inject rejected: %s", out.Error)
	}
	return out.POSOrderID, nil
}
