package gamehub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/IOS2004/we-news-sub000/internal/crypto"
	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// RESTClient is the request/response boundary of the game authority: the
// submission gateway and the wallet balance read. One submission call carries
// the whole cart snapshot; the client never splits a cart.
type RESTClient struct {
	baseURL    string
	auth       *crypto.RequestAuth // nil disables request signing
	httpClient *http.Client
}

// NewRESTClient creates a REST client for the given API root, e.g.
// "https://api.example.com". auth may be nil when the deployment does not
// require signed requests.
func NewRESTClient(baseURL string, auth *crypto.RequestAuth) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// submitResponse is the wire shape of the gateway's answer.
type submitResponse struct {
	Success  bool     `json:"success"`
	OrderIDs []string `json:"orderIds"`
	Message  string   `json:"message"`
	Rejected []struct {
		ItemID string `json:"itemId"`
		Reason string `json:"reason"`
	} `json:"rejectedItems"`
}

// SubmitStakes hands one cart snapshot to the authority. The call is atomic
// from the client's perspective: either the whole batch is accepted and a
// receipt is returned, or a *domain.SubmissionRejectedError describes why it
// was declined. It is not retried without explicit user action.
func (c *RESTClient) SubmitStakes(ctx context.Context, sub domain.Submission) (domain.SubmissionReceipt, error) {
	body, status, err := c.doRequest(ctx, http.MethodPost, "/api/orders", sub)
	if err != nil {
		return domain.SubmissionReceipt{}, fmt.Errorf("gamehub: submit stakes: %w", err)
	}

	// An error status with an unparseable body (a proxy's HTML page, say) is
	// still a rejection; the status alone classifies it.
	var resp submitResponse
	decodeErr := json.Unmarshal(body, &resp)

	if status < 200 || status >= 300 || (decodeErr == nil && !resp.Success) {
		rejErr := &domain.SubmissionRejectedError{Reason: resp.Message}
		if rejErr.Reason == "" {
			rejErr.Reason = fmt.Sprintf("gateway returned status %d", status)
		}
		for _, r := range resp.Rejected {
			rejErr.ItemIDs = append(rejErr.ItemIDs, r.ItemID)
		}
		return domain.SubmissionReceipt{}, rejErr
	}
	if decodeErr != nil {
		return domain.SubmissionReceipt{}, fmt.Errorf("gamehub: decode submit response: %w", decodeErr)
	}

	return domain.SubmissionReceipt{
		OrderIDs:      resp.OrderIDs,
		Orders:        sub.Orders,
		Subtotal:      sub.Subtotal,
		ServiceCharge: sub.ServiceCharge,
		GrandTotal:    sub.GrandTotal,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Balance reads the available wallet balance in whole currency units.
func (c *RESTClient) Balance(ctx context.Context) (int64, error) {
	body, status, err := c.doRequest(ctx, http.MethodGet, "/api/wallet", nil)
	if err != nil {
		return 0, fmt.Errorf("gamehub: wallet balance: %w", err)
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("gamehub: wallet balance: unexpected status %d", status)
	}

	var resp struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("gamehub: decode wallet balance: %w", err)
	}
	return resp.Balance, nil
}

// doRequest performs one signed HTTP request and returns the response body
// and status code. Non-2xx statuses are not errors at this level; callers
// interpret them.
func (c *RESTClient) doRequest(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.auth != nil {
		for k, v := range c.auth.Headers(method, path, string(bodyBytes)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
