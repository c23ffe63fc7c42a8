package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PayPal order statuses
const (
	PayPalStatusCreated   = "CREATED"
	PayPalStatusApproved  = "APPROVED"
	PayPalStatusCompleted = "COMPLETED"
)

// PayPalClient calls the PayPal Orders v2 API
type PayPalClient struct {
	config      *PayPalConfig
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// NewPayPalClient creates a client authenticated with client credentials.
// Tokens are fetched lazily and refreshed by the oauth2 token source.
func NewPayPalClient(config *PayPalConfig) (*PayPalClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	cc := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.Secret,
		TokenURL:     config.APIBaseURL() + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ts := cc.TokenSource(ctx)

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 30 * time.Second

	return &PayPalClient{
		config:      config,
		tokenSource: ts,
		httpClient:  httpClient,
	}, nil
}

// Currency returns the currency orders are created in
func (c *PayPalClient) Currency() string {
	return c.config.Currency
}

// Authenticate fetches (or reuses) an access token
func (c *PayPalClient) Authenticate(ctx context.Context) error {
	type result struct {
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, err := c.tokenSource.Token()
		done <- result{err: err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, r.err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateOrderRequest describes a PayPal order for a pending storefront order
type CreateOrderRequest struct {
	ReferenceID string // pending order id
	Amount      decimal.Decimal
	Description string
	ReturnURL   string
	CancelURL   string
}

// Order is the subset of a PayPal order the storefront uses
type Order struct {
	ID         string
	Status     string
	ApproveURL string
}

// Capture is the outcome of capturing an approved order
type Capture struct {
	OrderID   string
	Status    string
	CaptureID string
	PayerID   string
	Amount    string
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrderResponse struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string       `json:"id"`
				Status string       `json:"status"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		PayerID string `json:"payer_id"`
	} `json:"payer"`
}

type paypalErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// CreateOrder creates a CAPTURE-intent order for the cart total
func (c *PayPalClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []paypalPurchaseUnit{{
			ReferenceID: req.ReferenceID,
			CustomID:    req.ReferenceID,
			Description: req.Description,
			Amount: paypalAmount{
				CurrencyCode: c.config.Currency,
				Value:        req.Amount.StringFixed(2),
			},
		}},
		"application_context": map[string]string{
			"brand_name":          c.config.BrandName,
			"user_action":         "PAY_NOW",
			"shipping_preference": "NO_SHIPPING",
			"return_url":          req.ReturnURL,
			"cancel_url":          req.CancelURL,
		},
	}

	var resp paypalOrderResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return nil, err
	}

	order := &Order{ID: resp.ID, Status: resp.Status}
	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			order.ApproveURL = link.Href
			break
		}
	}
	return order, nil
}

// CaptureOrder captures an approved order
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var resp paypalOrderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.doRequest(ctx, http.MethodPost, path, map[string]any{}, &resp); err != nil {
		return nil, err
	}

	capture := &Capture{OrderID: resp.ID, Status: resp.Status, PayerID: resp.Payer.PayerID}
	for _, pu := range resp.PurchaseUnits {
		for _, cp := range pu.Payments.Captures {
			capture.CaptureID = cp.ID
			capture.Amount = cp.Amount.Value
		}
	}
	return capture, nil
}

// doRequest performs an authenticated JSON request
func (c *PayPalClient) doRequest(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("paypal: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIBaseURL()+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("paypal: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paypal: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var perr paypalErrorResponse
		if json.Unmarshal(respBody, &perr) == nil && perr.Message != "" {
			return fmt.Errorf("%w: HTTP %d: %s: %s", ErrGatewayRequestFailed, resp.StatusCode, perr.Name, perr.Message)
		}
		return fmt.Errorf("%w: HTTP %d", ErrGatewayRequestFailed, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("paypal: failed to parse response: %w", err)
	}
	return nil
}
