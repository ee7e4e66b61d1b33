package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	derrors "promptschola/pkg/domainerrors"
)

// ProviderClient is the outbound billing API port.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, email, userID string) (*Customer, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
}

// CheckoutParams describe a subscription checkout session.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// HTTPClient talks to the billing provider's form-encoded REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPDoer overrides the underlying HTTP client.
func WithHTTPDoer(c *http.Client) HTTPClientOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// NewHTTPClient constructs a provider client.
func NewHTTPClient(baseURL, apiKey string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *HTTPClient) CreateCustomer(ctx context.Context, email, userID string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[user_id]", userID)

	var customer Customer
	if err := c.post(ctx, "/v1/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *HTTPClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.get(ctx, "/v1/subscriptions/"+subscriptionID, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", params.CustomerID)
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("allow_promotion_codes", "true")
	form.Set("client_reference_id", params.UserID)
	form.Set("metadata[user_id]", params.UserID)

	var session Session
	if err := c.post(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var session Session
	if err := c.post(ctx, "/v1/billing_portal/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "build billing request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "build billing request")
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeUpstream, "billing provider unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return derrors.New(derrors.CodeUpstream,
			fmt.Sprintf("billing provider returned status %d: %s", resp.StatusCode, string(detail)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return derrors.Wrap(err, derrors.CodeUpstream, "decode billing response")
	}
	return nil
}
