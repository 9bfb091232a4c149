package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creemops/creemledger/internal/pkg/env"
	"github.com/google/uuid"
)

const defaultCreemAPIBaseURL = "https://api.creem.io/v1"

// CreemClient talks to the Creem REST API. It is only needed for flows that
// start on our side (creating checkout sessions); webhook processing never
// calls out.
type CreemClient struct {
	APIKey     string
	APIBaseURL string
	SuccessURL string

	HTTPClient *http.Client
}

// NewCreemClientFromEnv builds a client from CREEM_* environment variables.
func NewCreemClientFromEnv() *CreemClient {
	return &CreemClient{
		APIKey:     strings.TrimSpace(env.GetEnv("CREEM_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("CREEM_API_URL", defaultCreemAPIBaseURL), "/"),
		SuccessURL: strings.TrimSpace(env.GetEnv("CREEM_SUCCESS_URL", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreemCheckoutRequest describes a checkout session to create. Metadata is
// echoed back on the checkout.completed webhook and drives reconciliation.
type CreemCheckoutRequest struct {
	ProductID    string
	UserID       string
	Email        string
	ProductType  string
	Credits      int64
	TierID       string
	DiscountCode string
}

// CreemCheckoutSession is the subset of the provider response we use.
type CreemCheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

// CreemProduct is the subset of a provider product we use.
type CreemProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

// CreateCheckout creates a hosted checkout session for a product.
func (c *CreemClient) CreateCheckout(ctx context.Context, req CreemCheckoutRequest) (*CreemCheckoutSession, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("CREEM_API_KEY is not configured")
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, errors.New("product id is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, errors.New("user id is required")
	}

	metadata := map[string]string{
		"user_id": req.UserID,
	}
	if req.ProductType != "" {
		metadata["product_type"] = req.ProductType
	}
	if req.Credits > 0 {
		metadata["credits"] = strconv.FormatInt(req.Credits, 10)
	}
	if req.TierID != "" {
		metadata["tier_id"] = req.TierID
	}

	body := map[string]interface{}{
		"product_id": req.ProductID,
		"request_id": uuid.NewString(),
		"metadata":   metadata,
	}
	if c.SuccessURL != "" {
		body["success_url"] = c.SuccessURL
	}
	if req.Email != "" {
		body["customer"] = map[string]string{"email": req.Email}
	}
	if req.DiscountCode != "" {
		body["discount_code"] = req.DiscountCode
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/checkouts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("creem checkout creation failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out CreemCheckoutSession
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.CheckoutURL) == "" {
		return nil, errors.New("creem checkout response missing checkout_url")
	}
	return &out, nil
}

// GetProduct fetches a product definition, mainly used by the config
// self-check endpoint.
func (c *CreemClient) GetProduct(ctx context.Context, productID string) (*CreemProduct, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("CREEM_API_KEY is not configured")
	}
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New("product id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/products/"+productID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("creem product request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out CreemProduct
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
