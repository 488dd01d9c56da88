// Package api is the HTTP/JSON client for the CampusCrave REST backend. It is
// the only component in the repo that talks to the network.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
	"github.com/campuscrave/campuscrave-client/pkg/enums"
	"github.com/go-playground/validator/v10"
)

const (
	defaultBaseURL             = "http://localhost:9999"
	errorBodyReadLimit   int64 = 1024
	defaultClientTimeout       = 10 * time.Second
)

var validate = validator.New()

// Client calls the CampusCrave order and shop endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the backend client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	return client
}

// CreateOrder places a new order built from the cart contents.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order request")
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListLiveOrders returns the stall's orders that have not reached a terminal
// status.
func (c *Client) ListLiveOrders(ctx context.Context, stallName string) ([]Order, error) {
	query := url.Values{}
	if strings.TrimSpace(stallName) != "" {
		query.Set("stallName", stallName)
	}
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders/live", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListMyOrders returns a student's order history.
func (c *Client) ListMyOrders(ctx context.Context, studentID string) ([]Order, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id is required")
	}
	query := url.Values{"studentId": {studentID}}
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListHistory returns a stall's completed and rejected orders.
func (c *Client) ListHistory(ctx context.Context, stallName string) ([]Order, error) {
	query := url.Values{}
	if strings.TrimSpace(stallName) != "" {
		query.Set("stallName", stallName)
	}
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders/history", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus asks the backend to move an order to the target status. The
// backend validates the transition and returns the committed record.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", status))
	}
	query := url.Values{"status": {status.String()}}
	var order Order
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/status", id), query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPickup submits the 4-digit handoff code for a READY order.
func (c *Client) VerifyPickup(ctx context.Context, id int64, code string) (*Order, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 4 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup code must be 4 digits")
	}
	query := url.Values{"code": {trimmed}}
	var order Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/verify-pickup", id), query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// RateOrder submits a post-completion rating and review.
func (c *Client) RateOrder(ctx context.Context, id int64, rating int, review string) (*Order, error) {
	if rating < 1 || rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	payload := map[string]any{"rating": rating, "review": review}
	var order Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/rate", id), nil, payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ShopStatus reports whether the stall is open.
func (c *Client) ShopStatus(ctx context.Context, stallName string) (*ShopStatus, error) {
	query := url.Values{"stallName": {stallName}}
	var status ShopStatus
	if err := c.do(ctx, http.MethodGet, "/shop/status", query, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ToggleShop flips the stall's open flag.
func (c *Client) ToggleShop(ctx context.Context, stallName string) (*ShopStatus, error) {
	query := url.Values{"stallName": {stallName}}
	var status ShopStatus
	if err := c.do(ctx, http.MethodPost, "/shop/toggle", query, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// WaitTime returns the campus-wide queue estimate.
func (c *Client) WaitTime(ctx context.Context) (*WaitTimeEstimate, error) {
	var estimate WaitTimeEstimate
	if err := c.do(ctx, http.MethodGet, "/orders/wait-time", nil, nil, &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	endpoint := c.buildURL(path)
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp, method, path)
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "decode response")
	}
	return nil
}

// errorFromResponse turns a non-2xx reply into a coded error. 4xx replies
// carry the backend's reason text verbatim in the details so the UI can show
// it unedited.
func (c *Client) errorFromResponse(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	reason := strings.TrimSpace(string(raw))

	code := pkgerrors.FromStatusCode(resp.StatusCode)
	err := pkgerrors.Wrap(code,
		fmt.Errorf("status %d: %s", resp.StatusCode, reason),
		fmt.Sprintf("%s %s failed", method, path))
	if reason != "" && code != pkgerrors.CodeUnavailable {
		err = err.WithDetails(decodeReason(reason))
	}
	return err
}

// decodeReason unwraps {"error": "..."} / {"message": "..."} envelopes and
// otherwise passes the raw body through.
func decodeReason(raw string) string {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil {
		for _, key := range []string{"error", "message", "reason"} {
			if text, ok := envelope[key].(string); ok && text != "" {
				return text
			}
		}
	}
	return raw
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
