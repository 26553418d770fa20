package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Razorpay implements Gateway against the Razorpay Orders REST API using
// HTTP Basic authentication with the key id/secret pair.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Client    *http.Client
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers a pending payment order with Razorpay and returns
// the gateway's order object. The call is synchronous and is not retried.
func (g Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if strings.TrimSpace(g.KeyID) == "" || strings.TrimSpace(g.KeySecret) == "" {
		return Order{}, errors.New("razorpay credentials are not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Order{}, fmt.Errorf("encode order request: %w", err)
	}
	url := strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if url == "" {
		url = "https://api.razorpay.com"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.KeyID, g.KeySecret)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay order create: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay order create: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var upstream razorpayError
		if err := json.Unmarshal(payload, &upstream); err == nil && upstream.Error.Description != "" {
			return Order{}, fmt.Errorf("razorpay order create: %s", upstream.Error.Description)
		}
		return Order{}, fmt.Errorf("razorpay order create: unexpected status %s", resp.Status)
	}
	var order Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return Order{}, fmt.Errorf("razorpay order create: decode response: %w", err)
	}
	return order, nil
}
