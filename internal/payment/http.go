package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// HTTPGateway calls a JSON payment processor. The processor takes amounts in major
// units, so minor units are shifted with decimal arithmetic rather than floats.
type HTTPGateway struct {
	baseURL  string
	currency string
	hc       *http.Client
}

func NewHTTPGateway(baseURL, currency string, hc *http.Client) *HTTPGateway {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
		hc:       hc,
	}
}

type (
	chargeBody struct {
		Amount         decimal.Decimal `json:"amount"`
		Currency       string          `json:"currency"`
		Method         string          `json:"method"`
		IdempotencyKey string          `json:"idempotency_key,omitempty"`
		Description    string          `json:"description,omitempty"`
	}

	chargeReply struct {
		Status      string `json:"status"`
		ReferenceID string `json:"reference_id"`
		Reason      string `json:"reason"`
	}

	refundBody struct {
		ReferenceID string          `json:"reference_id"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
	}
)

func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := chargeBody{
		Amount:         toMajorUnits(req.Amount),
		Currency:       g.currency,
		Method:         req.Method,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
	}

	var reply chargeReply
	if err := g.post(ctx, "/charges", req.IdempotencyKey, body, &reply); err != nil {
		return nil, fmt.Errorf("Charge: %w", err)
	}

	if reply.Status != "succeeded" {
		reason := reply.Reason
		if reason == "" {
			reason = reply.Status
		}
		return &ChargeResult{Success: false, ReferenceID: reply.ReferenceID, Reason: reason}, nil
	}
	return &ChargeResult{Success: true, ReferenceID: reply.ReferenceID}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, referenceID string, amount int64) error {
	body := refundBody{
		ReferenceID: referenceID,
		Amount:      toMajorUnits(amount),
		Currency:    g.currency,
	}
	if err := g.post(ctx, "/refunds", "refund-"+referenceID, body, nil); err != nil {
		return fmt.Errorf("Refund: %w", err)
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.hc.Do(req)
	if err != nil {
		return fmt.Errorf("hc.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		rbody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}
	return nil
}

func toMajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
