// Package payment is the HTTP client for the external payment processor.
// A declined charge is a normal business answer (ErrPaymentDeclined); only
// transport and 5xx failures are marked ErrServiceUnavailable.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/errs"
	"marketplace/internal/usecase/commands"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type chargeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	CardToken   string `json:"card_token"`
}

type chargeResponse struct {
	ProcessorRef  string `json:"processor_ref"`
	Approved      bool   `json:"approved"`
	FailureReason string `json:"failure_reason"`
}

type refundRequest struct {
	ProcessorRef string `json:"processor_ref"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

func (c *Client) Charge(ctx context.Context, req commands.ChargeRequest) (*commands.ChargeResult, error) {
	body := chargeRequest{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		CardToken:   req.CardToken,
	}

	var resp chargeResponse
	status, err := c.post(ctx, "/v1/charges", req.IdempotencyKey.String(), body, &resp)
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "charge request failed"), commands.ErrServiceUnavailable)
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		if !resp.Approved {
			return &commands.ChargeResult{FailureReason: resp.FailureReason},
				errs.Mark(errs.New("charge declined"), commands.ErrPaymentDeclined)
		}
		return &commands.ChargeResult{ProcessorRef: resp.ProcessorRef}, nil
	case status == http.StatusPaymentRequired || status == http.StatusUnprocessableEntity:
		return &commands.ChargeResult{FailureReason: resp.FailureReason},
			errs.Mark(errs.New("charge declined"), commands.ErrPaymentDeclined)
	default:
		return nil, errs.Mark(
			errs.New(fmt.Sprintf("payment processor returned status %d", status)),
			commands.ErrServiceUnavailable,
		)
	}
}

func (c *Client) Refund(ctx context.Context, processorRef string, amountCents int64, currency string) error {
	body := refundRequest{
		ProcessorRef: processorRef,
		AmountCents:  amountCents,
		Currency:     currency,
	}

	status, err := c.post(ctx, "/v1/refunds", processorRef, body, nil)
	if err != nil {
		return errs.Mark(errs.Wrap(err, "refund request failed"), commands.ErrServiceUnavailable)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return errs.Mark(
			errs.New(fmt.Sprintf("refund returned status %d", status)),
			commands.ErrServiceUnavailable,
		)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, errs.Wrap(err, "failed to encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, errs.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errs.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusInternalServerError {
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return resp.StatusCode, errs.Wrap(err, "failed to read response body")
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, errs.Wrap(err, "failed to decode response body")
			}
		}
	}
	return resp.StatusCode, nil
}

var _ commands.PaymentAuthorizer = (*Client)(nil)
