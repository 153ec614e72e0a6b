package x402

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bartonguestier1725-collab/x402-weather-api/internal/retry"
)

// Facilitator verifies and settles payment proofs against an external
// settlement service. The gate middleware depends on this interface so
// tests can substitute a fake.
type Facilitator interface {
	// Verify checks a payment proof against the expected requirements
	// without moving funds. A nil error with IsValid=false is a definite
	// rejection; a non-nil error wrapping ErrFacilitatorUnavailable is
	// indeterminate.
	Verify(ctx context.Context, payload PaymentPayload, requirements PaymentRequirements) (*VerifyResponse, error)

	// Settle finalizes a previously verified payment. Idempotent on the
	// facilitator side: retrying an already-settled proof must not
	// double-charge.
	Settle(ctx context.Context, payload PaymentPayload, requirements PaymentRequirements) (*SettleResponse, error)
}

// TimeoutConfig holds per-operation timeouts for facilitator calls.
type TimeoutConfig struct {
	// VerifyTimeout is the maximum time to wait for payment verification.
	VerifyTimeout time.Duration

	// SettleTimeout is the maximum time to wait for payment settlement.
	SettleTimeout time.Duration
}

// DefaultTimeouts bounds both facilitator round trips to low single-digit
// seconds so the protected endpoint never blocks indefinitely.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout: 5 * time.Second,
	SettleTimeout: 8 * time.Second,
}

// facilitatorRequest is the wire payload of POST /verify and /settle.
type facilitatorRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// FacilitatorClient is an HTTP client for an x402 facilitator service.
type FacilitatorClient struct {
	// BaseURL is the facilitator service URL.
	BaseURL string

	// Client is the HTTP client to use. If nil, http.DefaultClient is used.
	Client *http.Client

	// Timeouts contains per-operation timeout configuration.
	Timeouts TimeoutConfig

	// MaxRetries is the number of additional attempts for indeterminate
	// outcomes (default 0: no retries). Definite verdicts are never retried.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	// (default 100ms, exponential backoff with multiplier 2).
	RetryDelay time.Duration

	// Authorization is a static Authorization header value, typically
	// derived from the configured API key/secret pair. Never logged.
	Authorization string
}

var _ Facilitator = (*FacilitatorClient)(nil)

func (c *FacilitatorClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *FacilitatorClient) retryConfig() retry.Config {
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}

	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.Config{
		MaxAttempts:  maxRetries + 1,
		InitialDelay: retryDelay,
		MaxDelay:     retryDelay * 4,
		Multiplier:   2.0,
	}
}

// Verify submits a payment proof for verification.
func (c *FacilitatorClient) Verify(ctx context.Context, payload PaymentPayload, requirements PaymentRequirements) (*VerifyResponse, error) {
	data, err := json.Marshal(facilitatorRequest{
		X402Version:         X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	return retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailable, func() (*VerifyResponse, error) {
		reqCtx, cancel := c.opContext(ctx, c.Timeouts.VerifyTimeout)
		defer cancel()

		body, err := c.post(reqCtx, "/verify", data, ErrVerificationFailed)
		if err != nil {
			return nil, err
		}

		var verifyResp VerifyResponse
		if err := json.Unmarshal(body, &verifyResp); err != nil {
			return nil, fmt.Errorf("failed to decode verify response: %w", err)
		}
		if verifyResp.Payer == "" {
			verifyResp.Payer = payload.Payload.Authorization.From
		}
		return &verifyResp, nil
	})
}

// Settle executes a verified payment. Only called after Verify returned
// a definite-valid verdict for the same proof.
func (c *FacilitatorClient) Settle(ctx context.Context, payload PaymentPayload, requirements PaymentRequirements) (*SettleResponse, error) {
	data, err := json.Marshal(facilitatorRequest{
		X402Version:         X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settle request: %w", err)
	}

	return retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailable, func() (*SettleResponse, error) {
		reqCtx, cancel := c.opContext(ctx, c.Timeouts.SettleTimeout)
		defer cancel()

		body, err := c.post(reqCtx, "/settle", data, ErrSettlementFailed)
		if err != nil {
			return nil, err
		}

		var settleResp SettleResponse
		if err := json.Unmarshal(body, &settleResp); err != nil {
			return nil, fmt.Errorf("failed to decode settle response: %w", err)
		}
		if settleResp.SettledAmount == "" && settleResp.Success {
			settleResp.SettledAmount = requirements.Amount
		}
		if settleResp.SettledAt == "" && settleResp.Success {
			settleResp.SettledAt = time.Now().UTC().Format(time.RFC3339)
		}
		return &settleResp, nil
	})
}

// opContext applies the per-operation timeout unless the caller already
// set a deadline.
func (c *FacilitatorClient) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// post issues a JSON POST and classifies the outcome: connection errors,
// timeouts, and 5xx map to ErrFacilitatorUnavailable (indeterminate);
// 4xx maps to baseErr (definite).
func (c *FacilitatorClient) post(ctx context.Context, path string, data []byte, baseErr error) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Authorization != "" {
		httpReq.Header.Set("Authorization", c.Authorization)
	}

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrFacilitatorUnavailable, httpResp.StatusCode)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(httpResp, baseErr)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFacilitatorUnavailable, err)
	}
	return body, nil
}

// parseErrorResponse extracts error details from a non-200 response.
func parseErrorResponse(resp *http.Response, baseErr error) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var errBody map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &errBody); err == nil {
		if reason, ok := errBody["invalidReason"].(string); ok && reason != "" {
			return fmt.Errorf("%w: status %d, reason: %s", baseErr, resp.StatusCode, reason)
		}
		if reason, ok := errBody["errorReason"].(string); ok && reason != "" {
			return fmt.Errorf("%w: status %d, reason: %s", baseErr, resp.StatusCode, reason)
		}
	}

	if len(bodyBytes) > 0 && len(bodyBytes) < 500 {
		return fmt.Errorf("%w: status %d, body: %s", baseErr, resp.StatusCode, string(bodyBytes))
	}
	return fmt.Errorf("%w: status %d", baseErr, resp.StatusCode)
}

// isFacilitatorUnavailable reports whether an error is an indeterminate
// facilitator outcome, eligible for retry.
func isFacilitatorUnavailable(err error) bool {
	return errors.Is(err, ErrFacilitatorUnavailable)
}
