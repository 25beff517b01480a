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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GatewayOptions configures the HTTP payment gateway
type GatewayOptions struct {
	Timeout             time.Duration
	BreakerMaxFailures  uint32
	BreakerOpenInterval time.Duration
	Client              *http.Client
}

// HTTPGateway authorizes payments against the payment backend over HTTP.
// Calls go through a circuit breaker so a failing backend fails fast.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[Result]
}

type authorizeRequest struct {
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotencyKey"`
	Email          string `json:"email,omitempty"`
}

type authorizeResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
	Amount    string `json:"amount"`
}

var (
	// errServer marks responses that should count against the breaker
	errServer = errors.New("payment backend error")
	// errCallerGone marks calls abandoned by the caller's own deadline or cancel; the breaker ignores them
	errCallerGone = errors.New("payment call abandoned by caller")
)

// NewHTTPGateway creates a gateway for the backend at baseURL
func NewHTTPGateway(baseURL string, opts GatewayOptions) *HTTPGateway {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	maxFailures := opts.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openInterval := opts.BreakerOpenInterval
	if openInterval <= 0 {
		openInterval = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     openInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
	})

	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		breaker: breaker,
	}
}

// Authorize charges req.Amount. Transport failures, 5xx responses and an open
// breaker all surface as StatusError results.
func (g *HTTPGateway) Authorize(ctx context.Context, req Request) Result {
	res, err := g.breaker.Execute(func() (Result, error) {
		return g.authorize(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Failed("payment gateway unavailable: circuit open")
		}
		return Failed(err.Error())
	}
	return res
}

// State exposes the breaker state for health reporting
func (g *HTTPGateway) State() string {
	return g.breaker.State().String()
}

func (g *HTTPGateway) authorize(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(authorizeRequest{
		Amount:         req.Amount.StringFixed(2),
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Email:          req.CustomerEmail,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments/authorize", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
		}
		return Result{}, fmt.Errorf("failed to reach payment backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("%w: status %d", errServer, resp.StatusCode)
	}

	var out authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Failed(fmt.Sprintf("unreadable payment response: %v", err)), nil
	}

	if resp.StatusCode >= http.StatusBadRequest && out.Status == "" {
		return Failed(fmt.Sprintf("payment backend rejected request: status %d", resp.StatusCode)), nil
	}

	return out.toResult(), nil
}

func (r authorizeResponse) toResult() Result {
	switch strings.ToLower(r.Status) {
	case "succeeded", "success":
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return Failed(fmt.Sprintf("invalid amount %q in payment response", r.Amount))
		}
		if r.Reference == "" {
			return Failed("payment response missing reference")
		}
		return Succeeded(r.Reference, amount)
	case "declined", "requires_payment_method":
		return Declined(r.Reason)
	default:
		reason := r.Reason
		if reason == "" {
			reason = fmt.Sprintf("unexpected payment status %q", r.Status)
		}
		return Failed(reason)
	}
}
