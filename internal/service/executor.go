package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	IdentityOwner  = "owner"
	IdentityFunder = "funder"
)

// Executor places signed orders on the exchange and applies the
// dual-address retry policy: exactly one retry, only on a 403, only when a
// distinct funder address exists. Everything else is terminal.
type Executor struct {
	clob    *clob.Client
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewExecutor(client *clob.Client, backoff time.Duration) *Executor {
	if backoff <= 0 {
		backoff = 350 * time.Millisecond
	}
	return &Executor{
		clob:    client,
		backoff: backoff,
		sleep:   sleepWithContext,
	}
}

// WithSleeper replaces the backoff timer; used by tests to avoid wall-clock
// waits.
func (e *Executor) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Executor {
	e.sleep = sleep
	return e
}

// ExecuteTrade signs and POSTs the order bytes with the owner identity. If
// the exchange answers exactly 403 and a case-insensitively distinct funder
// is configured, it waits one backoff and retries once as the funder. The
// result always names the identity behind the final outcome.
func (e *Executor) ExecuteTrade(ctx context.Context, creds model.CredentialTuple, order []byte, owner, funder string) model.TradeResult {
	result := e.attempt(ctx, creds, order, owner, IdentityOwner)

	if result.Status == http.StatusForbidden && funder != "" && !strings.EqualFold(funder, owner) {
		metrics.FunderRetries.Inc()
		logger.Warn("order blocked for owner address, retrying with funder",
			"owner", owner, "funder", funder)
		if err := e.sleep(ctx, e.backoff); err != nil {
			result.Error = fmt.Sprintf("%s (funder retry aborted: %v)", result.Error, err)
			return result
		}
		result = e.attempt(ctx, creds, order, funder, IdentityFunder)
	}

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.TradesTotal.WithLabelValues(outcome, result.AttemptedWith).Inc()
	return result
}

func (e *Executor) attempt(ctx context.Context, creds model.CredentialTuple, order []byte, identity, label string) model.TradeResult {
	auth := clob.L2Auth{
		Address:    identity,
		APIKey:     creds.APIKey,
		APISecret:  creds.APISecret,
		Passphrase: creds.Passphrase,
	}

	resp, err := e.clob.L2Do(ctx, http.MethodPost, clob.EndpointOrder, auth, order)
	if err != nil {
		return model.TradeResult{
			AttemptedWith: label,
			Error:         fmt.Sprintf("order transport failure: %v", err),
		}
	}

	if !resp.OK() {
		return model.TradeResult{
			AttemptedWith: label,
			Status:        resp.Status,
			Error:         resp.Body.Raw,
		}
	}

	orderID := firstStringField(resp.Body, "orderID", "orderId", "id")
	if orderID == "" {
		// 2xx without an order id is an upstream integrity failure, not a
		// success.
		return model.TradeResult{
			AttemptedWith: label,
			Status:        resp.Status,
			Error:         "exchange accepted the order but returned no order id",
		}
	}

	return model.TradeResult{
		Success:       true,
		OrderID:       orderID,
		AttemptedWith: label,
		Status:        resp.Status,
	}
}

// CheckTradingStatus signs a ban-status read and reports the inverse of the
// exchange's closed-only flag. It never returns an error: failures map to
// trading disabled with an explanation.
func (e *Executor) CheckTradingStatus(ctx context.Context, creds model.CredentialTuple, address string) model.TradingStatus {
	auth := clob.L2Auth{
		Address:    address,
		APIKey:     creds.APIKey,
		APISecret:  creds.APISecret,
		Passphrase: creds.Passphrase,
	}

	status := model.TradingStatus{Address: strings.ToLower(address)}
	resp, err := e.clob.L2Do(ctx, http.MethodGet, clob.EndpointBanStatus, auth, nil)
	if err != nil {
		status.Error = fmt.Sprintf("ban-status transport failure: %v", err)
		return status
	}
	if !resp.OK() {
		status.Error = fmt.Sprintf("ban-status returned %d: %s", resp.Status, resp.Body.Raw)
		return status
	}

	closedOnly, ok := resp.Body.BoolField("closed_only")
	if !ok {
		closedOnly, ok = resp.Body.BoolField("closedOnly")
	}
	if !ok {
		status.Error = "ban-status response missing closed_only flag"
		return status
	}
	status.TradingEnabled = !closedOnly
	return status
}

// ValidateOrderPayload sanity-checks the opaque order bytes without ever
// re-serializing them: the original bytes stay the signature preimage.
func ValidateOrderPayload(order json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(order, &fields); err != nil {
		return apperrors.NewInvalidRequest("order must be a JSON object")
	}
	for _, required := range []string{"salt", "maker", "signer", "tokenId", "signature"} {
		if _, ok := fields[required]; !ok {
			return apperrors.NewInvalidRequest(fmt.Sprintf("order is missing %q", required))
		}
	}
	for _, amount := range []string{"makerAmount", "takerAmount"} {
		raw, ok := fields[amount]
		if !ok {
			return apperrors.NewInvalidRequest(fmt.Sprintf("order is missing %q", amount))
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		value, err := decimal.NewFromString(s)
		if err != nil {
			return apperrors.NewInvalidRequest(fmt.Sprintf("order %s is not numeric", amount))
		}
		if value.Sign() <= 0 {
			return apperrors.NewInvalidRequest(fmt.Sprintf("order %s must be positive", amount))
		}
	}
	return nil
}

func firstStringField(body clob.UpstreamBody, keys ...string) string {
	for _, key := range keys {
		if v := body.StringField(key); v != "" {
			return v
		}
	}
	return ""
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
