package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() model.CredentialTuple {
	return model.CredentialTuple{
		OwnerAddress: "0xowner",
		APIKey:       "key-1",
		APISecret:    base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
		Passphrase:   "pass-1",
	}
}

func testOrder() []byte {
	return []byte(`{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":"100","takerAmount":"50","signature":"0xsig"}`)
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestExecuteTradeFunderRetryOn403(t *testing.T) {
	var calls int32
	var identities []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identities = append(identities, r.Header.Get("POLY_ADDRESS"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"address blocked"}`))
			return
		}
		w.Write([]byte(`{"orderID":"ord-123"}`))
	}))
	defer srv.Close()

	executor := NewExecutor(clob.NewClient(srv.URL, time.Second), time.Millisecond).WithSleeper(noSleep)
	result := executor.ExecuteTrade(context.Background(), testCreds(), testOrder(), "0xowner", "0xfunder")

	assert.True(t, result.Success)
	assert.Equal(t, "ord-123", result.OrderID)
	assert.Equal(t, IdentityFunder, result.AttemptedWith)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, identities, 2)
	assert.Equal(t, "0xowner", identities[0])
	assert.Equal(t, "0xfunder", identities[1])
}

func TestExecuteTradeNoRetryWhenFunderIsOwner(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"address blocked"}`))
	}))
	defer srv.Close()

	executor := NewExecutor(clob.NewClient(srv.URL, time.Second), time.Millisecond).WithSleeper(noSleep)
	// Same address differing only in case is not a distinct funder.
	result := executor.ExecuteTrade(context.Background(), testCreds(), testOrder(), "0xOWNER", "0xowner")

	assert.False(t, result.Success)
	assert.Equal(t, IdentityOwner, result.AttemptedWith)
	assert.Equal(t, http.StatusForbidden, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExecuteTradeNoRetryOnOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"nope"}`))
		}))

		executor := NewExecutor(clob.NewClient(srv.URL, time.Second), time.Millisecond).WithSleeper(noSleep)
		result := executor.ExecuteTrade(context.Background(), testCreds(), testOrder(), "0xowner", "0xfunder")
		srv.Close()

		assert.False(t, result.Success, "status %d", status)
		assert.Equal(t, IdentityOwner, result.AttemptedWith, "status %d", status)
		assert.Equal(t, status, result.Status, "status %d", status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "status %d", status)
	}
}

func TestExecuteTradeAcceptedWithoutOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"matched"}`))
	}))
	defer srv.Close()

	executor := NewExecutor(clob.NewClient(srv.URL, time.Second), time.Millisecond).WithSleeper(noSleep)
	result := executor.ExecuteTrade(context.Background(), testCreds(), testOrder(), "0xowner", "")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no order id")
}

func TestExecuteTradeAlternateOrderIDKeys(t *testing.T) {
	for _, payload := range []string{`{"orderId":"a-1"}`, `{"id":"a-1"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))

		executor := NewExecutor(clob.NewClient(srv.URL, time.Second), time.Millisecond).WithSleeper(noSleep)
		result := executor.ExecuteTrade(context.Background(), testCreds(), testOrder(), "0xowner", "")
		srv.Close()

		assert.True(t, result.Success, payload)
		assert.Equal(t, "a-1", result.OrderID, payload)
	}
}

func TestCheckTradingStatus(t *testing.T) {
	cases := []struct {
		body    string
		status  int
		enabled bool
		withErr bool
	}{
		{body: `{"closed_only":false}`, status: 200, enabled: true},
		{body: `{"closed_only":true}`, status: 200, enabled: false},
		{body: `{"closedOnly":true}`, status: 200, enabled: false},
		{body: `{}`, status: 200, enabled: false, withErr: true},
		{body: `{"error":"denied"}`, status: 401, enabled: false, withErr: true},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))

		executor := NewExecutor(clob.NewClient(srv.URL, time.Second), time.Millisecond)
		status := executor.CheckTradingStatus(context.Background(), testCreds(), "0xOwner")
		srv.Close()

		assert.Equal(t, "0xowner", status.Address, tc.body)
		assert.Equal(t, tc.enabled, status.TradingEnabled, tc.body)
		if tc.withErr {
			assert.NotEmpty(t, status.Error, tc.body)
		} else {
			assert.Empty(t, status.Error, tc.body)
		}
	}
}

func TestValidateOrderPayload(t *testing.T) {
	valid := testOrder()
	assert.NoError(t, ValidateOrderPayload(valid))

	// Unquoted numeric amounts are accepted too.
	assert.NoError(t, ValidateOrderPayload([]byte(`{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":100,"takerAmount":50,"signature":"0xsig"}`)))

	cases := map[string]string{
		"not an object":     `["order"]`,
		"missing signature": `{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":"100","takerAmount":"50"}`,
		"missing maker":     `{"salt":"1","signer":"0xs","tokenId":"9","makerAmount":"100","takerAmount":"50","signature":"0xsig"}`,
		"zero amount":       `{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":"0","takerAmount":"50","signature":"0xsig"}`,
		"negative amount":   `{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":"100","takerAmount":"-5","signature":"0xsig"}`,
		"non-numeric":       `{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":"lots","takerAmount":"50","signature":"0xsig"}`,
	}
	for name, payload := range cases {
		err := ValidateOrderPayload(json.RawMessage(payload))
		assert.Error(t, err, name)
	}
}
