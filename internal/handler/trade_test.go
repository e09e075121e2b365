package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/repository"
	"github.com/GoPolymarket/polyrelay/internal/service"
	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	tuples map[string]model.CredentialTuple
}

func (s *fakeStore) Get(ctx context.Context, owner string) (*model.CredentialTuple, error) {
	tuple, ok := s.tuples[owner]
	if !ok {
		return nil, repository.ErrCredentialsNotFound
	}
	return &tuple, nil
}

func (s *fakeStore) Put(ctx context.Context, tuple model.CredentialTuple) error {
	s.tuples[tuple.OwnerAddress] = tuple
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, owner string) error {
	delete(s.tuples, owner)
	return nil
}

func tradeRouter(upstreamURL string, store service.CredentialStore, maxPerWindow int) *gin.Engine {
	gin.SetMode(gin.TestMode)

	client := clob.NewClient(upstreamURL, time.Second)
	executor := service.NewExecutor(client, time.Millisecond).
		WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })
	credSvc := service.NewCredentialService(store, false)
	gate := service.NewGate(time.Minute, maxPerWindow)

	h := NewTradeHandler(executor, credSvc, gate)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/v1/trade", h.PlaceTrade)
	r.GET("/v1/trading-status/:address", h.TradingStatus)
	return r
}

func tradeBody(t *testing.T, withCreds bool) []byte {
	t.Helper()
	req := map[string]interface{}{
		"owner": "0xOwner",
		"order": json.RawMessage(`{"salt":"1","maker":"0xm","signer":"0xs","tokenId":"9","makerAmount":"100","takerAmount":"50","signature":"0xsig"}`),
	}
	if withCreds {
		req["creds"] = map[string]string{
			"api_key":    "key-1",
			"api_secret": base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
			"passphrase": "pass-1",
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestPlaceTradeSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderID":"ord-1"}`))
	}))
	defer upstream.Close()

	router := tradeRouter(upstream.URL, &fakeStore{tuples: map[string]model.CredentialTuple{}}, 10)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trade", bytes.NewReader(tradeBody(t, true)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result model.TradeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid result json: %v", err)
	}
	if !result.Success || result.OrderID != "ord-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.AttemptedWith != service.IdentityOwner {
		t.Fatalf("expected owner identity, got %q", result.AttemptedWith)
	}
}

func TestPlaceTradeRateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderID":"ord-1"}`))
	}))
	defer upstream.Close()

	router := tradeRouter(upstream.URL, &fakeStore{tuples: map[string]model.CredentialTuple{}}, 1)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/trade", bytes.NewReader(tradeBody(t, true)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func TestPlaceTradeRejectsInvalidOrder(t *testing.T) {
	router := tradeRouter("http://127.0.0.1:0", &fakeStore{tuples: map[string]model.CredentialTuple{}}, 10)

	body := []byte(`{"owner":"0xowner","order":{"salt":"1"},"creds":{"api_key":"k","api_secret":"s","passphrase":"p"}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid order, got %d", rec.Code)
	}
}

func TestPlaceTradeCredentialsAbsent(t *testing.T) {
	router := tradeRouter("http://127.0.0.1:0", &fakeStore{tuples: map[string]model.CredentialTuple{}}, 10)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/trade", bytes.NewReader(tradeBody(t, false)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without credentials, got %d", rec.Code)
	}

	var appErr struct {
		Code       string `json:"code"`
		Suggestion string `json:"suggestion"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &appErr); err != nil {
		t.Fatalf("invalid error json: %v", err)
	}
	if appErr.Code != "CREDENTIALS_ABSENT" {
		t.Fatalf("expected CREDENTIALS_ABSENT, got %q", appErr.Code)
	}
	if appErr.Suggestion == "" {
		t.Fatalf("expected a provisioning suggestion")
	}
}

func TestTradingStatusEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"closed_only":true}`))
	}))
	defer upstream.Close()

	store := &fakeStore{tuples: map[string]model.CredentialTuple{
		"0xowner": {
			OwnerAddress: "0xowner",
			APIKey:       "key-1",
			APISecret:    "c2VjcmV0",
			Passphrase:   "pass-1",
		},
	}}
	router := tradeRouter(upstream.URL, store, 10)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trading-status/0xOwner", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var status model.TradingStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid status json: %v", err)
	}
	if status.TradingEnabled {
		t.Fatalf("expected trading disabled for closed-only address")
	}
}
