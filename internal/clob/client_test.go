package clob

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2DoHeaders(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	body := []byte(`{"salt":"1"}`)
	fixed := time.Unix(1700000000, 0)

	var got http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second).WithClock(func() time.Time { return fixed })
	auth := L2Auth{
		Address:    "0xowner",
		APIKey:     "key-1",
		APISecret:  secret,
		Passphrase: "pass-1",
	}
	resp, err := client.L2Do(context.Background(), http.MethodPost, "/order", auth, body)
	require.NoError(t, err)
	assert.True(t, resp.OK())

	assert.Equal(t, "0xowner", got.Get(HeaderAddress))
	assert.Equal(t, "key-1", got.Get(HeaderAPIKey))
	assert.Equal(t, "pass-1", got.Get(HeaderPassphrase))
	assert.Equal(t, "1700000000", got.Get(HeaderTimestamp))

	// Signature header matches a signature over the exact wire bytes with
	// the same timestamp integer.
	expected, err := Sign(secret, http.MethodPost, "/order", fixed.Unix(), body)
	require.NoError(t, err)
	assert.Equal(t, expected, got.Get(HeaderSignature))
	assert.Equal(t, body, gotBody)
}

func TestL1DoHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	auth := L1Auth{
		Address:   "0xowner",
		Signature: "0xsig",
		Timestamp: 1700000000,
		Nonce:     3,
	}
	_, err := client.L1Do(context.Background(), http.MethodPost, EndpointCreateAPIKey, auth, nil)
	require.NoError(t, err)

	assert.Equal(t, "0xowner", got.Get(HeaderAddress))
	assert.Equal(t, "0xsig", got.Get(HeaderSignature))
	assert.Equal(t, "1700000000", got.Get(HeaderTimestamp))
	assert.Equal(t, "3", got.Get(HeaderNonce))
	assert.Empty(t, got.Get(HeaderAPIKey))
}

func TestResponseBodyClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Write([]byte(`{"orderID":"ord-1","closed_only":false}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream exploded"))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	resp, err := client.Do(context.Background(), http.MethodGet, "/json", nil, nil)
	require.NoError(t, err)
	assert.True(t, resp.Body.Parsed())
	assert.Equal(t, "ord-1", resp.Body.StringField("orderID"))
	closed, ok := resp.Body.BoolField("closed_only")
	assert.True(t, ok)
	assert.False(t, closed)
	assert.Equal(t, "", resp.Body.StringField("missing"))

	resp, err = client.Do(context.Background(), http.MethodGet, "/text", nil, nil)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.False(t, resp.Body.Parsed())
	assert.Equal(t, "upstream exploded", resp.Body.Raw)
}
