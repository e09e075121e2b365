package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
)

// UpstreamBody is the exchange response body, classified once at the
// transport boundary: Fields is set when the body parsed as a JSON object,
// Raw always holds the verbatim text.
type UpstreamBody struct {
	Fields map[string]json.RawMessage
	Raw    string
}

// Parsed reports whether the body was a JSON object.
func (b UpstreamBody) Parsed() bool {
	return b.Fields != nil
}

// StringField extracts a top-level string field, empty when absent or not
// a string.
func (b UpstreamBody) StringField(key string) string {
	raw, ok := b.Fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// BoolField extracts a top-level boolean field.
func (b UpstreamBody) BoolField(key string) (bool, bool) {
	raw, ok := b.Fields[key]
	if !ok {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	return v, true
}

// Response is an exchange reply: HTTP status plus the classified body.
type Response struct {
	Status int
	Body   UpstreamBody
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// L1Auth carries the wallet proof headers for credential provisioning.
type L1Auth struct {
	Address   string
	Signature string
	Timestamp int64
	Nonce     int64
}

// L2Auth carries the API-key triple. Address is the identity header and may
// differ from the address the credentials were issued for (funder retry).
type L2Auth struct {
	Address    string
	APIKey     string
	APISecret  string
	Passphrase string
}

// Client is the HTTP transport to the exchange. It deliberately uses the
// stock net/http client so signed request bodies reach the wire byte-exact.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// WithClock overrides the timestamp source; used by tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Do issues a plain request with the given headers. The body bytes are sent
// exactly as passed.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{Status: resp.StatusCode, Body: classifyBody(raw)}, nil
}

// L1Do issues a request authenticated with the wallet proof headers.
func (c *Client) L1Do(ctx context.Context, method, path string, auth L1Auth, body []byte) (*Response, error) {
	headers := map[string]string{
		HeaderAddress:   auth.Address,
		HeaderSignature: auth.Signature,
		HeaderTimestamp: strconv.FormatInt(auth.Timestamp, 10),
		HeaderNonce:     strconv.FormatInt(auth.Nonce, 10),
	}
	return c.Do(ctx, method, path, headers, body)
}

// L2Do signs the request with a fresh timestamp and issues it with the
// API-key headers. The timestamp header and the signature preimage share
// the same integer.
func (c *Client) L2Do(ctx context.Context, method, path string, auth L2Auth, body []byte) (*Response, error) {
	ts := c.now().Unix()
	sig, err := Sign(auth.APISecret, method, path, ts, body)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		HeaderAddress:    auth.Address,
		HeaderAPIKey:     auth.APIKey,
		HeaderPassphrase: auth.Passphrase,
		HeaderTimestamp:  strconv.FormatInt(ts, 10),
		HeaderSignature:  sig,
	}
	return c.Do(ctx, method, path, headers, body)
}

// classifyBody decides once whether the body is a JSON object; callers never
// re-parse.
func classifyBody(raw []byte) UpstreamBody {
	body := UpstreamBody{Raw: string(raw)}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		body.Fields = fields
	}
	return body
}
