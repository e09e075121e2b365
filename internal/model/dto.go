package model

import "encoding/json"

// TradeRequest is the incoming JSON body for POST /v1/trade. Order is the
// wallet-signed order exactly as the client serialized it; the relay signs
// and transmits those bytes untouched.
type TradeRequest struct {
	Owner  string          `json:"owner" binding:"required"`
	Funder string          `json:"funder,omitempty"`
	Order  json.RawMessage `json:"order" binding:"required"`
	Creds  *InlineCreds    `json:"creds,omitempty"`
}

// InlineCreds lets a caller supply per-request credentials instead of using
// the stored tuple.
type InlineCreds struct {
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"passphrase"`
}

// TradeResult is always returned, success or not. AttemptedWith names the
// identity ("owner" or "funder") used for the attempt that produced the
// final outcome.
type TradeResult struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id,omitempty"`
	AttemptedWith string `json:"attempted_with"`
	Status        int    `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AuthProof is the wallet-produced L1 proof. It is created off-band by the
// owner's wallet and never re-derived here.
type AuthProof struct {
	Address   string `json:"address" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Nonce     int64  `json:"nonce"`
	Signature string `json:"signature" binding:"required"`
}

// TradingStatus reports whether the exchange currently allows the address
// to trade.
type TradingStatus struct {
	Address        string `json:"address"`
	TradingEnabled bool   `json:"trading_enabled"`
	Error          string `json:"error,omitempty"`
}

// CredentialUpsertRequest is the admin body for PUT /v1/credentials/:address.
type CredentialUpsertRequest struct {
	APIKey     string `json:"api_key" binding:"required"`
	APISecret  string `json:"api_secret" binding:"required"`
	Passphrase string `json:"passphrase" binding:"required"`
	Funder     string `json:"funder,omitempty"`
}

// DeriveRequest runs the L1→L2 provisioning flow for an owner.
type DeriveRequest struct {
	Proof  AuthProof `json:"proof" binding:"required"`
	Funder string    `json:"funder,omitempty"`
}
