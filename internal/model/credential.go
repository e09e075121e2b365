package model

import (
	"fmt"
	"strings"
)

// CredentialTuple is one owner's L2 API credentials for the exchange.
// Key, Secret and Passphrase are always present together: the constructor
// rejects partial tuples so no half-provisioned row can ever be stored.
type CredentialTuple struct {
	OwnerAddress  string `json:"owner_address" db:"owner_address"`
	APIKey        string `json:"api_key" db:"api_key"`
	APISecret     string `json:"api_secret" db:"api_secret"`
	Passphrase    string `json:"passphrase" db:"passphrase"`
	FunderAddress string `json:"funder_address,omitempty" db:"funder_address"`
}

// NewCredentialTuple validates and normalizes a tuple. The owner address is
// lowercased because it is the store's unique key. Missing fields are
// enumerated in the error so callers see everything wrong at once.
func NewCredentialTuple(owner, apiKey, apiSecret, passphrase, funder string) (CredentialTuple, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return CredentialTuple{}, fmt.Errorf("owner address is required")
	}
	var missing []string
	if strings.TrimSpace(apiKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(apiSecret) == "" {
		missing = append(missing, "api_secret")
	}
	if strings.TrimSpace(passphrase) == "" {
		missing = append(missing, "passphrase")
	}
	if len(missing) > 0 {
		return CredentialTuple{}, fmt.Errorf("incomplete credentials: missing %s", strings.Join(missing, ", "))
	}
	return CredentialTuple{
		OwnerAddress:  owner,
		APIKey:        apiKey,
		APISecret:     apiSecret,
		Passphrase:    passphrase,
		FunderAddress: strings.ToLower(strings.TrimSpace(funder)),
	}, nil
}

// Masked returns a copy safe for responses and logs: secret values reduced
// to a last-4 suffix.
func (c CredentialTuple) Masked() CredentialTuple {
	out := c
	out.APIKey = MaskSecret(c.APIKey)
	out.APISecret = MaskSecret(c.APISecret)
	out.Passphrase = MaskSecret(c.Passphrase)
	return out
}

// MaskSecret keeps only the last 4 characters of a secret value.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}
