package clob

// Exchange endpoints used by the relay.
const (
	EndpointCreateAPIKey = "/auth/api-key"
	EndpointDeriveAPIKey = "/auth/derive-api-key"
	EndpointAccessStatus = "/auth/access-status"
	EndpointAPIKeys      = "/auth/api-keys"
	EndpointBanStatus    = "/auth/ban-status/closed-only"
	EndpointOrder        = "/order"
)

// Authentication headers. L1 requests carry the wallet proof, L2 requests
// carry the API-key triple plus the HMAC signature. The timestamp header
// must hold the same integer that went into the signature preimage.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
	HeaderNonce      = "POLY_NONCE"
	HeaderAPIKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
)
