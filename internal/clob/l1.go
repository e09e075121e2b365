package clob

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-712 domain of the exchange's auth handshake.
const (
	AuthDomainName    = "ClobAuthDomain"
	AuthDomainVersion = "1"
	AuthMessage       = "This message attests that I control the given wallet"
)

// AuthTypedData builds the typed data a wallet signs to prove address
// ownership. The relay never signs this itself; it only rebuilds the hash
// to verify proofs produced off-band.
func AuthTypedData(address string, timestamp, nonce, chainID int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    AuthDomainName,
			Version: AuthDomainVersion,
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     big.NewInt(nonce),
			"message":   AuthMessage,
		},
	}
}

// VerifyAuthProof recovers the signer of an L1 proof and requires it to be
// the claimed address. It rejects rather than forwards a spoofed proof so
// the exchange never sees it.
func VerifyAuthProof(address, signature string, timestamp, nonce, chainID int64) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid owner address")
	}
	if signature == "" {
		return fmt.Errorf("signature is required")
	}
	claimed := common.HexToAddress(address)

	typedData := AuthTypedData(claimed.Hex(), timestamp, nonce, chainID)
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return fmt.Errorf("hash typed data: %w", err)
	}

	rawSig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding")
	}
	if len(rawSig) != 65 {
		return fmt.Errorf("invalid signature length")
	}
	// Normalize V to 0/1 for recovery.
	if rawSig[64] >= 27 {
		rawSig[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, rawSig)
	if err != nil {
		return fmt.Errorf("signature recovery failed")
	}
	if crypto.PubkeyToAddress(*pub) != claimed {
		return fmt.Errorf("proof signer does not match owner address")
	}
	return nil
}
