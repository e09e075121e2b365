package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// inspector is an operator tool: given a wallet private key it derives the
// proxy wallet, and can run the full provisioning flow against a running
// relay to check that credentials come back.
func main() {
	var (
		privateKey = flag.String("key", "", "wallet private key (hex)")
		chainID    = flag.Int64("chain-id", 137, "EVM chain id")
		nonce      = flag.Int64("nonce", 0, "API key nonce")
		funder     = flag.String("funder", "", "funder address override")
		relayURL   = flag.String("relay", "", "relay base URL, e.g. http://localhost:8080")
		relayKey   = flag.String("relay-key", "", "relay shared secret")
	)
	flag.Parse()

	if *privateKey == "" {
		fmt.Fprintln(os.Stderr, "usage: inspector -key <private-key> [-relay <url> -relay-key <secret>]")
		os.Exit(1)
	}

	signer, err := auth.NewPrivateKeySigner(*privateKey, *chainID)
	if err != nil {
		fatal("invalid private key: %v", err)
	}

	owner := signer.Address()
	fmt.Printf("owner address: %s\n", owner.Hex())

	proxy, err := auth.DeriveProxyWallet(owner)
	if err != nil {
		fatal("proxy derivation failed: %v", err)
	}
	fmt.Printf("proxy wallet:  %s\n", proxy.Hex())

	if *relayURL == "" {
		return
	}

	ts := time.Now().Unix()
	typedData := clob.AuthTypedData(owner.Hex(), ts, *nonce, *chainID)
	sig, err := signer.SignTypedData(&typedData.Domain, typedData.Types, typedData.Message, typedData.PrimaryType)
	if err != nil {
		fatal("typed data signing failed: %v", err)
	}

	req := model.DeriveRequest{
		Proof: model.AuthProof{
			Address:   owner.Hex(),
			Timestamp: ts,
			Nonce:     *nonce,
			Signature: hexutil.Encode(sig),
		},
		Funder: *funder,
	}

	body, err := postJSON(*relayURL+"/v1/auth/derive", *relayKey, req)
	if err != nil {
		fatal("provisioning failed: %v", err)
	}
	fmt.Printf("provisioned credentials: %s\n", body)
}

func postJSON(url, relayKey string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if relayKey != "" {
		req.Header.Set("X-Relay-Key", relayKey)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
