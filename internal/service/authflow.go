package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
)

// CredentialStore is the persistent keyed store of per-owner credential
// tuples. Writes are full-tuple upserts.
type CredentialStore interface {
	Get(ctx context.Context, owner string) (*model.CredentialTuple, error)
	Put(ctx context.Context, tuple model.CredentialTuple) error
	Delete(ctx context.Context, owner string) error
}

// AuthFlow provisions L2 credentials from a wallet-signed L1 proof:
// create, fall back to derive once, self-verify the result, then persist.
type AuthFlow struct {
	clob        *clob.Client
	store       CredentialStore
	chainID     int64
	verifyProof bool
}

func NewAuthFlow(client *clob.Client, store CredentialStore, chainID int64, verifyProof bool) *AuthFlow {
	return &AuthFlow{
		clob:        client,
		store:       store,
		chainID:     chainID,
		verifyProof: verifyProof,
	}
}

// Provision runs the full L1→L2 flow. On any failure the upstream status
// and body come back verbatim on the error, tagged with the step that
// failed; secrets appear only as last-4 suffixes. The tuple is persisted
// only after the inline verify succeeds.
func (f *AuthFlow) Provision(ctx context.Context, proof model.AuthProof, funder string) (*model.CredentialTuple, error) {
	if f.verifyProof {
		if err := clob.VerifyAuthProof(proof.Address, proof.Signature, proof.Timestamp, proof.Nonce, f.chainID); err != nil {
			return nil, apperrors.New(apperrors.ErrAuthFailed, err.Error(), err)
		}
	}

	l1 := clob.L1Auth{
		Address:   proof.Address,
		Signature: proof.Signature,
		Timestamp: proof.Timestamp,
		Nonce:     proof.Nonce,
	}

	resp, err := f.clob.L1Do(ctx, http.MethodPost, clob.EndpointCreateAPIKey, l1, nil)
	if err != nil || !resp.OK() {
		// One-shot fallback: the key may already exist, in which case the
		// exchange only allows deriving it.
		resp, err = f.clob.L1Do(ctx, http.MethodGet, clob.EndpointDeriveAPIKey, l1, nil)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrTransport, fmt.Sprintf("derive request failed: %v", err), err).At("derive")
		}
		if !resp.OK() {
			return nil, f.deriveFailure(ctx, proof.Address, resp)
		}
	}

	key := resp.Body.StringField("apiKey")
	secret := resp.Body.StringField("secret")
	passphrase := resp.Body.StringField("passphrase")
	if key == "" || secret == "" || passphrase == "" {
		return nil, apperrors.NewUpstream(apperrors.ErrMalformedUpstream,
			"exchange returned credentials without key/secret/passphrase", resp.Status, "").At("derive")
	}

	if err := f.verify(ctx, proof.Address, key, secret, passphrase); err != nil {
		return nil, err
	}

	tuple, err := model.NewCredentialTuple(proof.Address, key, secret, passphrase, funder)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrMalformedUpstream, err.Error(), err).At("verify")
	}
	if err := f.store.Put(ctx, tuple); err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "failed to persist credentials", err)
	}

	logger.Info("credentials provisioned",
		"owner", tuple.OwnerAddress,
		"api_key", model.MaskSecret(tuple.APIKey))
	return &tuple, nil
}

// verify issues a freshly signed self-check with the new credentials before
// anything is persisted, so a malformed or stale tuple never reaches the
// store.
func (f *AuthFlow) verify(ctx context.Context, address, key, secret, passphrase string) error {
	auth := clob.L2Auth{
		Address:    address,
		APIKey:     key,
		APISecret:  secret,
		Passphrase: passphrase,
	}
	resp, err := f.clob.L2Do(ctx, http.MethodGet, clob.EndpointAPIKeys, auth, nil)
	if err != nil {
		return apperrors.New(apperrors.ErrTransport,
			fmt.Sprintf("credential self-check failed for key %s: %v", model.MaskSecret(key), err), err).At("verify")
	}
	if !resp.OK() {
		return apperrors.NewUpstream(apperrors.ErrUpstreamRejected,
			fmt.Sprintf("exchange rejected freshly issued credentials (key %s, passphrase %s)",
				model.MaskSecret(key), model.MaskSecret(passphrase)),
			resp.Status, resp.Body.Raw).At("verify")
	}
	return nil
}

// deriveFailure augments the terminal derive rejection with the exchange's
// access-status diagnostic for the address.
func (f *AuthFlow) deriveFailure(ctx context.Context, address string, resp *clob.Response) error {
	msg := "credential create and derive both rejected"
	path := clob.EndpointAccessStatus + "?address=" + url.QueryEscape(strings.ToLower(address))
	status, err := f.clob.Do(ctx, http.MethodGet, path, nil, nil)
	if err == nil && status != nil {
		msg = fmt.Sprintf("%s (access-status %d: %s)", msg, status.Status, status.Body.Raw)
	}
	return apperrors.NewUpstream(apperrors.ErrUpstreamRejected, msg, resp.Status, resp.Body.Raw).At("derive")
}
