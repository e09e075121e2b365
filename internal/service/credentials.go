package service

import (
	"context"
	"errors"
	"strings"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// CredentialService wraps the store with validation, funder derivation and
// trade-time resolution. Secrets pass through untouched; masking happens at
// the response boundary.
type CredentialService struct {
	store             CredentialStore
	deriveProxyFunder bool
}

func NewCredentialService(store CredentialStore, deriveProxyFunder bool) *CredentialService {
	return &CredentialService{
		store:             store,
		deriveProxyFunder: deriveProxyFunder,
	}
}

// Upsert validates and stores a full tuple for the owner. When enabled and
// no funder was supplied, the owner's Polymarket proxy wallet is derived as
// the funder candidate.
func (s *CredentialService) Upsert(ctx context.Context, owner string, req model.CredentialUpsertRequest) (model.CredentialTuple, error) {
	tuple, err := model.NewCredentialTuple(owner, req.APIKey, req.APISecret, req.Passphrase, req.Funder)
	if err != nil {
		return model.CredentialTuple{}, apperrors.NewInvalidRequest(err.Error())
	}

	if tuple.FunderAddress == "" && s.deriveProxyFunder {
		if !common.IsHexAddress(tuple.OwnerAddress) {
			return model.CredentialTuple{}, apperrors.NewInvalidRequest("owner is not a valid address")
		}
		proxy, err := auth.DeriveProxyWallet(common.HexToAddress(tuple.OwnerAddress))
		if err == nil {
			tuple.FunderAddress = strings.ToLower(proxy.Hex())
			logger.Info("derived proxy wallet as funder", "owner", tuple.OwnerAddress, "funder", tuple.FunderAddress)
		}
	}

	if err := s.store.Put(ctx, tuple); err != nil {
		return model.CredentialTuple{}, apperrors.New(apperrors.ErrInternal, "failed to store credentials", err)
	}
	return tuple, nil
}

func (s *CredentialService) Get(ctx context.Context, owner string) (*model.CredentialTuple, error) {
	tuple, err := s.store.Get(ctx, strings.ToLower(owner))
	if err != nil {
		if errors.Is(err, repository.ErrCredentialsNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "no credentials for owner", err)
		}
		return nil, apperrors.New(apperrors.ErrInternal, "credential lookup failed", err)
	}
	return tuple, nil
}

func (s *CredentialService) Delete(ctx context.Context, owner string) error {
	if err := s.store.Delete(ctx, strings.ToLower(owner)); err != nil {
		return apperrors.New(apperrors.ErrInternal, "credential delete failed", err)
	}
	return nil
}

// Resolve picks the credentials and funder for a trade: inline per-request
// creds win over the stored tuple; an explicit request funder wins over the
// stored one. Secrets live only for the duration of the request.
func (s *CredentialService) Resolve(ctx context.Context, req model.TradeRequest) (model.CredentialTuple, string, error) {
	owner := strings.ToLower(strings.TrimSpace(req.Owner))
	funder := strings.ToLower(strings.TrimSpace(req.Funder))

	if req.Creds != nil {
		tuple, err := model.NewCredentialTuple(owner, req.Creds.APIKey, req.Creds.APISecret, req.Creds.Passphrase, funder)
		if err != nil {
			return model.CredentialTuple{}, "", apperrors.NewInvalidRequest(err.Error())
		}
		return tuple, funder, nil
	}

	stored, err := s.store.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialsNotFound) {
			return model.CredentialTuple{}, "", apperrors.NewCredentialsAbsent(owner)
		}
		return model.CredentialTuple{}, "", apperrors.New(apperrors.ErrInternal, "credential lookup failed", err)
	}
	if funder == "" {
		funder = stored.FunderAddress
	}
	return *stored, funder, nil
}
