package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrCredentialsNotFound = errors.New("credentials not found")

// PostgresCredentialStore persists one CredentialTuple row per owner
// address. Writes are full-row upserts; there is no partial update path.
type PostgresCredentialStore struct {
	db *sqlx.DB
}

func NewPostgresCredentialStore(db *sqlx.DB) *PostgresCredentialStore {
	store := &PostgresCredentialStore{db: db}
	_ = store.ensureSchema(context.Background())
	return store
}

type credentialRow struct {
	OwnerAddress  string         `db:"owner_address"`
	APIKey        string         `db:"api_key"`
	APISecret     string         `db:"api_secret"`
	Passphrase    string         `db:"passphrase"`
	FunderAddress sql.NullString `db:"funder_address"`
}

func (s *PostgresCredentialStore) Get(ctx context.Context, owner string) (*model.CredentialTuple, error) {
	var row credentialRow
	query := `SELECT owner_address, api_key, api_secret, passphrase, funder_address FROM credentials WHERE owner_address = $1 LIMIT 1`

	err := s.db.GetContext(ctx, &row, query, strings.ToLower(owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialsNotFound
		}
		return nil, err
	}

	tuple := &model.CredentialTuple{
		OwnerAddress: row.OwnerAddress,
		APIKey:       row.APIKey,
		APISecret:    row.APISecret,
		Passphrase:   row.Passphrase,
	}
	if row.FunderAddress.Valid {
		tuple.FunderAddress = row.FunderAddress.String
	}
	return tuple, nil
}

// Put replaces the whole row for the owner. Last write wins.
func (s *PostgresCredentialStore) Put(ctx context.Context, tuple model.CredentialTuple) error {
	query := `
		INSERT INTO credentials (owner_address, api_key, api_secret, passphrase, funder_address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_address) DO UPDATE
		SET api_key = EXCLUDED.api_key,
		    api_secret = EXCLUDED.api_secret,
		    passphrase = EXCLUDED.passphrase,
		    funder_address = EXCLUDED.funder_address,
		    updated_at = EXCLUDED.updated_at`

	funder := sql.NullString{String: tuple.FunderAddress, Valid: tuple.FunderAddress != ""}
	_, err := s.db.ExecContext(ctx, query,
		strings.ToLower(tuple.OwnerAddress), tuple.APIKey, tuple.APISecret, tuple.Passphrase, funder, time.Now().UTC())
	return err
}

func (s *PostgresCredentialStore) Delete(ctx context.Context, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE owner_address = $1`, strings.ToLower(owner))
	return err
}

func (s *PostgresCredentialStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credentials (
			owner_address TEXT PRIMARY KEY,
			api_key TEXT NOT NULL,
			api_secret TEXT NOT NULL,
			passphrase TEXT NOT NULL,
			funder_address TEXT,
			updated_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return err
	}
	// Secondary lookup by funder for operational queries.
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_credentials_funder ON credentials (funder_address)`)
	return nil
}
