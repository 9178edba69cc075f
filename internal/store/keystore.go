package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sparkdata/sparkdata-go/internal/secrets"
)

// Pool is the subset of pgxpool.Pool the key store uses, narrow enough
// for pgxmock to stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrKeyNotFound is returned when no key exists for a service name.
var ErrKeyNotFound = eris.New("store: api key not found")

// KeyStore persists API keys encrypted at rest. Known service names
// include "google_ads_refresh" and "google_ads_access", written by the
// OAuth callback.
type KeyStore struct {
	pool Pool
	enc  *secrets.Box
}

// KeyInfo is the masked view returned to callers; the raw key value is
// never listed.
type KeyInfo struct {
	ServiceName string    `json:"service_name"`
	KeyPreview  string    `json:"key_preview"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const keystoreMigration = `
CREATE TABLE IF NOT EXISTS api_keys (
	id           SERIAL PRIMARY KEY,
	service_name TEXT NOT NULL UNIQUE,
	key_value    TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id       SERIAL PRIMARY KEY,
	email    TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);
`

// NewKeyStore opens a pgx pool against connString and runs the
// migration.
func NewKeyStore(ctx context.Context, connString string, enc *secrets.Box) (*KeyStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "keystore: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "keystore: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "keystore: ping")
	}
	if _, err := pool.Exec(ctx, keystoreMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "keystore: migrate")
	}
	return &KeyStore{pool: pool, enc: enc}, nil
}

// NewKeyStoreWithPool wraps an existing pool, used by tests.
func NewKeyStoreWithPool(pool Pool, enc *secrets.Box) *KeyStore {
	return &KeyStore{pool: pool, enc: enc}
}

// Upsert encrypts and stores a key value for a service.
func (s *KeyStore) Upsert(ctx context.Context, serviceName, keyValue string) error {
	sealed, err := s.enc.Encrypt(keyValue)
	if err != nil {
		return eris.Wrap(err, "keystore: encrypt")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO api_keys (service_name, key_value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (service_name) DO UPDATE SET key_value = $2, updated_at = now()`,
		serviceName, sealed)
	if err != nil {
		return eris.Wrapf(err, "keystore: upsert %s", serviceName)
	}
	return nil
}

// Get returns the decrypted key for one service.
func (s *KeyStore) Get(ctx context.Context, serviceName string) (string, error) {
	var sealed string
	err := s.pool.QueryRow(ctx,
		`SELECT key_value FROM api_keys WHERE service_name = $1`, serviceName).Scan(&sealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", eris.Wrapf(err, "keystore: get %s", serviceName)
	}
	plain, err := s.enc.Decrypt(sealed)
	if err != nil {
		return "", eris.Wrapf(err, "keystore: decrypt %s", serviceName)
	}
	return plain, nil
}

// List returns masked previews of every stored key.
func (s *KeyStore) List(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT service_name, key_value, updated_at FROM api_keys ORDER BY service_name`)
	if err != nil {
		return nil, eris.Wrap(err, "keystore: list")
	}
	defer rows.Close()

	var out []KeyInfo
	for rows.Next() {
		var name, sealed string
		var updated time.Time
		if err := rows.Scan(&name, &sealed, &updated); err != nil {
			return nil, eris.Wrap(err, "keystore: scan")
		}
		plain, err := s.enc.Decrypt(sealed)
		if err != nil {
			plain = ""
		}
		out = append(out, KeyInfo{ServiceName: name, KeyPreview: mask(plain), UpdatedAt: updated})
	}
	return out, rows.Err()
}

// Delete removes a stored key. Returns ErrKeyNotFound if it was
// absent.
func (s *KeyStore) Delete(ctx context.Context, serviceName string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE service_name = $1`, serviceName)
	if err != nil {
		return eris.Wrapf(err, "keystore: delete %s", serviceName)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// Test checks that a stored key decrypts to a non-empty value.
func (s *KeyStore) Test(ctx context.Context, serviceName string) (bool, error) {
	plain, err := s.Get(ctx, serviceName)
	if err != nil {
		return false, err
	}
	return plain != "", nil
}

// UserPasswordHash returns the stored bcrypt hash for an email, or
// ErrKeyNotFound when the user does not exist.
func (s *KeyStore) UserPasswordHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password FROM users WHERE email = $1`, email).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", eris.Wrap(err, "keystore: get user")
	}
	return hash, nil
}

func mask(v string) string {
	if len(v) > 8 {
		return v[:4] + "..." + v[len(v)-4:]
	}
	return v
}
