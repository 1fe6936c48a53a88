package postgres

import (
	"context"
	"fmt"
	"time"
)

// Store implements ports.PayloadStore on the layer_payloads table.
type Store struct {
	db *DB
}

// NewStore creates a new Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Get retrieves a non-expired payload by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.Pool.QueryRow(ctx, `
		SELECT payload FROM layer_payloads
		WHERE key = $1 AND expires_at > now()
	`, key).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("payload get: %w", err)
	}
	return payload, nil
}

// Set upserts a payload with a TTL in seconds.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO layer_payloads (key, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`, key, value, time.Now().Add(time.Duration(ttlSeconds)*time.Second))
	if err != nil {
		return fmt.Errorf("payload set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM layer_payloads WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("payload delete: %w", err)
	}
	return nil
}
