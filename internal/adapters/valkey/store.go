// Package valkey provides a Valkey-backed durable payload store, so
// expensive Overpass and DEM responses survive process restarts.
package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Store implements ports.PayloadStore using Valkey (Redis-compatible).
type Store struct {
	client valkey.Client
}

// New creates a new Valkey payload store.
func New(addr string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Store{client: client}, nil
}

// Get retrieves a payload by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if cmd.Error() != nil {
		return nil, cmd.Error()
	}
	return cmd.AsBytes()
}

// Set stores a payload with a TTL in seconds.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	cmd := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(value)).Ex(time.Duration(ttlSeconds)*time.Second).Build(),
	)
	return cmd.Error()
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	cmd := s.client.Do(ctx, s.client.B().Del().Key(key).Build())
	return cmd.Error()
}

// Close releases the client.
func (s *Store) Close() {
	s.client.Close()
}
