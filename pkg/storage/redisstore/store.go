// Package redisstore persists snapshots in Redis, for kiosk deployments
// where several terminals share one ordering profile.
package redisstore

import (
	"context"

	pkgredis "github.com/campuscrave/campuscrave-client/pkg/redis"
	"github.com/campuscrave/campuscrave-client/pkg/storage"
)

type Store struct {
	client *pkgredis.Client
}

func New(client *pkgredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.StateKey(key))
	if pkgredis.IsNil(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.client.StateKey(key), data, 0)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.client.StateKey(key))
}

func (s *Store) Close() error {
	return s.client.Close()
}
