package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports that no snapshot exists under the requested key. A
// missing key is the ordinary first-run case, not a failure.
var ErrNotFound = errors.New("storage: key not found")

// Store is the durable client-side state layer. Cart and favorites snapshots
// are written through it synchronously on every mutation so that a restart
// never loses the most recent state.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Well-known snapshot keys, mirroring the browser profile the platform
// originally persisted into.
const (
	KeyCart      = "cc_cart"
	KeyFavorites = "cc_favorites"
)
