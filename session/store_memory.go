package session

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/pkg/errors"
)

// MemoryStore keeps sessions in process. Sessions are lost on restart and are
// not shared between instances; use RedisStore for that.
type MemoryStore struct {
	client  *ristretto.Cache
	marshal *marshaler.Marshaler
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() (*MemoryStore, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "session.memory.new_cache")
	}

	cacheManager := cache.New[any](ristretto_store.NewRistretto(client))
	return &MemoryStore{
		client:  client,
		marshal: marshaler.New(cacheManager),
	}, nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (map[string]any, error) {
	res, err := s.marshal.Get(ctx, id, new(map[string]any))
	if err != nil {
		// the ristretto store only fails on a missing key
		return nil, ErrNotFound
	}

	values, ok := res.(*map[string]any)
	if !ok || values == nil {
		return nil, ErrNotFound
	}
	return *values, nil
}

func (s *MemoryStore) Save(ctx context.Context, id string, values map[string]any, ttl time.Duration) error {
	err := s.marshal.Set(ctx, id, values,
		store.WithExpiration(ttl),
		store.WithCost(1),
	)
	if err != nil {
		return errors.Wrap(err, "session.memory.set")
	}

	// ristretto applies writes asynchronously
	s.client.Wait()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	return errors.Wrap(s.marshal.Delete(ctx, id), "session.memory.delete")
}

func (s *MemoryStore) Close() error {
	s.client.Close()
	return nil
}
