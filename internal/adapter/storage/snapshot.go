package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/niksmo/storefront/internal/core/codec"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// DefaultSnapshotKey is the key holding the {products, cart} blob.
const DefaultSnapshotKey = "store-storage"

var _ port.SnapshotStore = (*SnapshotRepository)(nil)

type SnapshotRepository struct {
	kv  KV
	key string
}

func NewSnapshotRepository(kv KV, key string) SnapshotRepository {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return SnapshotRepository{kv, key}
}

func (r SnapshotRepository) LoadSnapshot(
	ctx context.Context,
) (domain.Snapshot, bool, error) {
	const op = "SnapshotRepository.LoadSnapshot"

	b, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, fmt.Errorf("%s: %w", op, err)
	}

	snap, err := codec.UnmarshalSnapshot(b)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return snap, true, nil
}

func (r SnapshotRepository) SaveSnapshot(
	ctx context.Context, snap domain.Snapshot,
) error {
	const op = "SnapshotRepository.SaveSnapshot"

	b, err := codec.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.kv.Put(ctx, r.key, b); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
