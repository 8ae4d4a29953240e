package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"squarespool/internal/domain"
	"squarespool/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaPoolStore implements ports.PoolStore on Nakama storage. Pools are
// system-owned objects readable by everyone and writable only by the server.
type NakamaPoolStore struct {
	nk runtime.NakamaModule
}

// NewNakamaPoolStore creates a new pool store adapter.
func NewNakamaPoolStore(nk runtime.NakamaModule) *NakamaPoolStore {
	return &NakamaPoolStore{nk: nk}
}

func (s *NakamaPoolStore) Load(ctx context.Context, id string) (*domain.Pool, string, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: poolCollection, Key: id},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read pool: %w", err)
	}
	if len(objects) == 0 {
		return nil, "", ports.ErrPoolNotFound
	}

	pool, err := decodePool(objects[0])
	if err != nil {
		return nil, "", err
	}
	return pool, objects[0].GetVersion(), nil
}

func (s *NakamaPoolStore) Create(ctx context.Context, pool *domain.Pool) (string, error) {
	version, err := s.write(ctx, pool, "*")
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return "", ports.ErrPoolExists
	}
	return version, err
}

func (s *NakamaPoolStore) Save(ctx context.Context, pool *domain.Pool, version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("save of pool %s needs a version", pool.ID)
	}
	newVersion, err := s.write(ctx, pool, version)
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return "", ports.ErrVersionConflict
	}
	return newVersion, err
}

func (s *NakamaPoolStore) List(ctx context.Context, limit int, cursor string) ([]*domain.Pool, string, error) {
	objects, next, err := s.nk.StorageList(ctx, "", "", poolCollection, limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list pools: %w", err)
	}
	pools := make([]*domain.Pool, 0, len(objects))
	for _, obj := range objects {
		pool, err := decodePool(obj)
		if err != nil {
			// Skip unreadable documents.
			continue
		}
		pools = append(pools, pool)
	}
	return pools, next, nil
}

func (s *NakamaPoolStore) write(ctx context.Context, pool *domain.Pool, version string) (string, error) {
	value, err := json.Marshal(pool)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pool: %w", err)
	}
	acks, err := s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      poolCollection,
			Key:             pool.ID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return "", err
	}
	if len(acks) == 0 {
		return "", fmt.Errorf("no storage ack for pool %s", pool.ID)
	}
	return acks[0].GetVersion(), nil
}

func decodePool(obj *api.StorageObject) (*domain.Pool, error) {
	var pool domain.Pool
	if err := json.Unmarshal([]byte(obj.GetValue()), &pool); err != nil {
		return nil, fmt.Errorf("failed to decode pool %s: %w", obj.GetKey(), err)
	}
	if pool.ID == "" {
		pool.ID = obj.GetKey()
	}
	if ts := obj.GetUpdateTime(); ts != nil && ts.IsValid() {
		pool.UpdatedAt = ts.AsTime()
	}
	return &pool, nil
}

var _ ports.PoolStore = (*NakamaPoolStore)(nil)
