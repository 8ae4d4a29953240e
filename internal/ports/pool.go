package ports

import (
	"context"
	"errors"

	"squarespool/internal/domain"
)

var (
	// ErrPoolNotFound is returned by PoolStore.Load when no document exists for the id.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrPoolExists is returned by PoolStore.Create when the id is already taken.
	ErrPoolExists = errors.New("pool already exists")
	// ErrVersionConflict is returned by PoolStore.Save when the stored version moved on.
	ErrVersionConflict = errors.New("pool version conflict")
)

// PoolStore persists pool documents with optimistic concurrency.
type PoolStore interface {
	// Load returns the current document and its opaque version.
	Load(ctx context.Context, id string) (*domain.Pool, string, error)
	// Create stores a new document only if no document with the same id exists.
	Create(ctx context.Context, pool *domain.Pool) (string, error)
	// Save replaces the document if its stored version still equals version.
	// Returns the new version.
	Save(ctx context.Context, pool *domain.Pool, version string) (string, error)
	// List pages through stored documents. An empty next cursor means no more pages.
	List(ctx context.Context, limit int, cursor string) ([]*domain.Pool, string, error)
}

// UpdateKind names what changed in a pool update.
type UpdateKind string

const (
	UpdateSquares  UpdateKind = "squares"
	UpdateAxes     UpdateKind = "axes"
	UpdateScores   UpdateKind = "scores"
	UpdateSettings UpdateKind = "settings"
)

// PoolUpdate describes a committed change to a pool.
type PoolUpdate struct {
	PoolID   string           `json:"pool_id"`
	Kind     UpdateKind       `json:"kind"`
	Version  string           `json:"version"`
	Assigned []domain.CellKey `json:"assigned,omitempty"`
	Cleared  []domain.CellKey `json:"cleared,omitempty"`
}

// PoolNotifier fans committed updates out to live viewers.
type PoolNotifier interface {
	Publish(ctx context.Context, update PoolUpdate) error
}
