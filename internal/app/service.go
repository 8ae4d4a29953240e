package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"squarespool/internal/config"
	"squarespool/internal/domain"
	"squarespool/internal/ports"
)

// Service contains squares pool use-cases. Every mutation is a
// read, compute, conditional-write cycle against the store.
type Service struct {
	store    ports.PoolStore
	notifier ports.PoolNotifier
	alloc    *Allocator
	invites  *InviteService
	cfg      *config.PoolConfig
	now      func() time.Time
	newID    func() (string, error)
}

// NewService constructs a Service. notifier and invites may be nil; alloc and
// cfg fall back to a crypto-seeded allocator and the built-in defaults.
func NewService(store ports.PoolStore, notifier ports.PoolNotifier, alloc *Allocator, invites *InviteService, cfg *config.PoolConfig) *Service {
	if alloc == nil {
		alloc = NewAllocator(nil)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		alloc:    alloc,
		invites:  invites,
		cfg:      cfg,
		now:      time.Now,
		newID:    NewPoolID,
	}
}

// commit is the outcome of a mutation attempt.
type commit struct {
	pool    *domain.Pool
	version string
	changes domain.Changes
	saved   bool
}

// mutateFunc edits p in place. It returns the cell changes it applied, if any,
// and whether the document changed at all.
type mutateFunc func(p *domain.Pool) (domain.Changes, bool, error)

// mutate loads the pool, checks the actor is its admin and runs fn on a copy.
// A version conflict reruns fn against a fresh snapshot.
func (s *Service) mutate(ctx context.Context, actorID, poolID string, kind ports.UpdateKind, fn mutateFunc) (*commit, error) {
	for attempt := 0; attempt < s.cfg.WriteRetries; attempt++ {
		current, version, err := s.load(ctx, poolID)
		if err != nil {
			return nil, err
		}
		if actorID == "" || current.AdminID != actorID {
			return nil, ErrNotAdmin
		}

		next := current.Clone()
		changes, changed, err := fn(next)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &commit{pool: current, version: version, changes: changes}, nil
		}

		newVersion, err := s.store.Save(ctx, next, version)
		if errors.Is(err, ports.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save pool %s: %w", poolID, err)
		}

		c := &commit{pool: next, version: newVersion, changes: changes, saved: true}
		s.publish(ctx, kind, c)
		return c, nil
	}
	return nil, ErrConflict
}

func (s *Service) load(ctx context.Context, poolID string) (*domain.Pool, string, error) {
	if poolID == "" {
		return nil, "", fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}
	pool, version, err := s.store.Load(ctx, poolID)
	if errors.Is(err, ports.ErrPoolNotFound) {
		return nil, "", ErrPoolNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load pool %s: %w", poolID, err)
	}
	return pool, version, nil
}

// publish is best effort; a failed fan-out never fails a committed write.
func (s *Service) publish(ctx context.Context, kind ports.UpdateKind, c *commit) {
	if s.notifier == nil {
		return
	}
	update := ports.PoolUpdate{
		PoolID:  c.pool.ID,
		Kind:    kind,
		Version: c.version,
	}
	if len(c.changes) > 0 {
		update.Assigned = c.changes.Assigned()
		update.Cleared = c.changes.Cleared()
	}
	_ = s.notifier.Publish(ctx, update)
}

// canView reports whether actorID may read pool, optionally through an invite token.
func (s *Service) canView(pool *domain.Pool, actorID, inviteToken string) error {
	if pool.IsPublic || (actorID != "" && pool.AdminID == actorID) {
		return nil
	}
	if inviteToken == "" {
		return ErrForbidden
	}
	invitedPool, err := s.invites.Verify(inviteToken)
	if err != nil || invitedPool != pool.ID {
		return ErrForbidden
	}
	return nil
}

func requireMode(pool *domain.Pool, mode domain.AssignmentMode) error {
	if pool.AssignmentMode != mode {
		return fmt.Errorf("%w: pool uses %s assignment", ErrWrongMode, pool.AssignmentMode)
	}
	return nil
}
