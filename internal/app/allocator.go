package app

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"squarespool/internal/domain"
)

// OwnerDetails are the optional contact fields stamped on every square a player owns.
type OwnerDetails struct {
	Email string `json:"email"`
	Note  string `json:"note"`
}

// Player is a named holder and the number of squares they currently own.
type Player struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	OwnerDetails
}

// Allocator computes square mutations for auto-assigned pools. It never
// mutates the pool it is given; callers apply the returned Changes.
type Allocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocator uses rng for shuffles, or a source seeded from crypto/rand when nil.
func NewAllocator(rng *rand.Rand) *Allocator {
	if rng == nil {
		rng = rand.New(rand.NewSource(cryptoSeed()))
	}
	return &Allocator{rng: rng}
}

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (a *Allocator) shuffle(keys []domain.CellKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
}

// Assign claims count free squares for name, chosen uniformly at random.
// Empty details are inherited from squares the player already owns; non-empty
// details are also written to those squares.
func (a *Allocator) Assign(pool *domain.Pool, name string, count int, details OwnerDetails) (domain.Changes, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidInput)
	}

	free := pool.FreeCells()
	if count > len(free) {
		return nil, fmt.Errorf("%w: requested %d, %d free", ErrCapacityExceeded, count, len(free))
	}

	if existing, ok := pool.Player(name); ok {
		if details.Email == "" {
			details.Email = existing.Email
		}
		if details.Note == "" {
			details.Note = existing.Note
		}
	}
	owner := domain.Owner{Name: name, Email: details.Email, Note: details.Note}

	changes := domain.Changes{}
	a.shuffle(free)
	for _, key := range free[:count] {
		changes.Set(key, owner)
	}
	propagate(pool, owner, changes)
	return changes, nil
}

// AdjustCount moves player from their current count to newCount.
//
// Without reshuffle only the difference is touched: new squares come from the
// free pool, removed squares are picked at random from the player's own.
// With reshuffle every square the player owns is returned to the pool and
// newCount squares are drawn from it again, so some may land where they were.
func (a *Allocator) AdjustCount(pool *domain.Pool, player Player, newCount int, reshuffle bool) (domain.Changes, error) {
	name := strings.TrimSpace(player.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if newCount <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidInput)
	}
	if player.Count < 0 {
		return nil, fmt.Errorf("%w: current count cannot be negative", ErrInvalidInput)
	}
	owner := domain.Owner{Name: name, Email: player.Email, Note: player.Note}

	if reshuffle {
		return a.reshuffle(pool, owner, newCount)
	}

	changes := domain.Changes{}
	delta := newCount - player.Count
	switch {
	case delta > 0:
		free := pool.FreeCells()
		if delta > len(free) {
			return nil, fmt.Errorf("%w: requested %d more, %d free", ErrCapacityExceeded, delta, len(free))
		}
		a.shuffle(free)
		for _, key := range free[:delta] {
			changes.Set(key, owner)
		}
	case delta < 0:
		owned := pool.CellsOwnedBy(name)
		remove := -delta
		if remove > len(owned) {
			remove = len(owned)
		}
		a.shuffle(owned)
		for _, key := range owned[:remove] {
			changes.Clear(key)
		}
	}

	propagate(pool, owner, changes)
	return changes, nil
}

func (a *Allocator) reshuffle(pool *domain.Pool, owner domain.Owner, newCount int) (domain.Changes, error) {
	owned := pool.CellsOwnedBy(owner.Name)
	candidates := append(owned[:len(owned):len(owned)], pool.FreeCells()...)
	if newCount > len(candidates) {
		return nil, fmt.Errorf("%w: requested %d, %d available", ErrCapacityExceeded, newCount, len(candidates))
	}

	changes := domain.Changes{}
	for _, key := range owned {
		changes.Clear(key)
	}
	a.shuffle(candidates)
	for _, key := range candidates[:newCount] {
		changes.Set(key, owner)
	}
	return changes, nil
}

// Release frees every square whose owner name equals name after trimming.
// Zero matches is an empty result, not an error.
func (a *Allocator) Release(pool *domain.Pool, name string) (domain.Changes, int, error) {
	if strings.TrimSpace(name) == "" {
		return nil, 0, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	changes := domain.Changes{}
	for _, key := range pool.CellsOwnedBy(name) {
		changes.Clear(key)
	}
	return changes, len(changes), nil
}

// UpdateDetails rewrites email and note on every square owned by name.
func (a *Allocator) UpdateDetails(pool *domain.Pool, name string, details OwnerDetails) (domain.Changes, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	changes := domain.Changes{}
	propagate(pool, domain.Owner{Name: name, Email: details.Email, Note: details.Note}, changes)
	return changes, nil
}

// propagate stamps owner on every square the player keeps after changes,
// skipping squares already touched by changes and squares that already match.
func propagate(pool *domain.Pool, owner domain.Owner, changes domain.Changes) {
	for _, key := range pool.CellsOwnedBy(owner.Name) {
		if _, touched := changes[key]; touched {
			continue
		}
		if pool.Cells[key] == owner {
			continue
		}
		changes.Set(key, owner)
	}
}
