package app

import (
	"context"
	"fmt"

	"squarespool/internal/domain"
	"squarespool/internal/ports"
)

// SquaresResult reports the squares a mutation touched and the board afterwards.
type SquaresResult struct {
	Pool      *domain.Pool     `json:"pool"`
	Assigned  []domain.CellKey `json:"assigned"`
	Cleared   []domain.CellKey `json:"cleared"`
	Remaining int              `json:"remaining"`
}

func newSquaresResult(c *commit) *SquaresResult {
	res := &SquaresResult{
		Pool:      c.pool,
		Assigned:  []domain.CellKey{},
		Cleared:   []domain.CellKey{},
		Remaining: c.pool.Stats().Remaining,
	}
	if len(c.changes) > 0 {
		res.Assigned = c.changes.Assigned()
		res.Cleared = c.changes.Cleared()
	}
	return res
}

// applyChanges is the mutateFunc tail shared by cell operations.
func applyChanges(p *domain.Pool, changes domain.Changes) (domain.Changes, bool, error) {
	if len(changes) == 0 {
		return changes, false, nil
	}
	p.Apply(changes)
	return changes, true, nil
}

// AssignSquares draws count random free squares for a player in an auto pool.
func (s *Service) AssignSquares(ctx context.Context, actorID, poolID, name string, count int, details OwnerDetails) (*SquaresResult, error) {
	name, err := s.cleanPlayerName(name)
	if err != nil {
		return nil, err
	}
	details, err = s.cleanDetails(details)
	if err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSquares, func(p *domain.Pool) (domain.Changes, bool, error) {
		if err := requireMode(p, domain.ModeAuto); err != nil {
			return nil, false, err
		}
		changes, err := s.alloc.Assign(p, name, count, details)
		if err != nil {
			return nil, false, err
		}
		return applyChanges(p, changes)
	})
	if err != nil {
		return nil, err
	}
	return newSquaresResult(c), nil
}

// AdjustPlayerRequest moves a player to a new square count. Nil Email or Note
// keep the details already on the player's squares.
type AdjustPlayerRequest struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	Reshuffle bool    `json:"reshuffle"`
	Email     *string `json:"email"`
	Note      *string `json:"note"`
}

// AdjustPlayer changes how many squares a player holds in an auto pool. The
// player's current count is read from the snapshot each attempt.
func (s *Service) AdjustPlayer(ctx context.Context, actorID, poolID string, req AdjustPlayerRequest) (*SquaresResult, error) {
	name, err := s.cleanPlayerName(req.Name)
	if err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSquares, func(p *domain.Pool) (domain.Changes, bool, error) {
		if err := requireMode(p, domain.ModeAuto); err != nil {
			return nil, false, err
		}
		current, _ := p.Player(name)
		details := OwnerDetails{Email: current.Email, Note: current.Note}
		if req.Email != nil {
			details.Email = *req.Email
		}
		if req.Note != nil {
			details.Note = *req.Note
		}
		details, err := s.cleanDetails(details)
		if err != nil {
			return nil, false, err
		}

		player := Player{Name: name, Count: current.Count, OwnerDetails: details}
		changes, err := s.alloc.AdjustCount(p, player, req.Count, req.Reshuffle)
		if err != nil {
			return nil, false, err
		}
		return applyChanges(p, changes)
	})
	if err != nil {
		return nil, err
	}
	return newSquaresResult(c), nil
}

// ReleasePlayer frees every square held by name. Releasing an unknown name is not an error.
func (s *Service) ReleasePlayer(ctx context.Context, actorID, poolID, name string) (*SquaresResult, error) {
	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSquares, func(p *domain.Pool) (domain.Changes, bool, error) {
		changes, _, err := s.alloc.Release(p, name)
		if err != nil {
			return nil, false, err
		}
		return applyChanges(p, changes)
	})
	if err != nil {
		return nil, err
	}
	return newSquaresResult(c), nil
}

// SetSquare edits one square of a manual pool. An empty owner name frees the square.
func (s *Service) SetSquare(ctx context.Context, actorID, poolID string, row, col int, owner domain.Owner) (*SquaresResult, error) {
	name, err := cleanText("player name", owner.Name, s.cfg.MaxNameLength, false)
	if err != nil {
		return nil, err
	}
	var details OwnerDetails
	if name != "" {
		details, err = s.cleanDetails(OwnerDetails{Email: owner.Email, Note: owner.Note})
		if err != nil {
			return nil, err
		}
	}
	key := domain.KeyOf(row, col)

	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSquares, func(p *domain.Pool) (domain.Changes, bool, error) {
		if err := requireMode(p, domain.ModeManual); err != nil {
			return nil, false, err
		}
		if row < 0 || col < 0 || !p.InBounds(key) {
			return nil, false, fmt.Errorf("%w: square %d-%d is outside the %dx%d grid", ErrInvalidInput, row, col, p.GridRows, p.GridCols)
		}

		changes := domain.Changes{}
		current, taken := p.Owner(key)
		if name == "" {
			if taken {
				changes.Clear(key)
			}
			return applyChanges(p, changes)
		}
		next := domain.Owner{Name: name, Email: details.Email, Note: details.Note}
		if !taken || current != next {
			changes.Set(key, next)
		}
		return applyChanges(p, changes)
	})
	if err != nil {
		return nil, err
	}
	return newSquaresResult(c), nil
}

// UpdatePlayerDetails writes email and note onto every square the player holds.
func (s *Service) UpdatePlayerDetails(ctx context.Context, actorID, poolID, name string, details OwnerDetails) (*SquaresResult, error) {
	name, err := s.cleanPlayerName(name)
	if err != nil {
		return nil, err
	}
	details, err = s.cleanDetails(details)
	if err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSquares, func(p *domain.Pool) (domain.Changes, bool, error) {
		if _, ok := p.Player(name); !ok {
			return nil, false, fmt.Errorf("%w: %s holds no squares", ErrInvalidInput, name)
		}
		changes, err := s.alloc.UpdateDetails(p, name, details)
		if err != nil {
			return nil, false, err
		}
		return applyChanges(p, changes)
	})
	if err != nil {
		return nil, err
	}
	return newSquaresResult(c), nil
}

// LedgerEntry is one buyer from a host's sales list.
type LedgerEntry struct {
	Name  string `json:"name"`
	Qty   int    `json:"qty"`
	Email string `json:"email"`
	Note  string `json:"note"`
}

// ImportLedger assigns squares for a whole buyer list at once. The total is
// checked against free squares before anything is drawn.
func (s *Service) ImportLedger(ctx context.Context, actorID, poolID string, entries []LedgerEntry) (*SquaresResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: ledger is empty", ErrInvalidInput)
	}
	clean := make([]LedgerEntry, 0, len(entries))
	total := 0
	for i, e := range entries {
		name, err := s.cleanPlayerName(e.Name)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", i+1, err)
		}
		if e.Qty <= 0 {
			return nil, fmt.Errorf("ledger entry %d: %w: qty must be positive", i+1, ErrInvalidInput)
		}
		details, err := s.cleanDetails(OwnerDetails{Email: e.Email, Note: e.Note})
		if err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", i+1, err)
		}
		total += e.Qty
		clean = append(clean, LedgerEntry{Name: name, Qty: e.Qty, Email: details.Email, Note: details.Note})
	}

	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSquares, func(p *domain.Pool) (domain.Changes, bool, error) {
		if err := requireMode(p, domain.ModeAuto); err != nil {
			return nil, false, err
		}
		if free := p.Stats().Remaining; total > free {
			return nil, false, fmt.Errorf("%w: ledger needs %d squares, %d free", ErrCapacityExceeded, total, free)
		}

		all := domain.Changes{}
		for _, e := range clean {
			changes, err := s.alloc.Assign(p, e.Name, e.Qty, OwnerDetails{Email: e.Email, Note: e.Note})
			if err != nil {
				return nil, false, fmt.Errorf("ledger entry %s: %w", e.Name, err)
			}
			p.Apply(changes)
			all.Merge(changes)
		}
		return all, len(all) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return newSquaresResult(c), nil
}
