package app

import (
	"context"
	"fmt"

	"squarespool/internal/domain"
	"squarespool/internal/ports"
)

// DrawAxis returns a random permutation of 0..n-1 from the allocator's source.
func (a *Allocator) DrawAxis(n int) domain.Axis {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.RandomAxis(a.rng, n)
}

// RandomizeAxes draws the numbers for both edges of the board. Axes are drawn
// once; reset them first to draw again.
func (s *Service) RandomizeAxes(ctx context.Context, actorID, poolID string) (*domain.Pool, error) {
	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateAxes, func(p *domain.Pool) (domain.Changes, bool, error) {
		if p.TopAxis.Drawn() && p.LeftAxis.Drawn() {
			return nil, false, fmt.Errorf("%w: numbers are already drawn", ErrInvalidInput)
		}
		p.TopAxis = s.alloc.DrawAxis(p.GridCols)
		p.LeftAxis = s.alloc.DrawAxis(p.GridRows)
		return nil, true, nil
	})
	if err != nil {
		return nil, err
	}
	return c.pool, nil
}

// ResetAxes puts both axes back to the undrawn state.
func (s *Service) ResetAxes(ctx context.Context, actorID, poolID string) (*domain.Pool, error) {
	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateAxes, func(p *domain.Pool) (domain.Changes, bool, error) {
		top, left := domain.UnsetAxis(p.GridCols), domain.UnsetAxis(p.GridRows)
		changed := !sameAxis(p.TopAxis, top) || !sameAxis(p.LeftAxis, left)
		p.TopAxis, p.LeftAxis = top, left
		return nil, changed, nil
	})
	if err != nil {
		return nil, err
	}
	return c.pool, nil
}

func sameAxis(a, b domain.Axis) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UpdateScores merges the given quarters into the pool's scores. Quarters not
// present in scores keep their values.
func (s *Service) UpdateScores(ctx context.Context, actorID, poolID string, scores map[string]domain.ScorePair) (*domain.Pool, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no scores given", ErrInvalidInput)
	}
	clean := make(domain.Scores, len(scores))
	for tag, pair := range scores {
		q, ok := domain.ParseQuarter(tag)
		if !ok {
			return nil, fmt.Errorf("%w: unknown quarter %q", ErrInvalidInput, tag)
		}
		top, err := cleanScore(q, "top", pair.Top)
		if err != nil {
			return nil, err
		}
		left, err := cleanScore(q, "left", pair.Left)
		if err != nil {
			return nil, err
		}
		clean[q] = domain.ScorePair{Top: top, Left: left}
	}

	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateScores, func(p *domain.Pool) (domain.Changes, bool, error) {
		changed := false
		for q, pair := range clean {
			if p.Scores[q] != pair {
				p.Scores[q] = pair
				changed = true
			}
		}
		return nil, changed, nil
	})
	if err != nil {
		return nil, err
	}
	return c.pool, nil
}
