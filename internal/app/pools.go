package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"squarespool/internal/domain"
	"squarespool/internal/ports"
)

const (
	poolIDLength   = 6
	poolIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewPoolID returns a short upper-case join code drawn from crypto/rand.
func NewPoolID() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(poolIDAlphabet)))
	for i := 0; i < poolIDLength; i++ {
		n, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate pool id: %w", err)
		}
		b.WriteByte(poolIDAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizePoolID upper-cases a join code typed by a user.
func NormalizePoolID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

type CreatePoolRequest struct {
	Name     string `json:"name"`
	HostName string `json:"hostName"`
	TopTeam  string `json:"topTeam"`
	LeftTeam string `json:"leftTeam"`
	// Grid names a configured board shape. Cols and Rows override it when both are set.
	Grid           string  `json:"grid"`
	Cols           int     `json:"gridCols"`
	Rows           int     `json:"gridRows"`
	AssignmentMode string  `json:"assignmentMode"`
	PricePerSquare float64 `json:"pricePerSquare"`
	HostCut        string  `json:"hostCut"`
	IsPublic       bool    `json:"isPublic"`
}

// CreatePool stores a new empty pool administered by actorID.
func (s *Service) CreatePool(ctx context.Context, actorID string, req CreatePoolRequest) (*domain.Pool, error) {
	if actorID == "" {
		return nil, ErrNotAdmin
	}

	name, err := cleanText("name", req.Name, s.cfg.MaxNameLength, true)
	if err != nil {
		return nil, err
	}
	hostName, err := cleanText("host name", req.HostName, s.cfg.MaxNameLength, true)
	if err != nil {
		return nil, err
	}
	topTeam, err := cleanText("top team", req.TopTeam, s.cfg.MaxTeamLength, true)
	if err != nil {
		return nil, err
	}
	leftTeam, err := cleanText("left team", req.LeftTeam, s.cfg.MaxTeamLength, true)
	if err != nil {
		return nil, err
	}
	cols, rows, err := s.gridSize(req)
	if err != nil {
		return nil, err
	}
	mode, ok := domain.ParseAssignmentMode(req.AssignmentMode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown assignment mode %q", ErrInvalidInput, req.AssignmentMode)
	}
	price, err := cleanPrice(req.PricePerSquare)
	if err != nil {
		return nil, err
	}
	hostCut, err := cleanHostCut(req.HostCut)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.cfg.WriteRetries; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		pool := domain.NewPool(id, cols, rows)
		pool.Name = name
		pool.HostName = hostName
		pool.TopTeam = topTeam
		pool.LeftTeam = leftTeam
		pool.CreatedAt = s.now().UTC()
		pool.AdminID = actorID
		pool.PricePerSquare = price
		pool.HostCut = hostCut
		pool.IsPublic = req.IsPublic
		pool.AssignmentMode = mode

		_, err = s.store.Create(ctx, pool)
		if errors.Is(err, ports.ErrPoolExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		return pool, nil
	}
	return nil, ErrConflict
}

func (s *Service) gridSize(req CreatePoolRequest) (int, int, error) {
	if req.Cols != 0 || req.Rows != 0 {
		if req.Cols < 1 || req.Cols > domain.MaxGridSize || req.Rows < 1 || req.Rows > domain.MaxGridSize {
			return 0, 0, fmt.Errorf("%w: grid must be between 1x1 and %dx%d", ErrInvalidInput, domain.MaxGridSize, domain.MaxGridSize)
		}
		return req.Cols, req.Rows, nil
	}
	g, ok := s.cfg.Grid(req.Grid)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown grid %q", ErrInvalidInput, req.Grid)
	}
	return g.Cols, g.Rows, nil
}

// GetPool returns a pool the actor may view.
func (s *Service) GetPool(ctx context.Context, actorID, poolID, inviteToken string) (*domain.Pool, error) {
	pool, _, err := s.load(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(pool, actorID, inviteToken); err != nil {
		return nil, err
	}
	return pool, nil
}

// QuarterResult is the score and current winner of one quarter.
type QuarterResult struct {
	Quarter domain.Quarter   `json:"quarter"`
	Score   domain.ScorePair `json:"score"`
	Payout  int64            `json:"payout"`
	Winner  *Winner          `json:"winner,omitempty"`
}

// Winner is the square a quarter's score lands on.
type Winner struct {
	domain.Coord
	Key   domain.CellKey `json:"key"`
	Owner string         `json:"owner,omitempty"`
}

// Summary is the read model shown next to the board.
type Summary struct {
	PoolID   string              `json:"poolId"`
	Board    domain.BoardStats   `json:"board"`
	Players  []domain.PlayerStat `json:"players"`
	Quarters []QuarterResult     `json:"quarters"`
	Payouts  domain.Payouts      `json:"payouts"`
}

// Summarize computes stats, winners and payouts for a pool snapshot.
func (s *Service) Summarize(pool *domain.Pool) Summary {
	board := pool.Stats()

	weights := make(map[domain.Quarter]int, len(s.cfg.PayoutWeights))
	for q, w := range s.cfg.PayoutWeights {
		if quarter, ok := domain.ParseQuarter(q); ok {
			weights[quarter] = w
		}
	}
	// Stored host cuts are validated on write; an unreadable legacy value pays no cut.
	cut, _ := domain.ParseHostCut(pool.HostCut)
	payouts := domain.ComputePayouts(board.Taken, domain.DollarsToCents(pool.PricePerSquare), cut, weights)

	quarters := make([]QuarterResult, 0, len(domain.Quarters))
	for _, q := range domain.Quarters {
		res := QuarterResult{Quarter: q, Score: pool.Scores[q], Payout: payouts.ByQuarter[q]}
		if c, ok := pool.Winner(q); ok {
			w := &Winner{Coord: c, Key: c.Key()}
			if owner, taken := pool.Owner(c.Key()); taken {
				w.Owner = strings.TrimSpace(owner.Name)
			}
			res.Winner = w
		}
		quarters = append(quarters, res)
	}

	return Summary{
		PoolID:   pool.ID,
		Board:    board,
		Players:  pool.PlayerStats(),
		Quarters: quarters,
		Payouts:  payouts,
	}
}

// Summary returns the summary of a pool the actor may view.
func (s *Service) Summary(ctx context.Context, actorID, poolID, inviteToken string) (Summary, error) {
	pool, err := s.GetPool(ctx, actorID, poolID, inviteToken)
	if err != nil {
		return Summary{}, err
	}
	return s.Summarize(pool), nil
}

// Snapshot is a pool together with its summary, as pushed to live viewers.
type Snapshot struct {
	Pool    *domain.Pool `json:"pool"`
	Summary Summary      `json:"summary"`
}

// Snapshot reads the current pool without access checks. Callers must have
// authorised the viewer already.
func (s *Service) Snapshot(ctx context.Context, poolID string) (*Snapshot, error) {
	pool, _, err := s.load(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Pool: pool, Summary: s.Summarize(pool)}, nil
}

// CanView loads the pool and checks read access for actorID.
func (s *Service) CanView(ctx context.Context, actorID, poolID, inviteToken string) error {
	_, err := s.GetPool(ctx, actorID, poolID, inviteToken)
	return err
}

// PoolListing is the lobby entry for a pool.
type PoolListing struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	HostName       string                `json:"hostName"`
	TopTeam        string                `json:"topTeam"`
	LeftTeam       string                `json:"leftTeam"`
	IsPublic       bool                  `json:"isPublic"`
	IsAdmin        bool                  `json:"isAdmin"`
	AssignmentMode domain.AssignmentMode `json:"assignmentMode"`
	PricePerSquare float64               `json:"pricePerSquare"`
	CreatedAt      time.Time             `json:"createdAt"`
	Board          domain.BoardStats     `json:"board"`
}

// ListPools pages through pools visible to actorID: every public pool and the actor's own.
// A page may hold fewer than limit entries after filtering.
func (s *Service) ListPools(ctx context.Context, actorID string, limit int, cursor string) ([]PoolListing, string, error) {
	if limit <= 0 {
		limit = s.cfg.ListLimit
	}
	if limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}

	pools, next, err := s.store.List(ctx, limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list pools: %w", err)
	}

	out := make([]PoolListing, 0, len(pools))
	for _, p := range pools {
		isAdmin := actorID != "" && p.AdminID == actorID
		if !p.IsPublic && !isAdmin {
			continue
		}
		out = append(out, PoolListing{
			ID:             p.ID,
			Name:           p.Name,
			HostName:       p.HostName,
			TopTeam:        p.TopTeam,
			LeftTeam:       p.LeftTeam,
			IsPublic:       p.IsPublic,
			IsAdmin:        isAdmin,
			AssignmentMode: p.AssignmentMode,
			PricePerSquare: p.PricePerSquare,
			CreatedAt:      p.CreatedAt,
			Board:          p.Stats(),
		})
	}
	return out, next, nil
}

// SettingsUpdate carries the pool fields a host may edit. Nil fields are left unchanged.
type SettingsUpdate struct {
	Name           *string  `json:"name"`
	HostName       *string  `json:"hostName"`
	TopTeam        *string  `json:"topTeam"`
	LeftTeam       *string  `json:"leftTeam"`
	IsPublic       *bool    `json:"isPublic"`
	PricePerSquare *float64 `json:"pricePerSquare"`
	HostCut        *string  `json:"hostCut"`
	AssignmentMode *string  `json:"assignmentMode"`
}

// UpdateSettings applies host edits to pool metadata.
func (s *Service) UpdateSettings(ctx context.Context, actorID, poolID string, upd SettingsUpdate) (*domain.Pool, error) {
	c, err := s.mutate(ctx, actorID, poolID, ports.UpdateSettings, func(p *domain.Pool) (domain.Changes, bool, error) {
		before := *p
		if upd.Name != nil {
			v, err := cleanText("name", *upd.Name, s.cfg.MaxNameLength, true)
			if err != nil {
				return nil, false, err
			}
			p.Name = v
		}
		if upd.HostName != nil {
			v, err := cleanText("host name", *upd.HostName, s.cfg.MaxNameLength, true)
			if err != nil {
				return nil, false, err
			}
			p.HostName = v
		}
		if upd.TopTeam != nil {
			v, err := cleanText("top team", *upd.TopTeam, s.cfg.MaxTeamLength, true)
			if err != nil {
				return nil, false, err
			}
			p.TopTeam = v
		}
		if upd.LeftTeam != nil {
			v, err := cleanText("left team", *upd.LeftTeam, s.cfg.MaxTeamLength, true)
			if err != nil {
				return nil, false, err
			}
			p.LeftTeam = v
		}
		if upd.IsPublic != nil {
			p.IsPublic = *upd.IsPublic
		}
		if upd.PricePerSquare != nil {
			v, err := cleanPrice(*upd.PricePerSquare)
			if err != nil {
				return nil, false, err
			}
			p.PricePerSquare = v
		}
		if upd.HostCut != nil {
			v, err := cleanHostCut(*upd.HostCut)
			if err != nil {
				return nil, false, err
			}
			p.HostCut = v
		}
		if upd.AssignmentMode != nil {
			m, ok := domain.ParseAssignmentMode(*upd.AssignmentMode)
			if !ok {
				return nil, false, fmt.Errorf("%w: unknown assignment mode %q", ErrInvalidInput, *upd.AssignmentMode)
			}
			p.AssignmentMode = m
		}

		changed := before.Name != p.Name || before.HostName != p.HostName ||
			before.TopTeam != p.TopTeam || before.LeftTeam != p.LeftTeam ||
			before.IsPublic != p.IsPublic || before.PricePerSquare != p.PricePerSquare ||
			before.HostCut != p.HostCut || before.AssignmentMode != p.AssignmentMode
		return nil, changed, nil
	})
	if err != nil {
		return nil, err
	}
	return c.pool, nil
}

// Invite is a signed link token for a private pool.
type Invite struct {
	PoolID    string    `json:"poolId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueInvite lets the admin hand out read access to a pool.
func (s *Service) IssueInvite(ctx context.Context, actorID, poolID string) (Invite, error) {
	pool, _, err := s.load(ctx, poolID)
	if err != nil {
		return Invite{}, err
	}
	if actorID == "" || pool.AdminID != actorID {
		return Invite{}, ErrNotAdmin
	}
	token, expiresAt, err := s.invites.Issue(pool.ID, actorID)
	if err != nil {
		return Invite{}, err
	}
	return Invite{PoolID: pool.ID, Token: token, ExpiresAt: expiresAt}, nil
}
