package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultGridSize is used for both dimensions when a document does not carry them.
	DefaultGridSize = 10
	// MaxGridSize is bounded by the ten digits a trailing score digit can take.
	MaxGridSize = 10
)

// AssignmentMode controls how squares are claimed in a pool.
type AssignmentMode string

const (
	// ModeManual lets the host edit individual squares.
	ModeManual AssignmentMode = "manual"
	// ModeAuto routes every claim through the allocator.
	ModeAuto AssignmentMode = "auto"
)

// ParseAssignmentMode maps a stored or requested mode, defaulting to manual.
func ParseAssignmentMode(s string) (AssignmentMode, bool) {
	switch AssignmentMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual, "":
		return ModeManual, true
	case ModeAuto:
		return ModeAuto, true
	default:
		return ModeManual, false
	}
}

// CellKey addresses a square as "{row}-{col}".
type CellKey string

// KeyOf builds the key for a row/column pair.
func KeyOf(row, col int) CellKey {
	return CellKey(strconv.Itoa(row) + "-" + strconv.Itoa(col))
}

// Parse splits a key into its row and column. ok is false for malformed keys.
func (k CellKey) Parse() (row, col int, ok bool) {
	r, c, found := strings.Cut(string(k), "-")
	if !found || r == "" || c == "" {
		return 0, 0, false
	}
	row, errR := strconv.Atoi(r)
	col, errC := strconv.Atoi(c)
	if errR != nil || errC != nil || row < 0 || col < 0 {
		return 0, 0, false
	}
	// Reject non-canonical forms such as "01-2" or "+1-2".
	if KeyOf(row, col) != k {
		return 0, 0, false
	}
	return row, col, true
}

// Pool is one squares contest: the grid document shared by host and players.
type Pool struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	HostName       string            `json:"hostName"`
	TopTeam        string            `json:"topTeam"`
	LeftTeam       string            `json:"leftTeam"`
	CreatedAt      time.Time         `json:"createdAt"`
	AdminID        string            `json:"adminId"`
	PricePerSquare float64           `json:"pricePerSquare"`
	HostCut        string            `json:"hostCut"`
	IsPublic       bool              `json:"isPublic"`
	GridCols       int               `json:"gridCols"`
	GridRows       int               `json:"gridRows"`
	AssignmentMode AssignmentMode    `json:"assignmentMode"`
	TopAxis        Axis              `json:"topAxis"`
	LeftAxis       Axis              `json:"leftAxis"`
	Scores         Scores            `json:"scores"`
	Cells          map[CellKey]Owner `json:"cells"`

	// UpdatedAt is maintained by the store, not persisted in the document.
	UpdatedAt time.Time `json:"-"`
}

// NewPool returns an empty pool with explicit dimensions, unset axes and blank scores.
// Non-positive dimensions fall back to DefaultGridSize.
func NewPool(id string, cols, rows int) *Pool {
	if cols <= 0 {
		cols = DefaultGridSize
	}
	if rows <= 0 {
		rows = DefaultGridSize
	}
	return &Pool{
		ID:             id,
		GridCols:       cols,
		GridRows:       rows,
		AssignmentMode: ModeManual,
		TopAxis:        UnsetAxis(cols),
		LeftAxis:       UnsetAxis(rows),
		Scores:         EmptyScores(),
		Cells:          make(map[CellKey]Owner),
	}
}

// InBounds reports whether the key addresses a square of this grid.
func (p *Pool) InBounds(key CellKey) bool {
	row, col, ok := key.Parse()
	return ok && row < p.GridRows && col < p.GridCols
}

// Owner returns the owner of a square, if any.
func (p *Pool) Owner(key CellKey) (Owner, bool) {
	o, ok := p.Cells[key]
	return o, ok
}

// Apply writes a mutation set into the pool. A nil owner removes the square.
func (p *Pool) Apply(changes Changes) {
	if len(changes) == 0 {
		return
	}
	if p.Cells == nil {
		p.Cells = make(map[CellKey]Owner, len(changes))
	}
	for key, owner := range changes {
		if owner == nil {
			delete(p.Cells, key)
			continue
		}
		p.Cells[key] = *owner
	}
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	cp := *p
	cp.TopAxis = append(Axis(nil), p.TopAxis...)
	cp.LeftAxis = append(Axis(nil), p.LeftAxis...)
	cp.Scores = make(Scores, len(p.Scores))
	for q, s := range p.Scores {
		cp.Scores[q] = s
	}
	cp.Cells = make(map[CellKey]Owner, len(p.Cells))
	for k, o := range p.Cells {
		cp.Cells[k] = o
	}
	return &cp
}

// UnmarshalJSON decodes a stored document. Besides the canonical "cells" map it
// accepts the legacy layout where squares are top-level "{row}-{col}" fields,
// then normalises the result so callers only ever see one shape.
func (p *Pool) UnmarshalJSON(data []byte) error {
	type poolAlias Pool
	var doc poolAlias
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode pool: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode pool fields: %w", err)
	}

	*p = Pool(doc)
	if p.Cells == nil {
		p.Cells = make(map[CellKey]Owner)
	}
	for name, raw := range fields {
		key := CellKey(name)
		if _, _, ok := key.Parse(); !ok {
			continue
		}
		if _, exists := p.Cells[key]; exists {
			continue
		}
		var owner Owner
		if err := json.Unmarshal(raw, &owner); err != nil {
			continue
		}
		p.Cells[key] = owner
	}

	p.normalize()
	return nil
}

func (p *Pool) normalize() {
	if p.GridCols <= 0 {
		p.GridCols = DefaultGridSize
	}
	if p.GridRows <= 0 {
		p.GridRows = DefaultGridSize
	}
	p.AssignmentMode, _ = ParseAssignmentMode(string(p.AssignmentMode))

	if len(p.TopAxis) != p.GridCols {
		p.TopAxis = UnsetAxis(p.GridCols)
	}
	if len(p.LeftAxis) != p.GridRows {
		p.LeftAxis = UnsetAxis(p.GridRows)
	}

	if p.Scores == nil {
		p.Scores = EmptyScores()
	}
	for _, q := range Quarters {
		if _, ok := p.Scores[q]; !ok {
			p.Scores[q] = ScorePair{}
		}
	}

	// Present-but-empty and out-of-grid entries read as free squares.
	for key, owner := range p.Cells {
		if owner.Empty() || !p.InBounds(key) {
			delete(p.Cells, key)
		}
	}
}
