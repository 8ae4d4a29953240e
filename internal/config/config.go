package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// GridOption is a named board shape offered when creating a pool.
type GridOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Cols  int    `json:"cols"`
	Rows  int    `json:"rows"`
}

type PoolConfig struct {
	DefaultGrid string       `json:"default_grid"`
	GridOptions []GridOption `json:"grid_options"`
	// PayoutWeights splits the net pot across quarters, keyed by quarter tag.
	PayoutWeights map[string]int `json:"payout_weights"`

	MaxNameLength  int `json:"max_name_length"`
	MaxEmailLength int `json:"max_email_length"`
	MaxNoteLength  int `json:"max_note_length"`
	MaxTeamLength  int `json:"max_team_length"`

	// WriteRetries bounds how often a mutation is recomputed after a version conflict.
	WriteRetries   int `json:"write_retries"`
	InviteTTLHours int `json:"invite_ttl_hours"`
	ListLimit      int `json:"list_limit"`
	MaxListLimit   int `json:"max_list_limit"`

	LiveTickRate int `json:"live_tick_rate"`
	// LiveIdleTicks is how many ticks a live pool match survives with no presences.
	LiveIdleTicks int `json:"live_idle_ticks"`
}

var (
	cfg      *PoolConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the built-in configuration used when no file is loaded.
func Default() *PoolConfig {
	return &PoolConfig{
		DefaultGrid: "std",
		GridOptions: []GridOption{
			{ID: "std", Label: "Standard (100)", Cols: 10, Rows: 10},
			{ID: "half", Label: "Half (50)", Cols: 10, Rows: 5},
			{ID: "qtr", Label: "Quarter (25)", Cols: 5, Rows: 5},
		},
		PayoutWeights:  map[string]int{"q1": 1, "q2": 2, "q3": 1, "final": 4},
		MaxNameLength:  40,
		MaxEmailLength: 254,
		MaxNoteLength:  200,
		MaxTeamLength:  40,
		WriteRetries:   5,
		InviteTTLHours: 72,
		ListLimit:      20,
		MaxListLimit:   100,
		LiveTickRate:   1,
		LiveIdleTicks:  300,
	}
}

// LoadPoolConfig loads the pool configuration from the given path. Missing
// fields keep their built-in defaults.
func LoadPoolConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read pool config: %w", err)
			return
		}

		c := Default()
		if err := json.Unmarshal(data, c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal pool config: %w", err)
			return
		}
		if err := c.Validate(); err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetPoolConfig returns the loaded configuration, or the defaults if none was loaded.
func GetPoolConfig() *PoolConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations the pool service cannot run with.
func (c *PoolConfig) Validate() error {
	if len(c.GridOptions) == 0 {
		return fmt.Errorf("pool config: no grid options")
	}
	for _, g := range c.GridOptions {
		if g.ID == "" || g.Cols < 1 || g.Cols > 10 || g.Rows < 1 || g.Rows > 10 {
			return fmt.Errorf("pool config: invalid grid option %q (%dx%d)", g.ID, g.Cols, g.Rows)
		}
	}
	if _, ok := c.Grid(c.DefaultGrid); !ok {
		return fmt.Errorf("pool config: default grid %q is not an option", c.DefaultGrid)
	}
	if c.WriteRetries < 1 {
		return fmt.Errorf("pool config: write_retries must be positive")
	}
	if c.MaxNameLength < 1 || c.MaxEmailLength < 1 || c.MaxNoteLength < 1 || c.MaxTeamLength < 1 {
		return fmt.Errorf("pool config: field length limits must be positive")
	}
	return nil
}

// Grid looks up a grid option by ID, case-insensitively. An empty ID selects the default.
func (c *PoolConfig) Grid(id string) (GridOption, bool) {
	target := strings.ToLower(strings.TrimSpace(id))
	if target == "" {
		target = c.DefaultGrid
	}
	for _, g := range c.GridOptions {
		if strings.ToLower(g.ID) == target {
			return g, true
		}
	}
	return GridOption{}, false
}
