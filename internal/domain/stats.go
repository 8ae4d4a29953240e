package domain

import (
	"sort"
	"strings"
)

// BoardStats summarises occupancy of a grid.
type BoardStats struct {
	Total     int  `json:"total"`
	Taken     int  `json:"taken"`
	Remaining int  `json:"remaining"`
	Full      bool `json:"full"`
}

// PlayerStat is one player's holding, read from the owner records of their squares.
type PlayerStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Email string `json:"email,omitempty"`
	Note  string `json:"note,omitempty"`
}

// TotalCells is the capacity of the grid.
func (p *Pool) TotalCells() int {
	return p.GridRows * p.GridCols
}

// Stats counts taken and remaining squares. Only in-bounds, non-empty cells count.
func (p *Pool) Stats() BoardStats {
	taken := 0
	for key, owner := range p.Cells {
		if !owner.Empty() && p.InBounds(key) {
			taken++
		}
	}
	total := p.TotalCells()
	remaining := total - taken
	if remaining < 0 {
		remaining = 0
	}
	return BoardStats{
		Total:     total,
		Taken:     taken,
		Remaining: remaining,
		Full:      remaining == 0,
	}
}

// FreeCells lists unclaimed squares in row-major order.
func (p *Pool) FreeCells() []CellKey {
	free := make([]CellKey, 0, p.TotalCells())
	for r := 0; r < p.GridRows; r++ {
		for c := 0; c < p.GridCols; c++ {
			key := KeyOf(r, c)
			if owner, ok := p.Cells[key]; ok && !owner.Empty() {
				continue
			}
			free = append(free, key)
		}
	}
	return free
}

// CellsOwnedBy lists, in row-major order, the squares whose owner name equals
// name after trimming. A blank name owns nothing.
func (p *Pool) CellsOwnedBy(name string) []CellKey {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	var keys []CellKey
	for r := 0; r < p.GridRows; r++ {
		for c := 0; c < p.GridCols; c++ {
			key := KeyOf(r, c)
			if owner, ok := p.Cells[key]; ok && !owner.Empty() && owner.Matches(name) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// PlayerStats groups squares by trimmed owner name, most squares first, ties by name.
// Email and note come from the first square scanned in row-major order that has them.
func (p *Pool) PlayerStats() []PlayerStat {
	byName := make(map[string]*PlayerStat)
	for r := 0; r < p.GridRows; r++ {
		for c := 0; c < p.GridCols; c++ {
			owner, ok := p.Cells[KeyOf(r, c)]
			if !ok || owner.Empty() {
				continue
			}
			name := strings.TrimSpace(owner.Name)
			st, seen := byName[name]
			if !seen {
				st = &PlayerStat{Name: name}
				byName[name] = st
			}
			st.Count++
			if st.Email == "" {
				st.Email = owner.Email
			}
			if st.Note == "" {
				st.Note = owner.Note
			}
		}
	}

	out := make([]PlayerStat, 0, len(byName))
	for _, st := range byName {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Player returns the holding of one player, or false if they own nothing.
func (p *Pool) Player(name string) (PlayerStat, bool) {
	keys := p.CellsOwnedBy(name)
	if len(keys) == 0 {
		return PlayerStat{}, false
	}
	st := PlayerStat{Name: strings.TrimSpace(name), Count: len(keys)}
	for _, k := range keys {
		owner := p.Cells[k]
		if st.Email == "" {
			st.Email = owner.Email
		}
		if st.Note == "" {
			st.Note = owner.Note
		}
	}
	return st, true
}
