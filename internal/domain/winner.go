package domain

import "strings"

// Coord is a grid position.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Key returns the cell key of the coordinate.
func (c Coord) Key() CellKey {
	return KeyOf(c.Row, c.Col)
}

// ResolveWinner maps a score pair onto the grid through the trailing digit of
// each score. The top score is looked up on the top axis (column), the left
// score on the left axis (row). ok is false before the axes are drawn, when no
// score was entered, or when a digit cannot be placed.
func ResolveWinner(topAxis, leftAxis Axis, scoreTop, scoreLeft string) (Coord, bool) {
	if !topAxis.Drawn() || !leftAxis.Drawn() {
		return Coord{}, false
	}
	scoreTop = strings.TrimSpace(scoreTop)
	scoreLeft = strings.TrimSpace(scoreLeft)
	if scoreTop == "" && scoreLeft == "" {
		return Coord{}, false
	}

	topDigit, ok := lastDigit(scoreTop)
	if !ok {
		return Coord{}, false
	}
	leftDigit, ok := lastDigit(scoreLeft)
	if !ok {
		return Coord{}, false
	}

	col := topAxis.IndexOf(topDigit)
	row := leftAxis.IndexOf(leftDigit)
	if col < 0 || row < 0 {
		return Coord{}, false
	}
	return Coord{Row: row, Col: col}, true
}

// lastDigit reads the final character of a score; an empty score counts as 0.
func lastDigit(score string) (int, bool) {
	if score == "" {
		return 0, true
	}
	ch := score[len(score)-1]
	if ch < '0' || ch > '9' {
		return 0, false
	}
	return int(ch - '0'), true
}

// Winner resolves the winning square for a quarter against the pool's axes.
func (p *Pool) Winner(q Quarter) (Coord, bool) {
	s, ok := p.Scores[q]
	if !ok {
		return Coord{}, false
	}
	return ResolveWinner(p.TopAxis, p.LeftAxis, s.Top, s.Left)
}
