package domain

import "testing"

func TestResolveWinner(t *testing.T) {
	top := Axis{7, 2, 9, 0, 1, 3, 4, 5, 6, 8}
	left := Axis{3, 1, 8, 0, 2, 4, 5, 6, 7, 9}

	tests := []struct {
		name      string
		top, left Axis
		scoreTop  string
		scoreLeft string
		want      Coord
		wantOK    bool
	}{
		{"trailing digits", top, left, "21", "38", Coord{Row: 2, Col: 4}, true},
		{"both empty", top, left, "", "", Coord{}, false},
		{"one empty counts as zero", top, left, "", "13", Coord{Row: 0, Col: 3}, true},
		{"unset top axis", UnsetAxis(10), left, "21", "38", Coord{}, false},
		{"unset left axis", top, UnsetAxis(10), "21", "38", Coord{}, false},
		{"non digit", top, left, "2a", "38", Coord{}, false},
		{"whitespace trimmed", top, left, " 21 ", "38", Coord{Row: 2, Col: 4}, true},
		{"digit missing from short axis", Axis{0, 1}, Axis{1, 0}, "5", "1", Coord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveWinner(tt.top, tt.left, tt.scoreTop, tt.scoreLeft)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPoolWinner(t *testing.T) {
	p := NewPool("WIN001", 10, 10)
	p.TopAxis = Axis{7, 2, 9, 0, 1, 3, 4, 5, 6, 8}
	p.LeftAxis = Axis{3, 1, 8, 0, 2, 4, 5, 6, 7, 9}
	p.Scores[QuarterQ2] = ScorePair{Top: "21", Left: "38"}

	c, ok := p.Winner(QuarterQ2)
	if !ok || c.Key() != "2-4" {
		t.Errorf("Winner(q2) = %v, %v", c, ok)
	}
	if _, ok := p.Winner(QuarterQ1); ok {
		t.Error("blank quarter should have no winner")
	}
}
