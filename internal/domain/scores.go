package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Quarter tags a scoring period.
type Quarter string

const (
	QuarterQ1    Quarter = "q1"
	QuarterQ2    Quarter = "q2"
	QuarterQ3    Quarter = "q3"
	QuarterFinal Quarter = "final"
)

// Quarters lists scoring periods in game order.
var Quarters = []Quarter{QuarterQ1, QuarterQ2, QuarterQ3, QuarterFinal}

// ParseQuarter validates a quarter tag.
func ParseQuarter(s string) (Quarter, bool) {
	q := Quarter(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Quarters {
		if q == known {
			return q, true
		}
	}
	return "", false
}

// ScorePair is the score entered for a quarter. Top is the away team, Left the home team.
// Empty strings mean nothing was entered yet.
type ScorePair struct {
	Top  string `json:"top"`
	Left string `json:"left"`
}

// Blank reports whether neither score was entered.
func (s ScorePair) Blank() bool {
	return s.Top == "" && s.Left == ""
}

// UnmarshalJSON accepts scores stored as strings or numbers.
func (s *ScorePair) UnmarshalJSON(data []byte) error {
	var raw struct {
		Top  json.RawMessage `json:"top"`
		Left json.RawMessage `json:"left"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Top = scoreString(raw.Top)
	s.Left = scoreString(raw.Left)
	return nil
}

func scoreString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
	return ""
}

// Scores maps each quarter to its entered score.
type Scores map[Quarter]ScorePair

// EmptyScores returns blank scores for every quarter.
func EmptyScores() Scores {
	s := make(Scores, len(Quarters))
	for _, q := range Quarters {
		s[q] = ScorePair{}
	}
	return s
}
