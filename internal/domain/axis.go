package domain

import (
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// AxisUnset marks a line whose number has not been drawn yet. It is stored as "?".
const AxisUnset = -1

const axisUnsetLabel = "?"

// Axis holds the digits printed along the top or left edge of the grid.
type Axis []int

// UnsetAxis returns an axis of n undrawn entries.
func UnsetAxis(n int) Axis {
	a := make(Axis, n)
	for i := range a {
		a[i] = AxisUnset
	}
	return a
}

// RandomAxis returns a uniformly shuffled permutation of 0..n-1.
func RandomAxis(rng *rand.Rand, n int) Axis {
	a := make(Axis, n)
	for i := range a {
		a[i] = i
	}
	rng.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
	return a
}

// Drawn reports whether the axis is a complete permutation of 0..len-1.
func (a Axis) Drawn() bool {
	if len(a) == 0 {
		return false
	}
	seen := make([]bool, len(a))
	for _, v := range a {
		if v < 0 || v >= len(a) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// IndexOf returns the position of digit on the axis, or -1.
func (a Axis) IndexOf(digit int) int {
	if digit < 0 {
		return -1
	}
	for i, v := range a {
		if v == digit {
			return i
		}
	}
	return -1
}

// MarshalJSON writes undrawn entries as "?".
func (a Axis) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	out := make([]interface{}, len(a))
	for i, v := range a {
		if v == AxisUnset {
			out[i] = axisUnsetLabel
		} else {
			out[i] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts numbers, numeric strings and "?" entries.
// Anything unrecognised decodes as AxisUnset.
func (a *Axis) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*a = nil
		return nil
	}
	out := make(Axis, len(raw))
	for i, v := range raw {
		out[i] = axisValue(v)
	}
	*a = out
	return nil
}

func axisValue(v interface{}) int {
	switch t := v.(type) {
	case float64:
		if t < 0 || t != math.Trunc(t) {
			return AxisUnset
		}
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || n < 0 {
			return AxisUnset
		}
		return n
	default:
		return AxisUnset
	}
}
