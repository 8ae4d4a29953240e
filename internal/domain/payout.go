package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidHostCut is returned for host cut strings that are neither "N%" nor a dollar amount.
var ErrInvalidHostCut = errors.New("invalid host cut")

// HostCut is the host's share of the pot: a percentage or a flat amount in cents.
type HostCut struct {
	Percent float64
	Flat    int64
}

// ParseHostCut reads "10%", "$50", "50" or "" (no cut).
func ParseHostCut(s string) (HostCut, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return HostCut{}, nil
	}
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil || v < 0 || v > 100 || math.IsNaN(v) {
			return HostCut{}, ErrInvalidHostCut
		}
		return HostCut{Percent: v}, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(s, "$")), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return HostCut{}, ErrInvalidHostCut
	}
	return HostCut{Flat: DollarsToCents(v)}, nil
}

// Amount returns the cut taken from pot, never more than the pot itself.
func (h HostCut) Amount(pot int64) int64 {
	var cut int64
	if h.Percent > 0 {
		cut = int64(math.Round(float64(pot) * h.Percent / 100))
	} else {
		cut = h.Flat
	}
	if cut > pot {
		cut = pot
	}
	if cut < 0 {
		cut = 0
	}
	return cut
}

// DollarsToCents converts a dollar amount to whole cents.
func DollarsToCents(d float64) int64 {
	return int64(math.Round(d * 100))
}

// Payouts is the money breakdown of a pool, in cents.
type Payouts struct {
	Pot       int64             `json:"pot"`
	HostCut   int64             `json:"hostCut"`
	Net       int64             `json:"net"`
	ByQuarter map[Quarter]int64 `json:"byQuarter"`
}

// ComputePayouts splits the net pot across quarters proportionally to weights.
// Rounding leftovers go to the last weighted quarter, normally the final.
// Quarters without a positive weight are paid nothing.
func ComputePayouts(taken int, priceCents int64, cut HostCut, weights map[Quarter]int) Payouts {
	pot := int64(taken) * priceCents
	if pot < 0 {
		pot = 0
	}
	hostCut := cut.Amount(pot)
	net := pot - hostCut

	out := Payouts{
		Pot:       pot,
		HostCut:   hostCut,
		Net:       net,
		ByQuarter: make(map[Quarter]int64, len(Quarters)),
	}

	var totalWeight int64
	for _, q := range Quarters {
		if w := weights[q]; w > 0 {
			totalWeight += int64(w)
		}
	}
	for _, q := range Quarters {
		out.ByQuarter[q] = 0
	}
	if totalWeight == 0 || net == 0 {
		return out
	}

	var paid int64
	var last Quarter
	for _, q := range Quarters {
		w := weights[q]
		if w <= 0 {
			continue
		}
		share := net * int64(w) / totalWeight
		out.ByQuarter[q] = share
		paid += share
		last = q
	}
	out.ByQuarter[last] += net - paid
	return out
}
