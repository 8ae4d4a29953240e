package domain

import "sort"

// Changes is a sparse set of square mutations. A nil owner deletes the square
// so it reads exactly like one that was never claimed.
type Changes map[CellKey]*Owner

// Set assigns owner to key.
func (c Changes) Set(key CellKey, owner Owner) {
	o := owner
	c[key] = &o
}

// Clear marks key for deletion.
func (c Changes) Clear(key CellKey) {
	c[key] = nil
}

// Merge copies other into c; entries in other win.
func (c Changes) Merge(other Changes) {
	for k, v := range other {
		c[k] = v
	}
}

// Assigned lists keys that receive an owner, in row-major order.
func (c Changes) Assigned() []CellKey {
	var keys []CellKey
	for k, v := range c {
		if v != nil {
			keys = append(keys, k)
		}
	}
	SortKeys(keys)
	return keys
}

// Cleared lists keys that are deleted, in row-major order.
func (c Changes) Cleared() []CellKey {
	var keys []CellKey
	for k, v := range c {
		if v == nil {
			keys = append(keys, k)
		}
	}
	SortKeys(keys)
	return keys
}

// SortKeys orders keys row-major. Malformed keys sort last, lexically.
func SortKeys(keys []CellKey) {
	sort.Slice(keys, func(i, j int) bool {
		ri, ci, oki := keys[i].Parse()
		rj, cj, okj := keys[j].Parse()
		switch {
		case oki && okj:
			if ri != rj {
				return ri < rj
			}
			return ci < cj
		case oki != okj:
			return oki
		default:
			return keys[i] < keys[j]
		}
	})
}
