package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Owner describes who claimed a square.
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Note  string `json:"note"`
}

// Empty reports whether the owner carries no usable name.
func (o Owner) Empty() bool {
	return strings.TrimSpace(o.Name) == ""
}

// Matches reports whether the owner's name equals name after trimming both sides.
// Comparison is case-sensitive.
func (o Owner) Matches(name string) bool {
	return strings.TrimSpace(o.Name) == strings.TrimSpace(name)
}

// UnmarshalJSON accepts both the object form and the legacy bare-name string.
func (o *Owner) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = Owner{}
		return nil
	}

	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*o = Owner{Name: name}
		return nil
	}

	type ownerAlias Owner
	var a ownerAlias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*o = Owner(a)
	return nil
}
