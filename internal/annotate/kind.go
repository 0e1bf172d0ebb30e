package annotate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a segment.
type Kind int

const (
	Plain Kind = iota
	Email
	Link
	Mention
	Hashtag
)

var kindNames = [...]string{
	Plain:   "plain",
	Email:   "email",
	Link:    "link",
	Mention: "mention",
	Hashtag: "hashtag",
}

// Kinds lists the entity kinds in tie-break priority order (highest first).
var Kinds = []Kind{Email, Link, Mention, Hashtag}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return Plain, fmt.Errorf("unknown segment kind: %q", s)
}

// Interactive reports whether the read-only display lets the user activate the kind.
func (k Kind) Interactive() bool {
	return k != Plain
}

// Openable reports whether the kind resolves to something outside the app (a URL or an address).
func (k Kind) Openable() bool {
	return k == Email || k == Link
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}
