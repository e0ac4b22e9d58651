package roles

import (
	"fmt"
	"strings"
)

// Role is the architectural responsibility of a file
type Role string

const (
	Model      Role = "Model"
	Controller Role = "Controller"
	Service    Role = "Service"
	Repository Role = "Repository"
	Test       Role = "Test"
	Utility    Role = "Utility"
	Config     Role = "Config"
	Middleware Role = "Middleware"
	Security   Role = "Security"
	Component  Role = "Component"
	Other      Role = "Other"
)

// All lists every role in tie-break order
var All = []Role{
	Model, Controller, Service, Repository, Test, Utility,
	Config, Middleware, Security, Component, Other,
}

// ParseRole matches a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	for _, r := range All {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

func (r Role) rank() int {
	for i, role := range All {
		if role == r {
			return i
		}
	}
	return len(All)
}

// Key identifies a role together with its optional ecosystem sub-tag,
// e.g. Security/Voter or Model/DoctrineEntity. References are grouped
// by Key.
type Key struct {
	Role Role   `json:"role"`
	Tag  string `json:"tag,omitempty"`
}

// String renders the key as Role or Role/Tag
func (k Key) String() string {
	if k.Tag == "" {
		return string(k.Role)
	}
	return string(k.Role) + "/" + k.Tag
}

// ParseKey parses "Role" or "Role/Tag". Tag-only names need the rule
// table and are resolved by Classifier.ResolveKey.
func ParseKey(s string) (Key, error) {
	roleName, tag, _ := strings.Cut(strings.TrimSpace(s), "/")
	role, ok := ParseRole(roleName)
	if !ok {
		return Key{}, fmt.Errorf("unknown role %q", roleName)
	}
	return Key{Role: role, Tag: strings.TrimSpace(tag)}, nil
}

// Match is one candidate role for a file
type Match struct {
	Key
	Confidence float64 `json:"confidence"`

	weight      float64
	specificity int
}

// Ranked is a classification result ordered by descending confidence.
// It is never empty.
type Ranked []Match

// Top returns the highest ranked match
func (r Ranked) Top() Match {
	if len(r) == 0 {
		return Match{Key: Key{Role: Other}, Confidence: 1}
	}
	return r[0]
}

// Keys returns the keys whose confidence reaches minConfidence, skipping
// Other. The top match is always considered regardless of threshold.
func (r Ranked) Keys(minConfidence float64) []Key {
	var keys []Key
	for i, m := range r {
		if m.Role == Other {
			continue
		}
		if i > 0 && m.Confidence < minConfidence {
			continue
		}
		keys = append(keys, m.Key)
	}
	return keys
}

// Has reports whether key is among Keys(minConfidence)
func (r Ranked) Has(key Key, minConfidence float64) bool {
	for _, k := range r.Keys(minConfidence) {
		if k == key {
			return true
		}
	}
	return false
}

// String renders the ranking compactly, e.g. "Security/Voter(0.83) Service(0.17)"
func (r Ranked) String() string {
	parts := make([]string, len(r))
	for i, m := range r {
		parts[i] = fmt.Sprintf("%s(%.2f)", m.Key, m.Confidence)
	}
	return strings.Join(parts, " ")
}
