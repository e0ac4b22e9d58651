package pattern

import (
	"sort"

	"github.com/simonhull/norms/pkg/roles"
)

// NearTieMargin is the support gap within which values are competing
const NearTieMargin = 0.1

// MinObservations is the fewest non-null observations that can establish
// a convention
const MinObservations = 2

// Status tells whether a field has an established convention
type Status string

const (
	Resolved  Status = "resolved"
	Competing Status = "competing"
	Unknown   Status = "unknown"
)

// Alternative is one value observed for a field with its support
type Alternative struct {
	Value   string  `json:"value"`
	Support float64 `json:"support"`
}

// Convention is the consensus of the references on one field
type Convention struct {
	Status       Status        `json:"status"`
	Value        string        `json:"value,omitempty"`
	Support      float64       `json:"support"`
	Observed     int           `json:"observed"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Known reports whether the field has a single dominant value
func (c Convention) Known() bool {
	return c.Status == Resolved
}

// Accepts reports whether v is the dominant value or one of the
// competing values
func (c Convention) Accepts(v string) bool {
	if v == "" {
		return false
	}
	if c.Value == v {
		return true
	}
	if c.Status == Competing {
		for _, alt := range c.Alternatives {
			if alt.Value == v {
				return true
			}
		}
	}
	return false
}

// VocabularyEntry is an error type name and the share of references using it
type VocabularyEntry struct {
	Name    string  `json:"name"`
	Support float64 `json:"support"`
}

// ConventionSet is the consensus pattern for one role
type ConventionSet struct {
	Role            roles.Key         `json:"role"`
	SampleSize      int               `json:"sampleSize"`
	References      []string          `json:"references"`
	Naming          Convention        `json:"namingStyle"`
	Imports         Convention        `json:"importStyle"`
	Dependency      Convention        `json:"dependencyPattern"`
	ErrorIdiom      Convention        `json:"errorHandling"`
	ErrorVocabulary []VocabularyEntry `json:"errorVocabulary,omitempty"`
	ParameterCasing Convention        `json:"parameterCasing"`
	ReturnTypes     Convention        `json:"returnTypes"`
}

// ComparedFields are the fields a candidate is scored on, in name order
var ComparedFields = []string{FieldDependency, FieldErrorIdiom, FieldImports, FieldNaming}

// Field returns the convention for a field name
func (s ConventionSet) Field(name string) Convention {
	switch name {
	case FieldNaming:
		return s.Naming
	case FieldImports:
		return s.Imports
	case FieldDependency:
		return s.Dependency
	case FieldErrorIdiom:
		return s.ErrorIdiom
	case FieldParameterCasing:
		return s.ParameterCasing
	case FieldReturnTypes:
		return s.ReturnTypes
	}
	return Convention{Status: Unknown}
}

// Aggregate reduces reference records to their consensus. The result only
// depends on the multiset of records, never on their order.
func Aggregate(records []Record) ConventionSet {
	set := ConventionSet{SampleSize: len(records)}
	if len(records) > 0 {
		set.Role = records[0].Role
	}

	set.References = make([]string, 0, len(records))
	for _, r := range records {
		set.References = append(set.References, r.Path)
	}
	sort.Strings(set.References)

	values := func(field string) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.Value(field))
		}
		return out
	}

	set.Naming = consensus(values(FieldNaming))
	set.Imports = consensus(values(FieldImports))
	set.Dependency = consensus(values(FieldDependency))
	set.ErrorIdiom = consensus(values(FieldErrorIdiom))
	set.ParameterCasing = consensus(values(FieldParameterCasing))
	set.ReturnTypes = consensus(values(FieldReturnTypes))
	set.ErrorVocabulary = vocabulary(records)
	return set
}

// consensus takes the mode of the non-empty values. Fewer than
// MinObservations yields Unknown; values within NearTieMargin of the top
// are kept as Competing.
func consensus(values []string) Convention {
	counts := make(map[string]int)
	n := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		n++
	}
	if n < MinObservations {
		return Convention{Status: Unknown, Observed: n}
	}

	distinct := make([]string, 0, len(counts))
	for v := range counts {
		distinct = append(distinct, v)
	}
	sort.Slice(distinct, func(i, j int) bool {
		if counts[distinct[i]] != counts[distinct[j]] {
			return counts[distinct[i]] > counts[distinct[j]]
		}
		return distinct[i] < distinct[j]
	})

	top := float64(counts[distinct[0]]) / float64(n)
	conv := Convention{
		Status:   Resolved,
		Value:    distinct[0],
		Support:  top,
		Observed: n,
	}

	for _, v := range distinct {
		support := float64(counts[v]) / float64(n)
		if top-support <= NearTieMargin+1e-9 {
			conv.Alternatives = append(conv.Alternatives, Alternative{Value: v, Support: support})
		}
	}
	if len(conv.Alternatives) > 1 {
		conv.Status = Competing
	} else {
		conv.Alternatives = nil
	}
	return conv
}

func vocabulary(records []Record) []VocabularyEntry {
	counts := make(map[string]int)
	withErrors := 0
	for _, r := range records {
		if r.Errors == nil {
			continue
		}
		withErrors++
		seen := make(map[string]bool)
		for _, t := range r.Errors.Types {
			if !seen[t] {
				seen[t] = true
				counts[t]++
			}
		}
	}
	if withErrors == 0 {
		return nil
	}

	entries := make([]VocabularyEntry, 0, len(counts))
	for name, c := range counts {
		entries = append(entries, VocabularyEntry{Name: name, Support: float64(c) / float64(withErrors)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Support != entries[j].Support {
			return entries[i].Support > entries[j].Support
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}
