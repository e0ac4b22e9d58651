package pattern

import (
	"fmt"

	"github.com/simonhull/norms/pkg/roles"
)

// NamingStyle is an identifier casing family
type NamingStyle string

const (
	CamelCase  NamingStyle = "camelCase"
	PascalCase NamingStyle = "PascalCase"
	SnakeCase  NamingStyle = "snake_case"
	KebabCase  NamingStyle = "kebab-case"
)

// DependencyPattern is how a file obtains its collaborators
type DependencyPattern string

const (
	ConstructorInjection DependencyPattern = "constructor-injection"
	Factory              DependencyPattern = "factory"
	StaticImport         DependencyPattern = "static-import"
)

// ErrorIdiom is the dominant error handling shape of a file
type ErrorIdiom string

const (
	ThrowBased    ErrorIdiom = "throw"
	ResultBased   ErrorIdiom = "result"
	CallbackBased ErrorIdiom = "callback"
)

// Naming summarises the casing of a file's top-level identifiers
type Naming struct {
	Style    NamingStyle `json:"style"`
	Fraction float64     `json:"fraction"`
	Sampled  int         `json:"sampled"`
	Line     int         `json:"line"` // first identifier in the dominant style
}

// ImportStyle summarises how a file lays out its imports
type ImportStyle struct {
	Sorted   bool `json:"sorted"`
	Grouped  bool `json:"grouped"` // internal and external imports never interleave
	Wildcard bool `json:"wildcard"`
	Blocks   int  `json:"blocks"`
	Count    int  `json:"count"`
	Line     int  `json:"line"`
}

// Signature is the comparable form of an import style; Blocks and Count
// describe the file but are not part of the convention.
func (s ImportStyle) Signature() string {
	sorted, grouped, wildcard := "unsorted", "interleaved", "explicit"
	if s.Sorted {
		sorted = "sorted"
	}
	if s.Grouped {
		grouped = "grouped"
	}
	if s.Wildcard {
		wildcard = "wildcard"
	}
	return fmt.Sprintf("%s, %s, %s", sorted, grouped, wildcard)
}

// Dependency records the dominant dependency acquisition pattern
type Dependency struct {
	Pattern     DependencyPattern `json:"pattern"`
	Occurrences int               `json:"occurrences"`
	Line        int               `json:"line"`
}

// ErrorHandling records the error idiom and the error types a file names
type ErrorHandling struct {
	Idiom ErrorIdiom `json:"idiom,omitempty"`
	Types []string   `json:"types,omitempty"`
	Line  int        `json:"line"`
}

// Signature describes one public-facing callable
type Signature struct {
	Name          string      `json:"name"`
	Line          int         `json:"line"`
	Arity         int         `json:"arity"`
	ParamCasing   NamingStyle `json:"paramCasing,omitempty"`
	HasReturnType bool        `json:"hasReturnType"`
}

// Record is the structural fingerprint of one file. Every field may be
// nil when the file offers no evidence for it.
type Record struct {
	Path       string         `json:"path"`
	Role       roles.Key      `json:"role"`
	Language   string         `json:"language"`
	Naming     *Naming        `json:"naming,omitempty"`
	Imports    *ImportStyle   `json:"imports,omitempty"`
	Dependency *Dependency    `json:"dependency,omitempty"`
	Errors     *ErrorHandling `json:"errors,omitempty"`
	Signatures []Signature    `json:"signatures,omitempty"`
}

// Field names used in conventions and violations
const (
	FieldNaming          = "namingStyle"
	FieldImports         = "importStyle"
	FieldDependency      = "dependencyPattern"
	FieldErrorIdiom      = "errorHandling"
	FieldParameterCasing = "parameterCasing"
	FieldReturnTypes     = "returnTypes"
)

// Value returns the comparable value of field, or "" when the record has
// no observation for it.
func (r Record) Value(field string) string {
	switch field {
	case FieldNaming:
		if r.Naming != nil {
			return string(r.Naming.Style)
		}
	case FieldImports:
		if r.Imports != nil {
			return r.Imports.Signature()
		}
	case FieldDependency:
		if r.Dependency != nil {
			return string(r.Dependency.Pattern)
		}
	case FieldErrorIdiom:
		if r.Errors != nil {
			return string(r.Errors.Idiom)
		}
	case FieldParameterCasing:
		return r.parameterCasing()
	case FieldReturnTypes:
		return r.returnTypes()
	}
	return ""
}

// Line returns the evidence line for field, or 0 when unknown
func (r Record) Line(field string) int {
	switch field {
	case FieldNaming:
		if r.Naming != nil {
			return r.Naming.Line
		}
	case FieldImports:
		if r.Imports != nil {
			return r.Imports.Line
		}
	case FieldDependency:
		if r.Dependency != nil {
			return r.Dependency.Line
		}
	case FieldErrorIdiom:
		if r.Errors != nil {
			return r.Errors.Line
		}
	case FieldParameterCasing, FieldReturnTypes:
		if len(r.Signatures) > 0 {
			return r.Signatures[0].Line
		}
	}
	return 0
}

// parameterCasing is the majority parameter casing across signatures
func (r Record) parameterCasing() string {
	counts := make(map[NamingStyle]int)
	var order []NamingStyle
	for _, s := range r.Signatures {
		if s.ParamCasing == "" {
			continue
		}
		if counts[s.ParamCasing] == 0 {
			order = append(order, s.ParamCasing)
		}
		counts[s.ParamCasing]++
	}
	best := NamingStyle("")
	for _, style := range order {
		if counts[style] > counts[best] {
			best = style
		}
	}
	return string(best)
}

// returnTypes reports whether most signatures declare a return type
func (r Record) returnTypes() string {
	if len(r.Signatures) == 0 {
		return ""
	}
	declared := 0
	for _, s := range r.Signatures {
		if s.HasReturnType {
			declared++
		}
	}
	if declared*2 >= len(r.Signatures) {
		return "declared"
	}
	return "omitted"
}
