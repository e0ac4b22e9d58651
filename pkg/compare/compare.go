// Package compare scores a candidate file against the conventions of its
// role.
package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/roles"
)

// Severity ranks violations; higher is more severe
type Severity int

const (
	Suggestion Severity = iota + 1
	Warning
	Critical
)

func (s Severity) String() string {
	switch s {
	case Suggestion:
		return "suggestion"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	}
	return "unknown"
}

// MarshalText renders the severity name in JSON and YAML
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "suggestion":
		*s = Suggestion
	case "warning":
		*s = Warning
	case "critical":
		*s = Critical
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Location points at the evidence for a violation
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
}

// Violation is one divergence of a candidate from an established convention
type Violation struct {
	Severity  Severity  `json:"severity"`
	RuleID    string    `json:"ruleId"`
	Role      roles.Key `json:"role"`
	Location  Location  `json:"location"`
	Field     string    `json:"field"`
	Expected  string    `json:"expected"`
	Found     string    `json:"found"`
	Support   float64   `json:"support"`
	Rationale string    `json:"rationale"`
}

// Rule is one row of the severity table
type Rule struct {
	Field     string
	RuleID    string
	Threshold float64 // minimum support before a divergence is reported
	Severity  Severity
	Subject   string // used in rationales, e.g. "naming style"
}

// Rules is the fixed severity table, in field name order
var Rules = []Rule{
	{Field: pattern.FieldDependency, RuleID: "dependency-pattern", Threshold: 0.6, Severity: Warning, Subject: "dependency pattern"},
	{Field: pattern.FieldErrorIdiom, RuleID: "error-handling-idiom", Threshold: 0.7, Severity: Warning, Subject: "error handling idiom"},
	{Field: pattern.FieldImports, RuleID: "import-style", Threshold: 0, Severity: Suggestion, Subject: "import style"},
	{Field: pattern.FieldNaming, RuleID: "naming-style", Threshold: 0.8, Severity: Warning, Subject: "naming style"},
}

// Outcome is the full result of evaluating one candidate against one role
type Outcome struct {
	Violations   []Violation
	Compliant    []string // fields matching the convention
	Uncomparable []string // fields that could not be judged, with the reason
}

// Comparator applies the severity table
type Comparator struct {
	logger logger.Logger
}

// NewComparator creates a Comparator
func NewComparator() *Comparator {
	return &Comparator{logger: logger.Default()}
}

// WithLogger returns a copy of the Comparator using log
func (c *Comparator) WithLogger(log logger.Logger) *Comparator {
	return &Comparator{logger: log}
}

// Compare returns the violations of candidate against set, ordered by
// severity descending, then field name.
func Compare(candidate pattern.Record, set pattern.ConventionSet) []Violation {
	return NewComparator().Compare(candidate, set)
}

// Compare returns only the violations of Evaluate
func (c *Comparator) Compare(candidate pattern.Record, set pattern.ConventionSet) []Violation {
	return c.Evaluate(candidate, set).Violations
}

// Evaluate judges every compared field. Fields without an established
// convention, or absent from the candidate, are uncomparable and never
// produce violations. Divergences below a rule's support threshold are
// tolerated.
func (c *Comparator) Evaluate(candidate pattern.Record, set pattern.ConventionSet) Outcome {
	var out Outcome
	role := set.Role

	for _, rule := range Rules {
		conv := set.Field(rule.Field)
		found := candidate.Value(rule.Field)
		label := fmt.Sprintf("%s (%s)", rule.Field, role)

		if reason := uncomparable(conv, found); reason != "" {
			c.logger.Debug("Field uncomparable",
				logger.F("path", candidate.Path),
				logger.F("role", role.String()),
				logger.F("field", rule.Field),
				logger.F("reason", reason))
			out.Uncomparable = append(out.Uncomparable, label+": "+reason)
			continue
		}

		if conv.Accepts(found) {
			out.Compliant = append(out.Compliant, label)
			continue
		}
		if conv.Support+1e-9 < rule.Threshold {
			c.logger.Debug("Divergence below threshold",
				logger.F("path", candidate.Path),
				logger.F("field", rule.Field),
				logger.F("support", conv.Support))
			out.Uncomparable = append(out.Uncomparable,
				fmt.Sprintf("%s: convention %s too weak to enforce (support %.2f < %.2f)", label, conv.Value, conv.Support, rule.Threshold))
			continue
		}

		out.Violations = append(out.Violations, Violation{
			Severity:  rule.Severity,
			RuleID:    rule.RuleID,
			Role:      role,
			Location:  Location{Path: candidate.Path, Line: candidate.Line(rule.Field)},
			Field:     rule.Field,
			Expected:  conv.Value,
			Found:     found,
			Support:   conv.Support,
			Rationale: rationale(rule, conv, role),
		})
	}

	Sort(out.Violations)
	return out
}

func uncomparable(conv pattern.Convention, found string) string {
	switch {
	case conv.Status == pattern.Competing:
		values := make([]string, len(conv.Alternatives))
		for i, alt := range conv.Alternatives {
			values[i] = alt.Value
		}
		return "competing conventions " + strings.Join(values, " / ")
	case !conv.Known():
		return fmt.Sprintf("unknown convention (%d observations)", conv.Observed)
	case found == "":
		return "no evidence in file"
	}
	return ""
}

func rationale(rule Rule, conv pattern.Convention, role roles.Key) string {
	agreeing := int(math.Round(conv.Support * float64(conv.Observed)))
	return fmt.Sprintf("%d of %d %s references use %s %s", agreeing, conv.Observed, role, rule.Subject, conv.Value)
}

// Sort orders violations by severity descending, then field name, then
// role, then location.
func Sort(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Role != b.Role {
			return a.Role.String() < b.Role.String()
		}
		if a.Location.Path != b.Location.Path {
			return a.Location.Path < b.Location.Path
		}
		return a.Location.Line < b.Location.Line
	})
}

// MaxSeverity returns the most severe level among vs, or 0
func MaxSeverity(vs []Violation) Severity {
	var top Severity
	for _, v := range vs {
		if v.Severity > top {
			top = v.Severity
		}
	}
	return top
}
