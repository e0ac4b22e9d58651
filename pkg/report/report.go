// Package report assembles and renders the output of a norms run.
package report

import (
	"sort"

	"github.com/simonhull/norms/pkg/compare"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/roles"
)

// Entry is the outcome of checking one path against one role
type Entry struct {
	Path       string
	Role       roles.Key
	Outcome    compare.Outcome
	Convention *pattern.ConventionSet
	Notes      []string
}

// Result is everything the report says about one path
type Result struct {
	Path       string              `json:"path"`
	Roles      []roles.Key         `json:"roles"`
	Violations []compare.Violation `json:"violations"`
	Compliant  []string            `json:"compliant"`
	Notes      []string            `json:"notes,omitempty"`
}

// Report is the terminal artifact of a run. It carries no timestamps, so
// identical inputs render to identical bytes.
type Report struct {
	Profile     project.Profile         `json:"profile"`
	Results     []Result                `json:"results"`
	Conventions []pattern.ConventionSet `json:"conventions,omitempty"`
	Notes       []string                `json:"notes,omitempty"`
}

// Build merges per-role entries into one result per path, ordered by path.
// Violations keep the comparator order; compliant fields and notes are
// sorted and deduplicated.
func Build(profile project.Profile, entries []Entry) Report {
	byPath := make(map[string]*Result)
	var order []string

	for _, e := range entries {
		res, ok := byPath[e.Path]
		if !ok {
			res = &Result{Path: e.Path}
			byPath[e.Path] = res
			order = append(order, e.Path)
		}
		if e.Role.Role != "" && !containsKey(res.Roles, e.Role) {
			res.Roles = append(res.Roles, e.Role)
		}
		res.Violations = append(res.Violations, e.Outcome.Violations...)
		res.Compliant = append(res.Compliant, e.Outcome.Compliant...)
		res.Notes = append(res.Notes, e.Outcome.Uncomparable...)
		res.Notes = append(res.Notes, e.Notes...)
	}

	sort.Strings(order)
	rep := Report{Profile: profile, Results: make([]Result, 0, len(order))}
	for _, path := range order {
		res := byPath[path]
		sort.Slice(res.Roles, func(i, j int) bool { return res.Roles[i].String() < res.Roles[j].String() })
		compare.Sort(res.Violations)
		if res.Violations == nil {
			res.Violations = []compare.Violation{}
		}
		res.Compliant = uniqueSorted(res.Compliant)
		if res.Compliant == nil {
			res.Compliant = []string{}
		}
		res.Notes = uniqueSorted(res.Notes)
		if res.Roles == nil {
			res.Roles = []roles.Key{}
		}
		rep.Results = append(rep.Results, *res)
	}
	return rep
}

// WithConventions attaches the learned conventions, ordered by role
func (r Report) WithConventions(sets ...pattern.ConventionSet) Report {
	out := append([]pattern.ConventionSet(nil), sets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Role.String() < out[j].Role.String() })
	r.Conventions = out
	return r
}

// MaxSeverity is the most severe violation in the report, or 0
func (r Report) MaxSeverity() compare.Severity {
	var top compare.Severity
	for _, res := range r.Results {
		if s := compare.MaxSeverity(res.Violations); s > top {
			top = s
		}
	}
	return top
}

// ViolationCount returns the number of violations across all results
func (r Report) ViolationCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Violations)
	}
	return n
}

// Failed reports whether any violation reaches Warning
func (r Report) Failed() bool {
	return r.MaxSeverity() >= compare.Warning
}

func containsKey(keys []roles.Key, k roles.Key) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
