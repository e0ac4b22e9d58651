// Package selector picks the reference files a role's conventions are
// learned from.
package selector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/roles"
)

const (
	// MinReferences and MaxReferences bound the requested reference count
	MinReferences = 3
	MaxReferences = 5

	// fenceFactor scales the interquartile range for Tukey fences
	fenceFactor = 1.5
	// minFenceSample is the smallest sample quartiles are computed for
	minFenceSample = 4
)

// Entry is one classified file of the repository
type Entry struct {
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Size     int64        `json:"size"`
	ModTime  time.Time    `json:"modTime"`
	Ranked   roles.Ranked `json:"roles"`
}

// Inventory is the classified file list of a repository, sorted by path
type Inventory []Entry

// Len and String let an Inventory be searched with sahilm/fuzzy
func (inv Inventory) Len() int { return len(inv) }

func (inv Inventory) String(i int) string { return inv[i].Path }

// InsufficientReferencesError reports a role with no usable reference files
type InsufficientReferencesError struct {
	Key roles.Key
}

func (e *InsufficientReferencesError) Error() string {
	return fmt.Sprintf("no reference files for role %s", e.Key)
}

// Selector chooses typical, recently maintained files of a role
type Selector struct {
	minBytes      int64
	minConfidence float64
	logger        logger.Logger
}

// NewSelector creates a Selector. Files below minBytes are treated as
// outliers; a file belongs to a role when the role reaches minConfidence
// in its ranking.
func NewSelector(minBytes int64, minConfidence float64) *Selector {
	return &Selector{
		minBytes:      minBytes,
		minConfidence: minConfidence,
		logger:        logger.Default(),
	}
}

// WithLogger returns a copy of the Selector using log
func (s *Selector) WithLogger(log logger.Logger) *Selector {
	return &Selector{minBytes: s.minBytes, minConfidence: s.minConfidence, logger: log}
}

// ClampCount bounds a requested reference count; zero or negative means
// the maximum.
func ClampCount(k int) int {
	switch {
	case k <= 0:
		return MaxReferences
	case k < MinReferences:
		return MinReferences
	case k > MaxReferences:
		return MaxReferences
	}
	return k
}

// Candidates returns the inventory entries holding key, minus excluded paths
func (s *Selector) Candidates(key roles.Key, inv Inventory, exclude []string) Inventory {
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		skip[p] = true
	}

	var out Inventory
	for _, e := range inv {
		if skip[e.Path] || !e.Ranked.Has(key, s.minConfidence) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Select returns up to k reference files for key. Typical files (inside
// the size fences and above the minimum size) come first, newest first,
// then by path. Excluded paths are never returned.
func (s *Selector) Select(key roles.Key, inv Inventory, exclude []string, k int) ([]Entry, error) {
	return s.SelectFrom(key, s.Candidates(key, inv, exclude), k)
}

// SelectFrom ranks an already filtered candidate list
func (s *Selector) SelectFrom(key roles.Key, candidates Inventory, k int) ([]Entry, error) {
	if len(candidates) == 0 {
		return nil, &InsufficientReferencesError{Key: key}
	}
	k = ClampCount(k)

	outlier := s.outliers(candidates)
	ranked := make([]Entry, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if outlier[a.Path] != outlier[b.Path] {
			return !outlier[a.Path]
		}
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Path < b.Path
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	s.logger.Debug("Selected references",
		logger.F("role", key.String()),
		logger.F("candidates", len(candidates)),
		logger.F("selected", len(ranked)))
	return ranked, nil
}

// outliers marks files outside the Tukey fences of the size distribution
// or below the minimum size
func (s *Selector) outliers(entries Inventory) map[string]bool {
	out := make(map[string]bool)
	for _, e := range entries {
		if e.Size < s.minBytes {
			out[e.Path] = true
		}
	}
	if len(entries) < minFenceSample {
		return out
	}

	sizes := make([]float64, len(entries))
	for i, e := range entries {
		sizes[i] = float64(e.Size)
	}
	sort.Float64s(sizes)
	q1, q3 := quantile(sizes, 0.25), quantile(sizes, 0.75)
	iqr := q3 - q1
	lo, hi := q1-fenceFactor*iqr, q3+fenceFactor*iqr

	for _, e := range entries {
		if size := float64(e.Size); size < lo || size > hi {
			out[e.Path] = true
		}
	}
	return out
}

// quantile interpolates linearly between the closest ranks of sorted
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// FilterFeature keeps the candidates whose path fuzzily matches keyword,
// best match first. An empty keyword returns the candidates unchanged.
func FilterFeature(candidates Inventory, keyword string) Inventory {
	if keyword == "" {
		return candidates
	}
	matches := fuzzy.FindFrom(keyword, candidates)
	out := make(Inventory, 0, len(matches))
	for _, m := range matches {
		out = append(out, candidates[m.Index])
	}
	return out
}
