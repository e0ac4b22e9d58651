package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/roles"
	"github.com/simonhull/norms/pkg/selector"
)

// PatternRequest asks for the conventions of one role. Feature narrows the
// references to paths fuzzily matching a keyword; Count overrides the
// configured reference count.
type PatternRequest struct {
	Root    string
	Role    string
	Feature string
	Count   int
}

// Pattern learns the conventions of a role and reports them with the
// references they were learned from. A role without references yields an
// all-unknown convention set and a note rather than an error.
func (e *Engine) Pattern(ctx context.Context, req PatternRequest) (report.Report, error) {
	key, err := e.classifier.ResolveKey(req.Role)
	if err != nil {
		return report.Report{}, &RequestError{Reason: err.Error()}
	}

	profile, err := e.detector().Detect(ctx, req.Root)
	if err != nil {
		return report.Report{}, err
	}

	inv, err := e.Inventory(ctx, profile)
	if err != nil {
		return report.Report{}, err
	}

	count := req.Count
	if count == 0 {
		count = e.cfg.References.Count
	}

	candidates := e.selector.Candidates(key, inv, nil)
	candidates = sameLanguage(candidates, dominantLanguage(candidates, profile.PrimaryLanguage))
	if req.Feature != "" {
		candidates = selector.FilterFeature(candidates, req.Feature)
	}

	rep := report.Report{Profile: profile, Results: []report.Result{}}
	refs, err := e.selector.SelectFrom(key, candidates, count)
	var insufficient *selector.InsufficientReferencesError
	if errors.As(err, &insufficient) {
		set := pattern.Aggregate(nil)
		set.Role = key
		rep = rep.WithConventions(set)
		rep.Notes = []string{fmt.Sprintf("%s: %s", key, noReferencesReason(insufficient, req.Feature))}
		return rep, nil
	}
	if err != nil {
		return report.Report{}, err
	}

	jobs := make([]extractJob, len(refs))
	for i, ref := range refs {
		jobs[i] = extractJob{index: i, path: ref.Path, key: key, lang: ref.Language}
	}
	results, err := e.extractAll(ctx, profile.Root, e.extractor(profile), jobs)
	if err != nil {
		return report.Report{}, err
	}

	var records []pattern.Record
	var notes []string
	for i, res := range results {
		if res.err != nil {
			notes = append(notes, fmt.Sprintf("%s: skipped, %v", jobs[i].path, res.err))
			continue
		}
		records = append(records, res.record)
	}

	set := pattern.Aggregate(records)
	set.Role = key
	rep = rep.WithConventions(set)
	rep.Notes = notes

	e.logger.Info("Pattern learned",
		logger.F("role", key.String()),
		logger.F("references", set.SampleSize))
	return rep, nil
}

func noReferencesReason(err *selector.InsufficientReferencesError, feature string) string {
	if feature != "" {
		return fmt.Sprintf("%s matching %q", err.Error(), feature)
	}
	return err.Error()
}

// ResolveRole validates a role name without running the pipeline
func (e *Engine) ResolveRole(name string) (roles.Key, error) {
	key, err := e.classifier.ResolveKey(name)
	if err != nil {
		return roles.Key{}, &RequestError{Reason: err.Error()}
	}
	return key, nil
}
