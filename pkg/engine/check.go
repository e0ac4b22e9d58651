package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/simonhull/norms/pkg/extract"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/roles"
	"github.com/simonhull/norms/pkg/selector"
	"github.com/simonhull/norms/pkg/vcs"
)

// CheckRequest selects the files to check. Explicit Files win over the
// revision range; paths may be absolute or relative to Root.
type CheckRequest struct {
	Root  string
	Files []string
	Base  string
	Head  string
}

// group is the unit references are selected and aggregated for: a role
// within one language
type group struct {
	key  roles.Key
	lang string
}

func (g group) String() string {
	return g.key.String()
}

type candidate struct {
	path string
	lang string
	keys []roles.Key
}

// Check compares the requested files against the conventions of their
// roles. Only a failed detection, an unusable change source or a
// cancelled context return an error; every other failure becomes a note
// in the report.
func (e *Engine) Check(ctx context.Context, req CheckRequest) (report.Report, error) {
	profile, err := e.detector().Detect(ctx, req.Root)
	if err != nil {
		return report.Report{}, err
	}

	paths, err := e.changedFiles(ctx, profile, req)
	if err != nil {
		return report.Report{}, err
	}

	inv, err := e.Inventory(ctx, profile)
	if err != nil {
		return report.Report{}, err
	}
	index := indexByPath(inv)

	var entries []report.Entry
	var candidates []candidate
	for _, p := range paths {
		entry, err := e.lookup(profile, inv, index, p)
		if err != nil {
			entries = append(entries, report.Entry{Path: p, Notes: []string{fmt.Sprintf("unreadable: %v", err)}})
			continue
		}
		keys := entry.Ranked.Keys(e.cfg.Classifier.MinConfidence)
		if len(keys) == 0 {
			note := fmt.Sprintf("no role to compare against (classified as %s)", entry.Ranked.Top().Key)
			entries = append(entries, report.Entry{Path: p, Notes: []string{note}})
			continue
		}
		candidates = append(candidates, candidate{path: p, lang: entry.Language, keys: keys})
	}

	sets, missing, err := e.conventions(ctx, profile, inv, candidates, paths)
	if err != nil {
		return report.Report{}, err
	}

	records, err := e.candidateRecords(ctx, profile, candidates)
	if err != nil {
		return report.Report{}, err
	}

	for _, c := range candidates {
		for _, key := range c.keys {
			g := group{key: key, lang: c.lang}
			if reason, ok := missing[g]; ok {
				entries = append(entries, report.Entry{
					Path:  c.path,
					Role:  key,
					Notes: []string{fmt.Sprintf("%s: uncomparable, %s", key, reason)},
				})
				continue
			}

			res := records[recordKey{path: c.path, key: key}]
			if res.err != nil {
				note := fmt.Sprintf("%s: %v", key, res.err)
				if extract.IsUnparsable(res.err) {
					note = fmt.Sprintf("%s: uncomparable, %v", key, res.err)
				}
				entries = append(entries, report.Entry{Path: c.path, Role: key, Notes: []string{note}})
				continue
			}

			set := sets[g]
			entries = append(entries, report.Entry{
				Path:       c.path,
				Role:       key,
				Outcome:    e.comparator.Evaluate(res.record, set),
				Convention: &set,
			})
		}
	}

	rep := report.Build(profile, entries)
	e.logger.Info("Check complete",
		logger.F("files", len(rep.Results)),
		logger.F("violations", rep.ViolationCount()))
	return rep, nil
}

// changedFiles resolves the candidate paths: explicit files, or the
// change source over the configured revisions. Only source files are kept.
func (e *Engine) changedFiles(ctx context.Context, profile project.Profile, req CheckRequest) ([]string, error) {
	var src vcs.ChangeSource
	switch {
	case len(req.Files) > 0:
		rel := make(vcs.Static, len(req.Files))
		for i, f := range req.Files {
			rel[i] = relativeTo(profile.Root, f)
		}
		src = rel
	case e.changes != nil:
		src = e.changes
	default:
		src = vcs.NewGit(profile.Root, e.logger)
	}

	base, head := req.Base, req.Head
	if base == "" {
		base = e.cfg.VCS.Base
	}
	if head == "" {
		head = e.cfg.VCS.Head
	}

	changed, err := src.ChangedFiles(ctx, base, head)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, p := range changed {
		if project.IsSource(p) {
			out = append(out, p)
		} else {
			e.logger.Debug("Skipping non-source file", logger.F("path", p))
		}
	}
	return out, nil
}

// conventions selects and aggregates references for every group the
// candidates need. Groups without references are returned in missing with
// the reason.
func (e *Engine) conventions(ctx context.Context, profile project.Profile, inv selector.Inventory, candidates []candidate, exclude []string) (map[group]pattern.ConventionSet, map[group]string, error) {
	var groups []group
	seen := make(map[group]bool)
	for _, c := range candidates {
		for _, key := range c.keys {
			g := group{key: key, lang: c.lang}
			if !seen[g] {
				seen[g] = true
				groups = append(groups, g)
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].lang != groups[j].lang {
			return groups[i].lang < groups[j].lang
		}
		return groups[i].key.String() < groups[j].key.String()
	})

	missing := make(map[group]string)
	var jobs []extractJob
	owner := make(map[int]group)
	for _, g := range groups {
		refs, err := e.selector.Select(g.key, sameLanguage(inv, g.lang), exclude, e.cfg.References.Count)
		var insufficient *selector.InsufficientReferencesError
		if errors.As(err, &insufficient) {
			missing[g] = err.Error()
			e.logger.Info("Role uncomparable", logger.F("role", g.String()), logger.F("language", g.lang))
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		for _, ref := range refs {
			owner[len(jobs)] = g
			jobs = append(jobs, extractJob{index: len(jobs), path: ref.Path, key: g.key, lang: g.lang})
		}
	}

	results, err := e.extractAll(ctx, profile.Root, e.extractor(profile), jobs)
	if err != nil {
		return nil, nil, err
	}

	// Aggregation waits for every reference of a group
	byGroup := make(map[group][]pattern.Record)
	for i, res := range results {
		if res.err != nil {
			if extract.IsUnparsable(res.err) {
				e.logger.Debug("Skipping unparsable reference", logger.F("path", jobs[i].path), logger.F("error", res.err))
			} else {
				e.logger.Warn("Skipping reference", logger.F("path", jobs[i].path), logger.F("error", res.err))
			}
			continue
		}
		g := owner[i]
		byGroup[g] = append(byGroup[g], res.record)
	}

	sets := make(map[group]pattern.ConventionSet, len(groups))
	for _, g := range groups {
		if _, ok := missing[g]; ok {
			continue
		}
		set := pattern.Aggregate(byGroup[g])
		set.Role = g.key
		sets[g] = set
	}
	return sets, missing, nil
}

type recordKey struct {
	path string
	key  roles.Key
}

// candidateRecords extracts every candidate once per role
func (e *Engine) candidateRecords(ctx context.Context, profile project.Profile, candidates []candidate) (map[recordKey]extractResult, error) {
	var jobs []extractJob
	for _, c := range candidates {
		for _, key := range c.keys {
			jobs = append(jobs, extractJob{index: len(jobs), path: c.path, key: key, lang: c.lang})
		}
	}

	results, err := e.extractAll(ctx, profile.Root, e.extractor(profile), jobs)
	if err != nil {
		return nil, err
	}

	out := make(map[recordKey]extractResult, len(jobs))
	for i, res := range results {
		out[recordKey{path: jobs[i].path, key: jobs[i].key}] = res
	}
	return out, nil
}

func (e *Engine) extractor(profile project.Profile) *extract.Extractor {
	return extract.New(extract.Options{
		InternalPrefixes: profile.InternalPrefixes,
		SyntaxTrees:      e.cfg.Extract.SyntaxTrees,
	}).WithLogger(e.logger)
}
