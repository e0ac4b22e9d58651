// Package engine runs the norms pipeline: detection, classification,
// reference selection, extraction, aggregation and comparison.
package engine

import (
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/simonhull/norms/pkg/cache"
	"github.com/simonhull/norms/pkg/compare"
	"github.com/simonhull/norms/pkg/config"
	"github.com/simonhull/norms/pkg/filesystem"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/roles"
	"github.com/simonhull/norms/pkg/selector"
	"github.com/simonhull/norms/pkg/vcs"
)

// RequestError is a request the engine cannot act on, such as an unknown
// role name
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return e.Reason
}

// Engine wires the pipeline stages together. An Engine holds no state
// between runs and may serve concurrent requests.
type Engine struct {
	cfg        *config.Config
	classifier *roles.Classifier
	selector   *selector.Selector
	comparator *compare.Comparator
	cache      *cache.Cache
	changes    vcs.ChangeSource
	logger     logger.Logger
}

// New builds an engine from configuration. Extra rule files named in the
// configuration are merged into the built-in classification table.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var extra []*roles.RuleTable
	for _, p := range cfg.Classifier.Rules {
		table, err := roles.LoadRuleFile(p)
		if err != nil {
			return nil, fmt.Errorf("loading rule file %s: %w", p, err)
		}
		extra = append(extra, table)
	}
	classifier, err := roles.NewClassifier(extra...)
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}

	log := logger.Default()
	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		selector:   selector.NewSelector(cfg.References.MinBytes, cfg.Classifier.MinConfidence).WithLogger(log),
		comparator: compare.NewComparator().WithLogger(log),
		logger:     log,
	}, nil
}

// WithLogger sets the logger used by the engine and its stages
func (e *Engine) WithLogger(log logger.Logger) *Engine {
	e.logger = log
	e.selector = e.selector.WithLogger(log)
	e.comparator = e.comparator.WithLogger(log)
	return e
}

// WithCache enables the pattern record cache
func (e *Engine) WithCache(c *cache.Cache) *Engine {
	e.cache = c
	return e
}

// WithChangeSource overrides the git change source used by Check
func (e *Engine) WithChangeSource(src vcs.ChangeSource) *Engine {
	e.changes = src
	return e
}

// Classifier exposes the role classifier, e.g. to resolve role names
func (e *Engine) Classifier() *roles.Classifier {
	return e.classifier
}

func (e *Engine) workers() int {
	if n := e.cfg.Extract.Workers; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (e *Engine) walkOptions() filesystem.WalkOptions {
	return filesystem.WalkOptions{
		IgnoreDirs:       e.cfg.Scan.IgnoreDirs,
		IgnorePatterns:   e.cfg.Scan.IgnorePatterns,
		RespectGitignore: e.cfg.Scan.RespectGitignore,
	}
}

func (e *Engine) detector() *project.Detector {
	return project.NewDetector(e.cfg.Scan.MonorepoDirs).
		WithLogger(e.logger).
		WithWalkOptions(e.walkOptions())
}

// languageOf picks the extraction language of a file: its own when the
// extension is known, otherwise the project's primary language
func languageOf(profile project.Profile, rel string) string {
	if lang := project.LanguageOf(rel); lang != "" {
		return lang
	}
	return profile.PrimaryLanguage
}

// relativeTo turns a user supplied path into a clean root-relative slash
// path
func relativeTo(root, p string) string {
	if filepath.IsAbs(p) {
		return filesystem.RelPath(root, p)
	}
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "./")
}
