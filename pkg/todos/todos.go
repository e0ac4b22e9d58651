// Package todos finds scoped inline TODO comments, written as
// TODO(scope): description in any common comment syntax.
package todos

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/norms/pkg/filesystem"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/project"
)

// Extensions are the file types searched for TODOs
var Extensions = []string{
	".py", ".ts", ".tsx", ".js", ".jsx", ".go", ".rs",
	".php", ".vue", ".rb", ".java", ".kt", ".swift", ".c", ".cpp", ".h",
	".css", ".scss", ".sass", ".less", ".html", ".htm", ".twig",
}

// todoRe matches TODO(scope): text after #, //, /* or <!--, dropping a
// closing */ or --> at the end of the line
var todoRe = regexp.MustCompile(`(?:#|//|/\*|<!--)\s*TODO\(([^)]+)\):\s*(.+?)(?:\s*(?:-->|\*/))?$`)

const maxLineBytes = 1024 * 1024

// Item is one TODO comment
type Item struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Scope string `json:"scope"`
	Text  string `json:"text"`
}

// Group holds the TODOs sharing a scope, in path and line order
type Group struct {
	Scope string `json:"scope"`
	Items []Item `json:"items"`
}

// Result is the outcome of a scan. Filter is the scope the scan was
// restricted to, if any.
type Result struct {
	Filter string  `json:"filter,omitempty"`
	Total  int     `json:"total"`
	Groups []Group `json:"groups"`
}

// Scanner searches a repository for TODO comments
type Scanner struct {
	walkOpts filesystem.WalkOptions
	workers  int
	logger   logger.Logger
}

// NewScanner creates a scanner traversing with opts and reading up to
// workers files at once
func NewScanner(opts filesystem.WalkOptions, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{walkOpts: opts, workers: workers, logger: logger.Default()}
}

// WithLogger sets a custom logger for the scanner
func (s *Scanner) WithLogger(l logger.Logger) *Scanner {
	s.logger = l
	return s
}

// Scan lists the TODOs under root. A non-empty scope keeps only TODOs of
// that scope. Unreadable files are skipped.
func (s *Scanner) Scan(ctx context.Context, root, scope string) (Result, error) {
	abs, err := project.CheckRoot(root)
	if err != nil {
		return Result{}, err
	}

	files, err := filesystem.ListFiles(abs, s.walkOpts)
	if err != nil {
		return Result{}, fmt.Errorf("listing files: %w", err)
	}

	var candidates []string
	for _, f := range files {
		if Searched(f.Path) {
			candidates = append(candidates, f.Path)
		}
	}

	found := make([][]Item, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, rel := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items, err := scanFile(abs, rel)
			if err != nil {
				s.logger.Debug("Skipping unreadable file", logger.F("path", rel), logger.F("error", err))
				return nil
			}
			found[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	byScope := make(map[string][]Item)
	res := Result{Filter: scope, Groups: []Group{}}
	for _, items := range found {
		for _, it := range items {
			if scope != "" && it.Scope != scope {
				continue
			}
			byScope[it.Scope] = append(byScope[it.Scope], it)
			res.Total++
		}
	}
	for sc, items := range byScope {
		res.Groups = append(res.Groups, Group{Scope: sc, Items: items})
	}
	sort.Slice(res.Groups, func(i, j int) bool { return res.Groups[i].Scope < res.Groups[j].Scope })

	s.logger.Debug("TODO scan complete",
		logger.F("files", len(candidates)),
		logger.F("todos", res.Total))
	return res, nil
}

// Searched reports whether a file type is searched for TODOs
func Searched(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse returns the scope and text of a TODO comment on line
func Parse(line string) (scope, text string, ok bool) {
	m := todoRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

func scanFile(root, rel string) ([]Item, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []Item
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for n := 1; sc.Scan(); n++ {
		if scope, text, ok := Parse(sc.Text()); ok {
			items = append(items, Item{Path: rel, Line: n, Scope: scope, Text: text})
		}
	}
	return items, sc.Err()
}
