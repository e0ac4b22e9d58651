// Package vcs lists the files a change touches.
package vcs

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/simonhull/norms/pkg/exec"
	"github.com/simonhull/norms/pkg/logger"
)

// ChangeSource supplies the paths changed between two revisions, relative
// to the project root with forward slashes
type ChangeSource interface {
	ChangedFiles(ctx context.Context, base, head string) ([]string, error)
}

// Runner runs a command and returns its non-empty output lines
type Runner interface {
	Lines(ctx context.Context, name string, args ...string) ([]string, error)
}

// DefaultBase is compared against when no base revision is given
const DefaultBase = "HEAD"

// Git lists changes with the git CLI
type Git struct {
	runner Runner
	logger logger.Logger
}

// NewGit creates a git change source running in root
func NewGit(root string, log logger.Logger) *Git {
	if log == nil {
		log = logger.Default()
	}
	return &Git{
		runner: exec.NewExecutor(&exec.Options{Dir: root, Spinner: true, Logger: log}),
		logger: log,
	}
}

// NewGitWithRunner creates a git change source over an arbitrary runner
func NewGitWithRunner(r Runner, log logger.Logger) *Git {
	if log == nil {
		log = logger.Default()
	}
	return &Git{runner: r, logger: log}
}

// IsRepository reports whether the root is inside a git work tree
func (g *Git) IsRepository(ctx context.Context) bool {
	lines, err := g.runner.Lines(ctx, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil && len(lines) == 1 && lines[0] == "true"
}

// ChangedFiles lists files added or modified between base and head.
// With an empty head the working tree is compared against base and
// untracked files are included. A non-empty head compares against the
// merge base of the two revisions. Deleted files are never returned.
func (g *Git) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	if base == "" {
		base = DefaultBase
	}

	args := []string{"diff", "--name-only", "--relative", "--diff-filter=d"}
	if head == "" {
		args = append(args, base)
	} else {
		args = append(args, base+"..."+head)
	}

	changed, err := g.runner.Lines(ctx, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("listing changed files: %w", err)
	}

	if head == "" {
		untracked, err := g.runner.Lines(ctx, "git", "ls-files", "--others", "--exclude-standard")
		if err != nil {
			return nil, fmt.Errorf("listing untracked files: %w", err)
		}
		changed = append(changed, untracked...)
	}

	files := normalize(changed)
	g.logger.Debug("Changed files",
		logger.F("base", base),
		logger.F("head", head),
		logger.F("count", len(files)))
	return files, nil
}

// Static is a fixed change set, used for --files
type Static []string

// ChangedFiles returns the fixed paths, ignoring the revisions
func (s Static) ChangedFiles(context.Context, string, string) ([]string, error) {
	return normalize(s), nil
}

// normalize cleans, deduplicates and sorts paths
func normalize(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = path.Clean(filepath.ToSlash(unquote(p)))
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// unquote undoes git's C-style quoting of unusual paths
func unquote(p string) string {
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return p
	}
	inner := p[1 : len(p)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' || i+1 == len(inner) {
			b.WriteByte(c)
			continue
		}
		i++
		switch n := inner[i]; {
		case n >= '0' && n <= '7' && i+2 < len(inner):
			v := (int(n-'0') << 6) | (int(inner[i+1]-'0') << 3) | int(inner[i+2]-'0')
			b.WriteByte(byte(v))
			i += 2
		case n == 't':
			b.WriteByte('\t')
		case n == 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(n)
		}
	}
	return b.String()
}
