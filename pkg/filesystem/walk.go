package filesystem

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreDirs are dependency, build and tooling directories that
// never hold project conventions
var DefaultIgnoreDirs = []string{
	"node_modules", "vendor", ".git", ".svn", ".hg",
	"dist", "build", "bin", "tmp", "temp", "target",
	"__pycache__", ".venv", "venv", ".tox", ".mypy_cache",
	".next", ".nuxt", "coverage",
	".idea", ".vscode", ".vs", ".norms",
}

// IgnoreFileName is the tool-specific ignore file read next to .gitignore
const IgnoreFileName = ".normsignore"

// WalkOptions configures directory traversal behavior
type WalkOptions struct {
	IgnoreDirs       []string // Directories to skip (default: DefaultIgnoreDirs)
	IgnorePatterns   []string // File patterns to skip (e.g., "*.min.js")
	IncludeHidden    bool     // Include hidden files/dirs (default: false)
	RespectGitignore bool     // Apply .gitignore and .normsignore rules found at the root
}

// Walk traverses a directory tree with configurable ignore patterns.
// The visitor function is called for each file and directory.
// Return filepath.SkipDir from visitor to skip a directory.
//
// Errors below the root are skipped; only a failure to read the root
// itself is returned.
func Walk(rootPath string, opts WalkOptions, visitor func(path string, info os.FileInfo) error) error {
	ignoreDirs := opts.IgnoreDirs
	if len(ignoreDirs) == 0 {
		ignoreDirs = DefaultIgnoreDirs
	}
	skip := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		skip[d] = true
	}

	var rules *ignore.GitIgnore
	if opts.RespectGitignore {
		rules = LoadIgnoreRules(rootPath)
	}

	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == rootPath {
			return visitor(path, info)
		}

		// Skip hidden files/directories unless explicitly included
		if !opts.IncludeHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() && skip[info.Name()] {
			return filepath.SkipDir
		}

		if rules != nil {
			rel := RelPath(rootPath, path)
			if info.IsDir() {
				rel += "/"
			}
			if rules.MatchesPath(rel) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if !info.IsDir() && len(opts.IgnorePatterns) > 0 {
			for _, pattern := range opts.IgnorePatterns {
				if matched, _ := filepath.Match(pattern, info.Name()); matched {
					return nil
				}
			}
		}

		return visitor(path, info)
	})
}

// WalkWithDefaults walks a directory tree with default ignore patterns.
func WalkWithDefaults(rootPath string, visitor func(path string, info os.FileInfo) error) error {
	return Walk(rootPath, WalkOptions{RespectGitignore: true}, visitor)
}

// FileEntry is a regular file found during a listing
type FileEntry struct {
	Path string // root-relative, slash separated
	Info os.FileInfo
}

// ListFiles returns every regular file under root, sorted by relative path.
func ListFiles(rootPath string, opts WalkOptions) ([]FileEntry, error) {
	var files []FileEntry
	err := Walk(rootPath, opts, func(path string, info os.FileInfo) error {
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, FileEntry{Path: RelPath(rootPath, path), Info: info})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LoadIgnoreRules compiles .gitignore and .normsignore at root. It returns
// nil when neither file exists.
func LoadIgnoreRules(rootPath string) *ignore.GitIgnore {
	var allRules []string
	for _, name := range []string{".gitignore", IgnoreFileName} {
		if lines, err := readIgnoreFile(filepath.Join(rootPath, name)); err == nil {
			allRules = append(allRules, lines...)
		}
	}
	if len(allRules) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(allRules...)
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// RelPath returns path relative to root in slash form. Paths outside root
// are returned cleaned but otherwise unchanged.
func RelPath(rootPath, path string) string {
	rel, err := filepath.Rel(rootPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(rel)
}
