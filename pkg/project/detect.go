package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/norms/pkg/filesystem"
	"github.com/simonhull/norms/pkg/logger"
)

// DefaultMonorepoDirs are the conventional directories holding workspace
// packages one level below the root
var DefaultMonorepoDirs = []string{"packages", "apps", "services"}

// Profile describes the project under analysis. It is built once per
// run and must be treated as read-only.
type Profile struct {
	Root             string        `json:"-"`
	PrimaryLanguage  string        `json:"primaryLanguage"`
	Languages        []string      `json:"languages"`
	MarkerFiles      []string      `json:"markerFiles"`
	MonorepoPackages []PackageRoot `json:"monorepoPackages"`
	LowConfidence    bool          `json:"lowConfidence"`
	InternalPrefixes []string      `json:"internalPrefixes,omitempty"`
}

// PackageRoot is a workspace package found below the root
type PackageRoot struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Marker   string `json:"marker"`
}

// HasLanguage reports whether lang was detected anywhere in the project
func (p Profile) HasLanguage(lang string) bool {
	for _, l := range p.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// LanguageFor returns the language whose rules apply to a file: its own
// language when the project contains it, otherwise the primary language.
func (p Profile) LanguageFor(relPath string) string {
	if lang := LanguageOf(relPath); lang != "" && p.HasLanguage(lang) {
		return lang
	}
	return p.PrimaryLanguage
}

// DetectionError reports a root that cannot be inspected at all
type DetectionError struct {
	Root string
	Err  error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("cannot detect project at %s: %v", e.Root, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Detector builds a Profile from marker files
type Detector struct {
	monorepoDirs []string
	walkOpts     filesystem.WalkOptions
	logger       logger.Logger
}

// NewDetector creates a detector scanning the given monorepo directories.
// A nil slice selects DefaultMonorepoDirs.
func NewDetector(monorepoDirs []string) *Detector {
	if monorepoDirs == nil {
		monorepoDirs = DefaultMonorepoDirs
	}
	return &Detector{
		monorepoDirs: monorepoDirs,
		walkOpts:     filesystem.WalkOptions{RespectGitignore: true},
		logger:       logger.Default(),
	}
}

// WithLogger sets a custom logger for the detector
func (d *Detector) WithLogger(l logger.Logger) *Detector {
	d.logger = l
	return d
}

// WithWalkOptions sets the traversal options used by the extension fallback
func (d *Detector) WithWalkOptions(opts filesystem.WalkOptions) *Detector {
	d.walkOpts = opts
	return d
}

// Detect inspects root with default settings
func Detect(root string) (Profile, error) {
	return NewDetector(nil).Detect(context.Background(), root)
}

// CheckRoot returns the absolute form of root, or a *DetectionError when
// root is not a readable directory
func CheckRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &DetectionError{Root: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &DetectionError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return "", &DetectionError{Root: root, Err: errors.New("not a directory")}
	}
	if _, err := os.ReadDir(abs); err != nil {
		return "", &DetectionError{Root: root, Err: err}
	}
	return abs, nil
}

// Detect inspects root and returns its profile. Only a missing or
// unreadable root is an error; anything else degrades to a low
// confidence profile.
func (d *Detector) Detect(ctx context.Context, root string) (Profile, error) {
	abs, err := CheckRoot(root)
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{Root: abs}

	rootMarkers := markersIn(abs, "")
	packages, err := d.scanMonorepoDirs(ctx, abs)
	if err != nil {
		return Profile{}, err
	}
	packages = d.addWorkspaceMembers(abs, rootMarkers, packages)

	langSeen := make(map[string]bool)
	addLang := func(l string) {
		if !langSeen[l] {
			langSeen[l] = true
			profile.Languages = append(profile.Languages, l)
		}
	}

	for _, m := range rootMarkers {
		profile.MarkerFiles = append(profile.MarkerFiles, m.File)
	}
	for _, pkg := range packages {
		profile.MarkerFiles = append(profile.MarkerFiles, path.Join(pkg.Path, pkg.Marker))
	}
	sort.Strings(profile.MarkerFiles)
	profile.MonorepoPackages = packages

	switch {
	case len(rootMarkers) > 0:
		profile.PrimaryLanguage = rootMarkers[0].Language
	case len(packages) > 0:
		best := packages[0]
		for _, pkg := range packages[1:] {
			if markerRank(pkg.Marker) < markerRank(best.Marker) {
				best = pkg
			}
		}
		profile.PrimaryLanguage = best.Language
	}

	if profile.PrimaryLanguage != "" {
		for _, m := range rootMarkers {
			addLang(m.Language)
		}
		pkgLangs := make([]PackageRoot, len(packages))
		copy(pkgLangs, packages)
		sort.SliceStable(pkgLangs, func(i, j int) bool {
			return markerRank(pkgLangs[i].Marker) < markerRank(pkgLangs[j].Marker)
		})
		for _, pkg := range pkgLangs {
			addLang(pkg.Language)
		}
		// TypeScript projects compile JavaScript sources too
		if langSeen[TypeScript] {
			addLang(JavaScript)
		}
	} else {
		counts, err := d.countExtensions(abs)
		if err != nil {
			d.logger.Warn("extension scan incomplete", logger.F("error", err))
		}
		profile.LowConfidence = true
		profile.PrimaryLanguage = Unknown
		for _, lang := range rankByCount(counts) {
			addLang(lang)
		}
		if len(profile.Languages) > 0 {
			profile.PrimaryLanguage = profile.Languages[0]
		}
	}

	profile.InternalPrefixes = d.internalPrefixes(abs, rootMarkers, packages)

	d.logger.Debug("project detected",
		logger.F("root", abs),
		logger.F("language", profile.PrimaryLanguage),
		logger.F("markers", len(profile.MarkerFiles)),
		logger.F("packages", len(profile.MonorepoPackages)),
		logger.F("lowConfidence", profile.LowConfidence))

	return profile, nil
}

// markersIn returns the markers present in dir, in priority order
func markersIn(root, rel string) []Marker {
	var found []Marker
	for _, m := range Markers {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel), m.File))
		if err == nil && !info.IsDir() {
			found = append(found, m)
		}
	}
	return found
}

// scanMonorepoDirs looks one level into each monorepo directory. Each
// directory is scanned concurrently into its own slot so the result
// order only depends on configuration and names.
func (d *Detector) scanMonorepoDirs(ctx context.Context, root string) ([]PackageRoot, error) {
	slots := make([][]PackageRoot, len(d.monorepoDirs))

	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range d.monorepoDirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := os.ReadDir(filepath.Join(root, dir))
			if err != nil {
				return nil // absent monorepo dirs are normal
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				rel := path.Join(dir, entry.Name())
				if markers := markersIn(root, rel); len(markers) > 0 {
					slots[i] = append(slots[i], PackageRoot{
						Path:     rel,
						Language: markers[0].Language,
						Marker:   markers[0].File,
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var packages []PackageRoot
	for _, slot := range slots {
		packages = append(packages, slot...)
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Path < packages[j].Path })
	return packages, nil
}

// addWorkspaceMembers adds packages declared by root manifests (go.work,
// package.json workspaces, Cargo workspace members) that live outside the
// conventional monorepo directories.
func (d *Detector) addWorkspaceMembers(root string, rootMarkers []Marker, packages []PackageRoot) []PackageRoot {
	known := make(map[string]bool, len(packages))
	for _, pkg := range packages {
		known[pkg.Path] = true
	}

	for _, marker := range rootMarkers {
		manifest, err := ReadManifest(filepath.Join(root, marker.File))
		if err != nil {
			d.logger.Warn("skipping unreadable manifest", logger.F("file", marker.File), logger.F("error", err))
			continue
		}
		for _, member := range manifest.Workspaces {
			matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(member)))
			if err != nil {
				continue
			}
			for _, match := range matches {
				rel := filesystem.RelPath(root, match)
				if rel == "." || known[rel] {
					continue
				}
				if markers := markersIn(root, rel); len(markers) > 0 {
					known[rel] = true
					packages = append(packages, PackageRoot{
						Path:     rel,
						Language: markers[0].Language,
						Marker:   markers[0].File,
					})
				}
			}
		}
	}

	sort.Slice(packages, func(i, j int) bool { return packages[i].Path < packages[j].Path })
	return packages
}

func (d *Detector) internalPrefixes(root string, rootMarkers []Marker, packages []PackageRoot) []string {
	seen := make(map[string]bool)
	var prefixes []string
	collect := func(file string) {
		manifest, err := ReadManifest(filepath.Join(root, filepath.FromSlash(file)))
		if err != nil {
			d.logger.Debug("manifest ignored", logger.F("file", file), logger.F("error", err))
			return
		}
		for _, p := range manifest.InternalPrefixes {
			if p != "" && !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
		}
	}

	for _, m := range rootMarkers {
		collect(m.File)
	}
	for _, pkg := range packages {
		collect(path.Join(pkg.Path, pkg.Marker))
	}
	sort.Strings(prefixes)
	return prefixes
}

func (d *Detector) countExtensions(root string) (map[string]int, error) {
	counts := make(map[string]int)
	err := filesystem.Walk(root, d.walkOpts, func(p string, info os.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		if lang := LanguageOf(p); lang != "" {
			counts[lang]++
		}
		return nil
	})
	return counts, err
}

// rankByCount orders languages by file count, breaking ties by the
// KnownLanguages order
func rankByCount(counts map[string]int) []string {
	langs := make([]string, 0, len(counts))
	for lang := range counts {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return languageRank(langs[i]) < languageRank(langs[j])
	})
	return langs
}
