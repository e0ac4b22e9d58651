package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/norms/pkg/filesystem"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/roles"
	"github.com/simonhull/norms/pkg/selector"
)

// Inventory lists and classifies every source file of the project. The
// result is sorted by path regardless of traversal order.
func (e *Engine) Inventory(ctx context.Context, profile project.Profile) (selector.Inventory, error) {
	files, err := filesystem.ListFiles(profile.Root, e.walkOptions())
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	var sources []filesystem.FileEntry
	for _, f := range files {
		if !project.IsSource(f.Path) {
			continue
		}
		if limit := e.cfg.Scan.MaxFileBytes; limit > 0 && f.Info.Size() > limit {
			e.logger.Debug("Skipping oversized file", logger.F("path", f.Path), logger.F("size", f.Info.Size()))
			continue
		}
		sources = append(sources, f)
	}

	inv := make(selector.Inventory, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, f := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			inv[i] = e.entry(profile, f.Path, f.Info)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("Inventory built", logger.F("files", len(inv)))
	return inv, nil
}

// entry classifies one file; content is only read when content rules are
// enabled
func (e *Engine) entry(profile project.Profile, rel string, info os.FileInfo) selector.Entry {
	return selector.Entry{
		Path:     rel,
		Language: languageOf(profile, rel),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Ranked:   e.classify(profile, rel),
	}
}

func (e *Engine) classify(profile project.Profile, rel string) roles.Ranked {
	var content []byte
	if e.cfg.Classifier.UseContent {
		data, err := os.ReadFile(filepath.Join(profile.Root, filepath.FromSlash(rel)))
		if err != nil {
			e.logger.Debug("Classifying by path only", logger.F("path", rel), logger.F("error", err))
		} else {
			content = data
		}
	}
	return e.classifier.ClassifyFile(rel, profile, content)
}

// lookup finds rel in the inventory, classifying it on the spot when the
// scan skipped it
func (e *Engine) lookup(profile project.Profile, inv selector.Inventory, index map[string]int, rel string) (selector.Entry, error) {
	if i, ok := index[rel]; ok {
		return inv[i], nil
	}
	info, err := os.Stat(filepath.Join(profile.Root, filepath.FromSlash(rel)))
	if err != nil {
		return selector.Entry{}, err
	}
	return e.entry(profile, rel, info), nil
}

func indexByPath(inv selector.Inventory) map[string]int {
	index := make(map[string]int, len(inv))
	for i, entry := range inv {
		index[entry.Path] = i
	}
	return index
}

// sameLanguage keeps the entries written in lang
func sameLanguage(inv selector.Inventory, lang string) selector.Inventory {
	var out selector.Inventory
	for _, entry := range inv {
		if entry.Language == lang {
			out = append(out, entry)
		}
	}
	return out
}

// dominantLanguage picks the language references are learned in: primary
// when any entry uses it, otherwise the most common language, ties broken
// by name
func dominantLanguage(inv selector.Inventory, primary string) string {
	counts := make(map[string]int)
	for _, entry := range inv {
		counts[entry.Language]++
	}
	if counts[primary] > 0 {
		return primary
	}
	best := ""
	for lang, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && lang < best) {
			best = lang
		}
	}
	return best
}
