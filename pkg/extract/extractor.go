package extract

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/roles"
)

// Version identifies the extraction rules. Cached records from another
// version are discarded.
const Version = "1"

const sniffBytes = 8000

// Options configures an Extractor
type Options struct {
	// InternalPrefixes mark imports that belong to the project itself
	InternalPrefixes []string
	// SyntaxTrees replaces lexical signature extraction with tree-sitter
	// parses for the languages that have a grammar
	SyntaxTrees bool
}

// Extractor turns source files into pattern records. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	opts   Options
	logger logger.Logger
}

// New creates an Extractor
func New(opts Options) *Extractor {
	return &Extractor{opts: opts, logger: logger.Default()}
}

// WithLogger returns a copy of the Extractor using log
func (e *Extractor) WithLogger(log logger.Logger) *Extractor {
	return &Extractor{opts: e.opts, logger: log}
}

// Extract computes the pattern record of one file. Fields without evidence
// are left nil. Binary or undecodable content yields an
// UnparsablePatternError.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte, role roles.Key, lang string) (pattern.Record, error) {
	if err := ctx.Err(); err != nil {
		return pattern.Record{}, err
	}
	if reason := unreadable(content); reason != "" {
		return pattern.Record{}, &UnparsablePatternError{Path: path, Reason: reason}
	}

	p := ProfileFor(lang)
	lines := lex(string(content), p)
	rec := pattern.Record{
		Path:       path,
		Role:       role,
		Language:   lang,
		Naming:     extractNaming(lines, p),
		Imports:    extractImports(lines, p, e.opts.InternalPrefixes),
		Dependency: extractDependency(lines, p),
		Errors:     extractErrors(lines, p),
		Signatures: extractSignatures(lines, p),
	}

	if e.opts.SyntaxTrees && HasGrammar(lang) {
		sigs, err := treeSignatures(ctx, path, content, lang)
		if err != nil {
			e.logger.Debug("Syntax tree parse failed, keeping lexical signatures",
				logger.F("path", path), logger.F("error", err))
		} else {
			rec.Signatures = sigs
		}
	}

	e.logger.Debug("Extracted pattern",
		logger.F("path", path),
		logger.F("role", role.String()),
		logger.F("language", lang))
	return rec, nil
}

// unreadable explains why content cannot be treated as source, or returns ""
func unreadable(content []byte) string {
	head := content
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "binary content"
	}
	if !utf8.Valid(content) {
		invalid := 0
		for i := 0; i < len(head); {
			r, size := utf8.DecodeRune(head[i:])
			if r == utf8.RuneError && size == 1 {
				invalid++
			}
			i += size
		}
		if invalid*10 > len(head) {
			return "not valid UTF-8"
		}
	}
	return ""
}
