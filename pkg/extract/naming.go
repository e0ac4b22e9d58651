package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/simonhull/norms/pkg/pattern"
)

var (
	pascalRe    = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	camelRe     = regexp.MustCompile(`^[a-z][a-z0-9]*(?:[A-Z][a-zA-Z0-9]*)+$`)
	snakeRe     = regexp.MustCompile(`^[a-z][a-z0-9]*(?:_[a-z0-9]+)+$`)
	kebabRe     = regexp.MustCompile(`^[a-z][a-z0-9]*(?:-[a-z0-9]+)+$`)
	screamingRe = regexp.MustCompile(`^[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)*$`)
	lowerWordRe = regexp.MustCompile(`^[a-z][a-z0-9]*$`)
)

// styleOrder breaks ties between equally common styles
var styleOrder = []pattern.NamingStyle{pattern.PascalCase, pattern.CamelCase, pattern.SnakeCase, pattern.KebabCase}

// ClassifyIdentifier returns the casing family of name, or "" when the name
// carries no casing signal (single lowercase words, constants, mixed forms).
// With foldExported a leading capital is read as a visibility marker.
func ClassifyIdentifier(name string, foldExported bool) pattern.NamingStyle {
	name = strings.TrimLeft(name, "_$#")
	if name == "" {
		return ""
	}
	if len(name) > 1 && screamingRe.MatchString(name) {
		return ""
	}
	if foldExported {
		r, size := utf8.DecodeRuneInString(name)
		name = string(unicode.ToLower(r)) + name[size:]
	}

	switch {
	case kebabRe.MatchString(name):
		return pattern.KebabCase
	case snakeRe.MatchString(name):
		return pattern.SnakeCase
	case lowerWordRe.MatchString(name):
		return ""
	case camelRe.MatchString(name):
		return pattern.CamelCase
	case pascalRe.MatchString(name):
		return pattern.PascalCase
	}
	return ""
}

type sample struct {
	style pattern.NamingStyle
	line  int
}

// extractNaming samples top-level declarations and reports the majority
// casing. Files without a classifiable identifier yield nil.
func extractNaming(lines []line, p *Profile) *pattern.Naming {
	var samples []sample
	for _, l := range lines {
		if l.blank() || !l.topLevel(p.Blocks) {
			continue
		}
		for _, decl := range p.Declarations {
			m := decl.FindStringSubmatch(l.Masked)
			if m == nil {
				continue
			}
			name := m[decl.SubexpIndex("name")]
			if style := ClassifyIdentifier(name, p.FoldExported); style != "" {
				samples = append(samples, sample{style: style, line: l.No})
			}
			break
		}
	}
	if len(samples) == 0 {
		return nil
	}

	counts := make(map[pattern.NamingStyle]int)
	first := make(map[pattern.NamingStyle]int)
	for _, s := range samples {
		if counts[s.style] == 0 {
			first[s.style] = s.line
		}
		counts[s.style]++
	}

	var best pattern.NamingStyle
	for _, style := range styleOrder {
		if counts[style] > counts[best] {
			best = style
		}
	}
	return &pattern.Naming{
		Style:    best,
		Fraction: float64(counts[best]) / float64(len(samples)),
		Sampled:  len(samples),
		Line:     first[best],
	}
}
