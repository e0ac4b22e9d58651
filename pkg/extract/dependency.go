package extract

import (
	"regexp"
	"strings"

	"github.com/simonhull/norms/pkg/pattern"
)

type tally struct {
	count int
	line  int
}

func (t *tally) add(n, line int) {
	if n <= 0 {
		return
	}
	if t.count == 0 {
		t.line = line
	}
	t.count += n
}

// extractDependency counts how the file acquires collaborators: constructor
// parameters, factory or locator calls, and static or global access. The
// pattern with most occurrences wins; ties go to constructor injection,
// then factories.
func extractDependency(lines []line, p *Profile) *pattern.Dependency {
	var ctor, factory, static tally

	for i, l := range lines {
		if l.blank() || l.InStr {
			continue
		}
		text := l.Masked

		if p.Constructor != nil {
			if loc := p.Constructor.FindStringIndex(text); loc != nil {
				if inner, _, _, ok := joined(lines, i, loc[1]-1); ok {
					ctor.add(len(params(inner, p)), l.No)
				}
				continue
			}
		}
		if _, ok := matchFunction(lines, i, p); ok {
			continue
		}

		for _, f := range p.Factories {
			factory.add(len(f.FindAllStringIndex(text, -1)), l.No)
		}
		for _, s := range p.Statics {
			static.add(countTargets(s, text, p.IgnoreTargets), l.No)
		}
	}

	best, pat := ctor, pattern.ConstructorInjection
	if factory.count > best.count {
		best, pat = factory, pattern.Factory
	}
	if static.count > best.count {
		best, pat = static, pattern.StaticImport
	}
	if best.count == 0 {
		return nil
	}
	return &pattern.Dependency{Pattern: pat, Occurrences: best.count, Line: best.line}
}

// countTargets counts matches of rx whose target and member groups are not
// ignored
func countTargets(rx *regexp.Regexp, text string, ignore map[string]bool) int {
	target, member := rx.SubexpIndex("target"), rx.SubexpIndex("member")
	n := 0
	for _, m := range rx.FindAllStringSubmatch(text, -1) {
		if target > 0 && ignore[m[target]] {
			continue
		}
		if member > 0 && ignore[m[member]] {
			continue
		}
		n++
	}
	return n
}

// params splits a parameter list at top-level commas and drops receivers
// such as self or this
func params(inner string, p *Profile) []string {
	var (
		out   []string
		depth int
		start int
	)
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || p.SkipParams[s] {
			return
		}
		if p.ParamName != nil {
			if m := p.ParamName.FindStringSubmatch(s); m != nil && p.SkipParams[m[p.ParamName.SubexpIndex("name")]] {
				return
			}
		}
		out = append(out, s)
	}
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(', '[', '{':
			depth++
		case '<':
			if i+1 < len(inner) && inner[i+1] == '-' {
				continue
			}
			depth++
		case ')', ']', '}':
			depth--
		case '>':
			if i > 0 && (inner[i-1] == '-' || inner[i-1] == '=') {
				continue
			}
			depth--
		case ',':
			if depth == 0 {
				emit(inner[start:i])
				start = i + 1
			}
		}
	}
	emit(inner[start:])
	return out
}
