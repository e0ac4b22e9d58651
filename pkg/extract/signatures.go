package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/simonhull/norms/pkg/pattern"
)

type funcMatch struct {
	name   string
	mods   string
	params []string
	tail   string
}

// matchFunction recognises a callable definition starting on lines[i]
func matchFunction(lines []line, i int, p *Profile) (funcMatch, bool) {
	text := lines[i].Masked
	for _, fn := range p.Functions {
		m := fn.Re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		nameIdx := fn.Re.SubexpIndex("name")
		name := text[m[2*nameIdx]:m[2*nameIdx+1]]
		if keywords[name] {
			continue
		}
		match := funcMatch{name: name}
		if idx := fn.Re.SubexpIndex("mods"); idx > 0 && m[2*idx] >= 0 {
			match.mods = text[m[2*idx]:m[2*idx+1]]
		}

		open := m[1] - 1
		if open < 0 || text[open] != '(' {
			// languages with optional parentheses
			rest := strings.TrimLeft(text[m[1]:], " \t")
			if !strings.HasPrefix(rest, "(") {
				match.tail = text[m[1]:]
				if fn.BodyStart != nil && !fn.BodyStart.MatchString(match.tail) {
					continue
				}
				return match, true
			}
			open = len(text) - len(rest)
		}

		inner, tail, _, ok := joined(lines, i, open)
		if !ok {
			continue
		}
		if fn.BodyStart != nil && !fn.BodyStart.MatchString(tail) {
			continue
		}
		match.params = params(inner, p)
		match.tail = tail
		return match, true
	}
	return funcMatch{}, false
}

// extractSignatures lists the public callables of a file with their arity,
// parameter casing and return type presence
func extractSignatures(lines []line, p *Profile) []pattern.Signature {
	if len(p.Functions) == 0 {
		return nil
	}
	var sigs []pattern.Signature
	for i, l := range lines {
		if l.blank() || l.InStr {
			continue
		}
		fn, ok := matchFunction(lines, i, p)
		if !ok || !isPublic(fn, p) {
			continue
		}
		sigs = append(sigs, pattern.Signature{
			Name:          fn.name,
			Line:          l.No,
			Arity:         len(fn.params),
			ParamCasing:   paramCasing(fn.params, p),
			HasReturnType: p.AlwaysReturnType || (p.ReturnType != nil && p.ReturnType.MatchString(fn.tail)),
		})
	}
	return sigs
}

func isPublic(fn funcMatch, p *Profile) bool {
	mods := strings.Fields(fn.mods)
	has := func(list []string) bool {
		for _, m := range mods {
			for _, want := range list {
				if m == want {
					return true
				}
			}
		}
		return false
	}

	if has(p.PrivateMods) {
		return false
	}
	for _, prefix := range p.PrivatePrefixes {
		if strings.HasPrefix(fn.name, prefix) {
			return false
		}
	}
	if p.ExportedByCase {
		r, _ := utf8.DecodeRuneInString(fn.name)
		return unicode.IsUpper(r)
	}
	if has(p.PublicMods) {
		return true
	}
	return p.DefaultPublic
}

// paramCasing is the majority casing of the named parameters
func paramCasing(ps []string, p *Profile) pattern.NamingStyle {
	if p.ParamName == nil {
		return ""
	}
	counts := make(map[pattern.NamingStyle]int)
	for _, param := range ps {
		m := p.ParamName.FindStringSubmatch(param)
		if m == nil {
			continue
		}
		if style := ClassifyIdentifier(m[p.ParamName.SubexpIndex("name")], false); style != "" {
			counts[style]++
		}
	}
	var best pattern.NamingStyle
	for _, style := range styleOrder {
		if counts[style] > counts[best] {
			best = style
		}
	}
	return best
}
