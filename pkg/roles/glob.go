package roles

import (
	"fmt"
	"regexp"
	"strings"
)

// compileGlob translates a path glob into an anchored regexp.
//
//	**/   zero or more directories
//	**    anything, including separators
//	*     anything within one path segment
//	?     one character within a segment
//	{a,b} alternatives (not nested)
func compileGlob(glob string, nocase bool) (*regexp.Regexp, error) {
	body, err := translateGlob(glob)
	if err != nil {
		return nil, err
	}
	prefix := "^"
	if nocase {
		prefix = "(?i)^"
	}
	re, err := regexp.Compile(prefix + body + "$")
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", glob, err)
	}
	return re, nil
}

func translateGlob(glob string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '{':
			end := strings.IndexByte(glob[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("invalid glob %q: unclosed brace", glob)
			}
			alts := strings.Split(glob[i+1:i+end], ",")
			parts := make([]string, len(alts))
			for j, alt := range alts {
				p, err := translateGlob(alt)
				if err != nil {
					return "", err
				}
				parts[j] = p
			}
			b.WriteString("(?:" + strings.Join(parts, "|") + ")")
			i += end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String(), nil
}
