package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/simonhull/norms/pkg/pattern"
)

// UnparsablePatternError reports a file the extractor cannot read as source
type UnparsablePatternError struct {
	Path   string
	Reason string
}

func (e *UnparsablePatternError) Error() string {
	return fmt.Sprintf("cannot extract pattern from %s: %s", e.Path, e.Reason)
}

// IsUnparsable reports whether err is an UnparsablePatternError
func IsUnparsable(err error) bool {
	var target *UnparsablePatternError
	return errors.As(err, &target)
}

var typeSplit = regexp.MustCompile(`[|,\s]+`)

// extractErrors decides the error idiom by counting throw, result and
// callback evidence, and collects the error type names the file mentions.
func extractErrors(lines []line, p *Profile) *pattern.ErrorHandling {
	var throws, results, callbacks tally
	types := make(map[string]bool)

	for _, l := range lines {
		if l.blank() {
			continue
		}
		text := l.Masked
		count := func(t *tally, list []*regexp.Regexp) {
			for _, rx := range list {
				t.add(len(rx.FindAllStringIndex(text, -1)), l.No)
			}
		}
		count(&throws, p.Throws)
		count(&results, p.Results)
		count(&callbacks, p.Callbacks)

		for _, rx := range p.ErrorTypes {
			idx := rx.SubexpIndex("type")
			for _, m := range rx.FindAllStringSubmatch(text, -1) {
				for _, name := range typeSplit.Split(m[idx], -1) {
					if name = shortTypeName(name); name != "" {
						types[name] = true
					}
				}
			}
		}
	}

	best, idiom := throws, pattern.ThrowBased
	if results.count > best.count {
		best, idiom = results, pattern.ResultBased
	}
	if callbacks.count > best.count {
		best, idiom = callbacks, pattern.CallbackBased
	}
	if best.count == 0 && len(types) == 0 {
		return nil
	}

	eh := &pattern.ErrorHandling{Line: best.line}
	if best.count > 0 {
		eh.Idiom = idiom
	}
	for name := range types {
		eh.Types = append(eh.Types, name)
	}
	sort.Strings(eh.Types)
	return eh
}

// shortTypeName strips namespaces and rejects names that are not types
func shortTypeName(name string) string {
	name = strings.TrimSpace(name)
	for _, sep := range []string{`\`, "::", "."} {
		if i := strings.LastIndex(name, sep); i >= 0 {
			name = name[i+len(sep):]
		}
	}
	if name == "" || name[0] < 'A' || name[0] > 'Z' {
		return ""
	}
	return name
}
