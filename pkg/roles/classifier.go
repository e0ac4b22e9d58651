package roles

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/simonhull/norms/pkg/project"
)

type compiledPathRule struct {
	PathRule
	re *regexp.Regexp
}

type compiledContentRule struct {
	ContentRule
	re *regexp.Regexp
}

type compiledLanguage struct {
	paths   []compiledPathRule
	content []compiledContentRule
}

// Classifier assigns ranked roles to files from a rule table
type Classifier struct {
	universal []compiledPathRule
	languages map[string]*compiledLanguage
	tags      map[string]Key
}

// NewClassifier compiles the built-in rule table plus any extra tables
func NewClassifier(extra ...*RuleTable) (*Classifier, error) {
	table, err := BuiltinRules()
	if err != nil {
		return nil, err
	}
	for _, t := range extra {
		table.Merge(t)
	}
	return compile(table)
}

func compile(table *RuleTable) (*Classifier, error) {
	c := &Classifier{
		languages: make(map[string]*compiledLanguage),
		tags:      make(map[string]Key),
	}

	var err error
	if c.universal, err = compilePaths(table.Universal); err != nil {
		return nil, fmt.Errorf("universal rules: %w", err)
	}

	langs := make([]string, 0, len(table.Languages))
	for lang := range table.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		rules := table.Languages[lang]
		cl := &compiledLanguage{}
		if cl.paths, err = compilePaths(rules.Paths); err != nil {
			return nil, fmt.Errorf("%s rules: %w", lang, err)
		}
		for _, r := range rules.Content {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%s rules: invalid content pattern %q: %w", lang, r.Pattern, err)
			}
			cl.content = append(cl.content, compiledContentRule{ContentRule: r, re: re})
		}
		c.languages[lang] = cl
		for _, alias := range rules.Aliases {
			if _, taken := table.Languages[alias]; !taken {
				c.languages[alias] = cl
			}
		}

		for _, r := range rules.Paths {
			c.registerTag(r.Role, r.Tag)
		}
		for _, r := range rules.Content {
			c.registerTag(r.Role, r.Tag)
		}
	}
	for _, r := range table.Universal {
		c.registerTag(r.Role, r.Tag)
	}
	return c, nil
}

func compilePaths(rules []PathRule) ([]compiledPathRule, error) {
	out := make([]compiledPathRule, 0, len(rules))
	for _, r := range rules {
		re, err := compileGlob(r.Glob, r.NoCase)
		if err != nil {
			return nil, err
		}
		out = append(out, compiledPathRule{PathRule: r, re: re})
	}
	return out, nil
}

func (c *Classifier) registerTag(role Role, tag string) {
	if tag == "" {
		return
	}
	lower := strings.ToLower(tag)
	if _, seen := c.tags[lower]; !seen {
		c.tags[lower] = Key{Role: role, Tag: tag}
	}
}

// ResolveKey accepts "Role", "Role/Tag" or a bare tag name such as "Voter".
func (c *Classifier) ResolveKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if key, err := ParseKey(s); err == nil {
		return key, nil
	}
	if key, ok := c.tags[strings.ToLower(s)]; ok {
		return key, nil
	}
	return Key{}, fmt.Errorf("unknown role or tag %q", s)
}

type accumulator struct {
	weight      float64
	specificity int
	exclusive   bool
}

// ClassifyFile classifies relPath using the rules of the language the
// profile assigns to it.
func (c *Classifier) ClassifyFile(relPath string, profile project.Profile, content []byte) Ranked {
	return c.Classify(relPath, profile.LanguageFor(relPath), content)
}

// Classify ranks the roles of relPath (root-relative, slash separated)
// under the rules of lang. content may be nil; when present, content
// rules can only strengthen roles the path rules already produced.
// The result is never empty: unmatched files are {Other: 1.0}.
func (c *Classifier) Classify(relPath, lang string, content []byte) Ranked {
	acc := make(map[Key]*accumulator)
	add := func(key Key, weight float64, specificity int, exclusive bool) {
		a, ok := acc[key]
		if !ok {
			a = &accumulator{}
			acc[key] = a
		}
		a.weight += weight
		if specificity > a.specificity {
			a.specificity = specificity
		}
		a.exclusive = a.exclusive || exclusive
	}

	langRules := c.languages[lang]
	pathRules := c.universal
	if langRules != nil {
		pathRules = append(append([]compiledPathRule(nil), c.universal...), langRules.paths...)
	}

	anyExclusive := false
	for _, r := range pathRules {
		if r.re.MatchString(relPath) {
			add(Key{Role: r.Role, Tag: r.Tag}, r.Weight, len(r.Glob), r.Exclusive)
			anyExclusive = anyExclusive || r.Exclusive
		}
	}
	if anyExclusive {
		for key, a := range acc {
			if !a.exclusive {
				delete(acc, key)
			}
		}
	}

	if len(acc) > 0 && len(content) > 0 && langRules != nil && bytes.IndexByte(content, 0) < 0 {
		pathRoles := make(map[Role]bool, len(acc))
		for key := range acc {
			pathRoles[key.Role] = true
		}
		for _, r := range langRules.content {
			if pathRoles[r.Role] && r.re.Match(content) {
				add(Key{Role: r.Role, Tag: r.Tag}, r.Weight, 0, false)
			}
		}
	}

	absorbUntagged(acc)

	if len(acc) == 0 {
		return Ranked{{Key: Key{Role: Other}, Confidence: 1, weight: 1}}
	}

	ranked := make(Ranked, 0, len(acc))
	for key, a := range acc {
		ranked = append(ranked, Match{Key: key, weight: a.weight, specificity: a.specificity})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if a.specificity != b.specificity {
			return a.specificity > b.specificity
		}
		if a.Role != b.Role {
			return a.Role.rank() < b.Role.rank()
		}
		return a.Tag < b.Tag
	})

	// summed in rank order so confidences are identical across runs
	var total float64
	for _, m := range ranked {
		total += m.weight
	}
	for i := range ranked {
		ranked[i].Confidence = ranked[i].weight / total
	}
	return ranked
}

// absorbUntagged folds the untagged entry of a role into each tagged entry
// of the same role, so a Voter is not also reported as plain Security.
func absorbUntagged(acc map[Key]*accumulator) {
	tagged := make(map[Role][]Key)
	for key := range acc {
		if key.Tag != "" {
			tagged[key.Role] = append(tagged[key.Role], key)
		}
	}
	for role, keys := range tagged {
		plain, ok := acc[Key{Role: role}]
		if !ok {
			continue
		}
		for _, key := range keys {
			a := acc[key]
			a.weight += plain.weight
			if plain.specificity > a.specificity {
				a.specificity = plain.specificity
			}
		}
		delete(acc, Key{Role: role})
	}
}
