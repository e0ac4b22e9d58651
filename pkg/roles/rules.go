package roles

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RulesVersion is the rule table format this build understands
const RulesVersion = 1

//go:embed rules.yaml
var builtinRules []byte

// RuleTable is the data-driven description of how paths map to roles
type RuleTable struct {
	Version   int                      `yaml:"version"`
	Universal []PathRule               `yaml:"universal"`
	Languages map[string]LanguageRules `yaml:"languages"`
}

// LanguageRules are the rules of one ecosystem
type LanguageRules struct {
	Aliases []string      `yaml:"aliases"`
	Paths   []PathRule    `yaml:"paths"`
	Content []ContentRule `yaml:"content"`
}

// PathRule assigns weight to a role when a path matches Glob
type PathRule struct {
	Role      Role    `yaml:"role"`
	Tag       string  `yaml:"tag"`
	Glob      string  `yaml:"glob"`
	Weight    float64 `yaml:"weight"`
	NoCase    bool    `yaml:"nocase"`
	Exclusive bool    `yaml:"exclusive"`
}

// ContentRule strengthens a path-matched role when Pattern occurs in the file
type ContentRule struct {
	Role    Role    `yaml:"role"`
	Tag     string  `yaml:"tag"`
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
}

// BuiltinRules returns the embedded rule table
func BuiltinRules() (*RuleTable, error) {
	return ParseRules(builtinRules)
}

// LoadRuleFile reads an additional rule table from disk
func LoadRuleFile(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	table, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseRules decodes and validates a rule table
func ParseRules(data []byte) (*RuleTable, error) {
	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing rule table: %w", err)
	}
	if table.Version != RulesVersion {
		return nil, fmt.Errorf("unsupported rule table version %d (want %d)", table.Version, RulesVersion)
	}

	check := func(where string, role *Role, weight float64) error {
		canonical, ok := ParseRole(string(*role))
		if !ok {
			return fmt.Errorf("%s: unknown role %q", where, *role)
		}
		*role = canonical
		if weight <= 0 {
			return fmt.Errorf("%s: weight must be positive", where)
		}
		return nil
	}
	for i := range table.Universal {
		r := &table.Universal[i]
		if err := check(fmt.Sprintf("universal[%d]", i), &r.Role, r.Weight); err != nil {
			return nil, err
		}
	}
	for lang, rules := range table.Languages {
		for i := range rules.Paths {
			r := &rules.Paths[i]
			if err := check(fmt.Sprintf("%s.paths[%d]", lang, i), &r.Role, r.Weight); err != nil {
				return nil, err
			}
		}
		for i := range rules.Content {
			r := &rules.Content[i]
			if err := check(fmt.Sprintf("%s.content[%d]", lang, i), &r.Role, r.Weight); err != nil {
				return nil, err
			}
		}
	}
	return &table, nil
}

// Merge appends the rules of other to t. Languages unknown to t are added.
func (t *RuleTable) Merge(other *RuleTable) {
	t.Universal = append(t.Universal, other.Universal...)
	if t.Languages == nil {
		t.Languages = make(map[string]LanguageRules)
	}
	for lang, rules := range other.Languages {
		existing := t.Languages[lang]
		existing.Aliases = append(existing.Aliases, rules.Aliases...)
		existing.Paths = append(existing.Paths, rules.Paths...)
		existing.Content = append(existing.Content, rules.Content...)
		t.Languages[lang] = existing
	}
}
