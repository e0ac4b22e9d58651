package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/simonhull/norms/pkg/compare"
	"github.com/simonhull/norms/pkg/pattern"
)

// Format selects a renderer
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --format values
var Formats = []Format{FormatText, FormatJSON, FormatMarkdown}

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or markdown)", s)
}

// RenderOptions tune terminal rendering
type RenderOptions struct {
	// Pretty renders markdown through glamour; only set it for terminals
	Pretty bool
	// Width is the word wrap width for pretty markdown
	Width int
}

// Render writes the report to w in the given format
func Render(w io.Writer, r Report, format Format, opts RenderOptions) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, r)
	case FormatMarkdown:
		return renderMarkdown(w, r, opts)
	case FormatText, "":
		return renderText(w, r)
	}
	return fmt.Errorf("unknown format %q", format)
}

func renderJSON(w io.Writer, r Report) error {
	if r.Results == nil {
		r.Results = []Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

var titleCase = cases.Title(language.English)

type textStyles struct {
	path     lipgloss.Style
	critical lipgloss.Style
	warning  lipgloss.Style
	hint     lipgloss.Style
	ok       lipgloss.Style
	dim      lipgloss.Style
}

// newTextStyles binds the styles to w so colors are dropped when w is not
// a terminal
func newTextStyles(w io.Writer) textStyles {
	re := lipgloss.NewRenderer(w)
	return textStyles{
		path:     re.NewStyle().Bold(true),
		critical: re.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warning:  re.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		hint:     re.NewStyle().Foreground(lipgloss.Color("6")),
		ok:       re.NewStyle().Foreground(lipgloss.Color("2")),
		dim:      re.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (s textStyles) severity(sev compare.Severity) lipgloss.Style {
	switch sev {
	case compare.Critical:
		return s.critical
	case compare.Warning:
		return s.warning
	}
	return s.hint
}

func renderText(w io.Writer, r Report) error {
	st := newTextStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s", orNone(r.Profile.PrimaryLanguage))
	if len(r.Profile.Languages) > 1 {
		fmt.Fprintf(&b, " (%s)", strings.Join(r.Profile.Languages, ", "))
	}
	if r.Profile.LowConfidence {
		b.WriteString(" [low confidence]")
	}
	b.WriteString("\n")

	for _, set := range r.Conventions {
		b.WriteString("\n")
		writeConventionText(&b, st, set)
	}

	for _, res := range r.Results {
		b.WriteString("\n")
		b.WriteString(st.path.Render(res.Path))
		if len(res.Roles) > 0 {
			b.WriteString(" " + st.dim.Render(joinKeys(res)))
		}
		b.WriteString("\n")

		for _, v := range res.Violations {
			label := st.severity(v.Severity).Render(fmt.Sprintf("%-10s", titleCase.String(v.Severity.String())))
			fmt.Fprintf(&b, "  %s %s %s: expected %s, found %s\n",
				label, v.RuleID, locationText(v.Location), v.Expected, v.Found)
			b.WriteString("             " + st.dim.Render(v.Rationale) + "\n")
		}
		for _, c := range res.Compliant {
			b.WriteString("  " + st.ok.Render("ok") + "         " + c + "\n")
		}
		for _, n := range res.Notes {
			b.WriteString("  " + st.dim.Render("note       "+n) + "\n")
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n")
		for _, n := range r.Notes {
			b.WriteString(st.dim.Render("note "+n) + "\n")
		}
	}

	b.WriteString("\n" + Summary(r) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeConventionText(b *strings.Builder, st textStyles, set pattern.ConventionSet) {
	fmt.Fprintf(b, "%s %s\n", st.path.Render("Conventions for "+set.Role.String()),
		st.dim.Render(fmt.Sprintf("(%d references)", set.SampleSize)))
	for _, ref := range set.References {
		b.WriteString("  ref        " + ref + "\n")
	}
	for _, field := range conventionFields {
		conv := set.Field(field)
		fmt.Fprintf(b, "  %-18s %s\n", field, conventionText(conv))
	}
	if len(set.ErrorVocabulary) > 0 {
		names := make([]string, len(set.ErrorVocabulary))
		for i, v := range set.ErrorVocabulary {
			names[i] = v.Name
		}
		fmt.Fprintf(b, "  %-18s %s\n", "errorVocabulary", strings.Join(names, ", "))
	}
}

// conventionFields is the display order of a convention set
var conventionFields = []string{
	pattern.FieldNaming,
	pattern.FieldImports,
	pattern.FieldDependency,
	pattern.FieldErrorIdiom,
	pattern.FieldParameterCasing,
	pattern.FieldReturnTypes,
}

func conventionText(c pattern.Convention) string {
	switch c.Status {
	case pattern.Resolved:
		return fmt.Sprintf("%s (%.0f%% of %d)", c.Value, c.Support*100, c.Observed)
	case pattern.Competing:
		parts := make([]string, len(c.Alternatives))
		for i, alt := range c.Alternatives {
			parts[i] = fmt.Sprintf("%s %.0f%%", alt.Value, alt.Support*100)
		}
		return "competing: " + strings.Join(parts, " / ")
	}
	return "unknown"
}

func renderMarkdown(w io.Writer, r Report, opts RenderOptions) error {
	md := Markdown(r)
	if !opts.Pretty {
		_, err := io.WriteString(w, md)
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// Markdown returns the report as a markdown document
func Markdown(r Report) string {
	var b strings.Builder
	b.WriteString("# Convention report\n\n")
	fmt.Fprintf(&b, "- **Primary language:** %s\n", orNone(r.Profile.PrimaryLanguage))
	if len(r.Profile.Languages) > 0 {
		fmt.Fprintf(&b, "- **Languages:** %s\n", strings.Join(r.Profile.Languages, ", "))
	}
	if len(r.Profile.MarkerFiles) > 0 {
		fmt.Fprintf(&b, "- **Markers:** %s\n", strings.Join(r.Profile.MarkerFiles, ", "))
	}
	fmt.Fprintf(&b, "- **Files checked:** %d\n", len(r.Results))
	fmt.Fprintf(&b, "- **Violations:** %d\n", r.ViolationCount())

	for _, set := range r.Conventions {
		fmt.Fprintf(&b, "\n## Conventions for %s\n\n", set.Role)
		if len(set.References) > 0 {
			b.WriteString("References:\n\n")
			for _, ref := range set.References {
				fmt.Fprintf(&b, "- `%s`\n", ref)
			}
			b.WriteString("\n")
		}
		b.WriteString("| Field | Convention |\n|---|---|\n")
		for _, field := range conventionFields {
			fmt.Fprintf(&b, "| %s | %s |\n", field, escapeCell(conventionText(set.Field(field))))
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	for _, res := range r.Results {
		fmt.Fprintf(&b, "\n## `%s`\n\n", res.Path)
		if len(res.Roles) > 0 {
			fmt.Fprintf(&b, "Roles: %s\n\n", joinKeys(res))
		}
		if len(res.Violations) > 0 {
			b.WriteString("| Severity | Rule | Location | Expected | Found |\n|---|---|---|---|---|\n")
			for _, v := range res.Violations {
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
					titleCase.String(v.Severity.String()), v.RuleID, locationText(v.Location),
					escapeCell(v.Expected), escapeCell(v.Found))
			}
			b.WriteString("\n")
			for _, v := range res.Violations {
				fmt.Fprintf(&b, "- %s\n", v.Rationale)
			}
		} else {
			b.WriteString("No violations.\n")
		}
		if len(res.Notes) > 0 {
			b.WriteString("\nNotes:\n\n")
			for _, n := range res.Notes {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
	}
	return b.String()
}

// Summary is the one-line outcome of a check
func Summary(r Report) string {
	n := r.ViolationCount()
	switch {
	case len(r.Results) == 0 && len(r.Conventions) > 0:
		return fmt.Sprintf("Learned conventions for %d role(s)", len(r.Conventions))
	case len(r.Results) == 0:
		return "No files checked"
	case n == 0:
		return fmt.Sprintf("No convention violations in %d file(s)", len(r.Results))
	}
	return fmt.Sprintf("%d violation(s) in %d file(s), highest severity %s", n, len(r.Results), r.MaxSeverity())
}

func joinKeys(res Result) string {
	parts := make([]string, len(res.Roles))
	for i, k := range res.Roles {
		parts[i] = k.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func locationText(l compare.Location) string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.Path, l.Line)
	}
	return l.Path
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
