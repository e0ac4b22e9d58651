package todos

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonhull/norms/pkg/report"
)

// Render writes the scan result to w in the given format
func Render(w io.Writer, r Result, format report.Format) error {
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding todos: %w", err)
		}
		return nil
	case report.FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case report.FormatText, "":
		return renderText(w, r)
	}
	return fmt.Errorf("unknown format %q", format)
}

func renderText(w io.Writer, r Result) error {
	re := lipgloss.NewRenderer(w)
	heading := re.NewStyle().Foreground(lipgloss.Color("4"))
	scope := re.NewStyle().Foreground(lipgloss.Color("3"))
	count := re.NewStyle().Foreground(lipgloss.Color("2"))
	group := re.NewStyle().Foreground(lipgloss.Color("6"))

	var b strings.Builder
	if r.Total == 0 {
		if r.Filter != "" {
			fmt.Fprintf(&b, "No TODOs found for scope: %s\n", r.Filter)
		} else {
			b.WriteString("No TODOs found\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	if r.Filter != "" {
		fmt.Fprintf(&b, "%s %s (%d total)\n\n", heading.Render("TODOs for scope:"), scope.Render(r.Filter), r.Total)
	} else {
		fmt.Fprintf(&b, "%s\n\n", heading.Render(fmt.Sprintf("All TODOs (%d total)", r.Total)))
		b.WriteString(heading.Render("Summary:") + "\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "  %s TODO(%s)\n", count.Render(fmt.Sprintf("%3d", len(g.Items))), scope.Render(g.Scope))
		}
		b.WriteString("\n")
	}

	b.WriteString(heading.Render("Details:") + "\n")
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "\n%s\n", group.Render(fmt.Sprintf("TODO(%s):", g.Scope)))
		for _, it := range g.Items {
			fmt.Fprintf(&b, "  %s:%s: %s\n", count.Render(it.Path), scope.Render(fmt.Sprint(it.Line)), it.Text)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown renders the scan result as a markdown document
func Markdown(r Result) string {
	var b strings.Builder
	if r.Filter != "" {
		fmt.Fprintf(&b, "# TODOs for scope `%s` (%d total)\n", r.Filter, r.Total)
	} else {
		fmt.Fprintf(&b, "# TODOs (%d total)\n", r.Total)
	}
	if r.Total == 0 {
		b.WriteString("\nNo TODOs found.\n")
		return b.String()
	}
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "\n## TODO(%s)\n\n", g.Scope)
		for _, it := range g.Items {
			fmt.Fprintf(&b, "- `%s:%d` %s\n", it.Path, it.Line, it.Text)
		}
	}
	return b.String()
}
