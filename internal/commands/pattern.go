package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/norms/pkg/engine"
	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/selector"
)

// PatternCmd creates the 'pattern' command
func PatternCmd(g *globals) *cobra.Command {
	var (
		role    string
		feature string
		count   int
		format  string
	)

	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Show the conventions a role follows in this repository",
		Long: `Selects typical reference files for a role and prints the conventions
they share, with the files they were learned from.

--role accepts a role (Controller), a role with tag (Security/Voter) or a
bare tag (Voter).

Example:
  norms pattern --role Controller
  norms pattern --role Voter --feature invoice --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return &InvocationError{Reason: err.Error()}
			}
			if cmd.Flags().Changed("count") && count != selector.ClampCount(count) {
				return &InvocationError{Reason: fmt.Sprintf("--count must be between 3 and 5, got %d", count)}
			}

			eng, closer, err := g.engine()
			if err != nil {
				return err
			}
			defer closer.Close()

			rep, err := eng.Pattern(cmd.Context(), engine.PatternRequest{
				Root:    g.root,
				Role:    role,
				Feature: feature,
				Count:   count,
			})
			if err != nil {
				return classify(err)
			}

			out := cmd.OutOrStdout()
			if err := report.Render(out, rep, f, report.RenderOptions{Pretty: isTerminal(out)}); err != nil {
				return fmt.Errorf("rendering report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", "", "Role or tag to learn (required)")
	cmd.Flags().StringVar(&feature, "feature", "", "Only use references whose path fuzzily matches this keyword")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of references, 3 to 5 (default references.count)")
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText), "Report format: text, json or markdown")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
