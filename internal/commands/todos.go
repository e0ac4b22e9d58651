package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/todos"
)

// TodosCmd creates the 'todos' command
func TodosCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "todos [scope]",
		Short: "List scoped TODO comments",
		Long: `Lists inline TODO comments written as TODO(scope): description, grouped
by scope. Comments in #, //, /* */ and <!-- --> syntax are recognised.

Example:
  norms todos
  norms todos auth --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return &InvocationError{Reason: err.Error()}
			}
			var scope string
			if len(args) == 1 {
				scope = args[0]
			}

			eng, closer, err := g.engine()
			if err != nil {
				return err
			}
			defer closer.Close()

			res, err := eng.Todos(cmd.Context(), g.root, scope)
			if err != nil {
				return classify(err)
			}
			if err := todos.Render(cmd.OutOrStdout(), res, f); err != nil {
				return fmt.Errorf("rendering todos: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText), "Output format: text, json or markdown")

	return cmd
}
