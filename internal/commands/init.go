package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simonhull/norms/pkg/config"
	"github.com/simonhull/norms/pkg/output"
)

// InitCmd creates the 'init' command
func InitCmd(g *globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default norms.yaml to the repository root",
		Long: `Writes the default configuration to <root>/norms.yaml so it can be
tuned: ignored directories, reference count, extra classification rules,
the record cache and logging.

Example:
  norms init
  norms init --root ../shop --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(g.root, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return &InvocationError{Reason: fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
			}

			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			output.Success(fmt.Sprintf("Created %s", path))
			output.Step("Run 'norms check' to compare your changes with the repository")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing norms.yaml")
	return cmd
}
