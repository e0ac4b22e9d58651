package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/norms"
	"github.com/simonhull/norms/pkg/extract"
	"github.com/simonhull/norms/pkg/roles"
)

// VersionCmd creates the 'version' command
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs neither configuration nor a repository
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "norms v%s (extractor %s, rules v%d)\n",
				norms.Version, extract.Version, roles.RulesVersion)
		},
	}
}
