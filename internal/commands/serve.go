package commands

import (
	"github.com/spf13/cobra"

	"github.com/simonhull/norms"
	"github.com/simonhull/norms/pkg/mcpserver"
)

// ServeCmd creates the 'serve' command
func ServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve check_conventions and find_pattern as MCP tools over stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout so coding agents
can check their changes against the conventions of --root.

Logs go to stderr or --log-file; stdout carries only protocol messages.

Example:
  norms serve --root ~/src/shop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := g.engine()
			if err != nil {
				return err
			}
			defer closer.Close()

			return mcpserver.New(eng, g.root, norms.Version).
				WithLogger(g.log).
				Run(cmd.Context())
		},
	}
}
