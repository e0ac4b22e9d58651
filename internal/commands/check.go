package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonhull/norms/pkg/engine"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/output"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/vcs"
)

// CheckCmd creates the 'check' command
func CheckCmd(g *globals) *cobra.Command {
	var (
		files  []string
		base   string
		head   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report changed files that diverge from repository conventions",
		Long: `Compares every changed file with typical files of the same role.

Without --files the changed files come from git: the working tree against
--base (default HEAD, untracked files included), or --base...--head when
--head is set. Exits 1 when a Warning or Critical violation is found.

Example:
  norms check
  norms check --base main --head feature/reports
  norms check --files src/Controller/ReportController.php --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return &InvocationError{Reason: err.Error()}
			}
			if _, err := project.CheckRoot(g.root); err != nil {
				return classify(err)
			}

			resolved, err := resolveFiles(g.root, files)
			if err != nil {
				return err
			}

			eng, closer, err := g.engine()
			if err != nil {
				return err
			}
			defer closer.Close()

			if len(resolved) == 0 {
				git := vcs.NewGit(g.root, g.log)
				if !git.IsRepository(cmd.Context()) {
					return &InvocationError{Reason: fmt.Sprintf("%s is not a git repository; pass --files to choose files", g.root)}
				}
				eng = eng.WithChangeSource(git)
			}

			rep, err := eng.Check(cmd.Context(), engine.CheckRequest{
				Root:  g.root,
				Files: resolved,
				Base:  base,
				Head:  head,
			})
			if err != nil {
				return classify(err)
			}

			out := cmd.OutOrStdout()
			if err := report.Render(out, rep, f, report.RenderOptions{Pretty: isTerminal(out)}); err != nil {
				return fmt.Errorf("rendering report: %w", err)
			}

			g.log.Info("Check finished",
				logger.F("files", len(rep.Results)),
				logger.F("violations", rep.ViolationCount()),
				logger.F("max_severity", rep.MaxSeverity().String()))
			if rep.Failed() {
				return &ExitError{Code: ExitViolations}
			}
			output.Verbose(report.Summary(rep))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&files, "files", nil, "Files to check, relative to --root (default: files changed in git)")
	cmd.Flags().StringVar(&base, "base", "", "Revision to diff against (default vcs.base, HEAD)")
	cmd.Flags().StringVar(&head, "head", "", "Revision to diff to (default: working tree)")
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText), "Report format: text, json or markdown")

	return cmd
}

// resolveFiles makes every file relative to root and rejects files that
// do not exist. Relative paths are taken relative to root.
func resolveFiles(root string, files []string) ([]string, error) {
	var out []string
	for _, f := range files {
		abs := f
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, f)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, &InvocationError{Reason: fmt.Sprintf("file not found: %s", f)}
		}
		if info.IsDir() {
			return nil, &InvocationError{Reason: fmt.Sprintf("%s is a directory, expected a file", f)}
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, &InvocationError{Reason: fmt.Sprintf("%s is outside the repository root %s", f, root)}
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}
