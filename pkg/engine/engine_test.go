package engine

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/simonhull/norms/internal/testutil"
	"github.com/simonhull/norms/pkg/compare"
	"github.com/simonhull/norms/pkg/config"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/roles"
	"github.com/simonhull/norms/pkg/selector"
	"github.com/simonhull/norms/pkg/vcs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Extract.Workers = 2
	e, err := New(cfg)
	require.NoError(t, err)
	return e.WithLogger(logger.NewSilentLogger())
}

func TestCheck_NamingViolation(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShopWithCandidate("report_controller")).Root

	rep, err := newTestEngine(t).Check(context.Background(), CheckRequest{
		Root:  root,
		Files: []string{"src/Controller/ReportController.php"},
	})
	require.NoError(t, err)

	assert.Equal(t, project.PHP, rep.Profile.PrimaryLanguage)
	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	assert.Equal(t, "src/Controller/ReportController.php", res.Path)
	assert.Equal(t, []roles.Key{{Role: roles.Controller}}, res.Roles)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, compare.Warning, v.Severity)
	assert.Equal(t, "naming-style", v.RuleID)
	assert.Equal(t, "PascalCase", v.Expected)
	assert.Equal(t, "snake_case", v.Found)
	assert.InDelta(t, 0.8, v.Support, 1e-9)
	assert.Equal(t, compare.Location{Path: "src/Controller/ReportController.php", Line: 9}, v.Location)
	assert.Equal(t, "4 of 5 Controller references use naming style PascalCase", v.Rationale)

	assert.Contains(t, res.Compliant, "dependencyPattern (Controller)")
	assert.Contains(t, res.Compliant, "errorHandling (Controller)")
	assert.True(t, rep.Failed())
}

func TestCheck_CompliantFile(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShopWithCandidate("ReportController")).Root

	rep, err := newTestEngine(t).Check(context.Background(), CheckRequest{
		Root:  root,
		Files: []string{filepath.Join(root, "src", "Controller", "ReportController.php")},
	})
	require.NoError(t, err)

	require.Len(t, rep.Results, 1)
	assert.Equal(t, "src/Controller/ReportController.php", rep.Results[0].Path)
	assert.Empty(t, rep.Results[0].Violations)
	assert.Len(t, rep.Results[0].Compliant, len(compare.Rules))
	assert.False(t, rep.Failed())
}

func TestCheck_RoleWithoutReferences(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root

	rep, err := newTestEngine(t).Check(context.Background(), CheckRequest{
		Root:  root,
		Files: []string{"src/Security/UserVoter.php"},
	})
	require.NoError(t, err)

	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	assert.Equal(t, []roles.Key{{Role: roles.Security, Tag: "Voter"}}, res.Roles)
	assert.Empty(t, res.Violations)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "Security/Voter: uncomparable")
	assert.False(t, rep.Failed())
}

func TestCheck_MissingRoot(t *testing.T) {
	_, err := newTestEngine(t).Check(context.Background(), CheckRequest{
		Root:  filepath.Join(t.TempDir(), "does-not-exist"),
		Files: []string{"a.php"},
	})

	var detErr *project.DetectionError
	assert.ErrorAs(t, err, &detErr)
}

func TestCheck_NonSourceAndUnclassifiedFiles(t *testing.T) {
	files := testutil.PHPShop()
	files["src/bootstrap.php"] = "<?php\nrequire 'vendor/autoload.php';\n"
	root := testutil.NewTestProject(t, files).Root

	rep, err := newTestEngine(t).Check(context.Background(), CheckRequest{
		Root:  root,
		Files: []string{"README.md", "src/bootstrap.php"},
	})
	require.NoError(t, err)

	require.Len(t, rep.Results, 1)
	assert.Equal(t, "src/bootstrap.php", rep.Results[0].Path)
	assert.Equal(t, []string{"no role to compare against (classified as Other)"}, rep.Results[0].Notes)
}

func TestCheck_UnparsableCandidate(t *testing.T) {
	files := testutil.PHPShop()
	files[testutil.CandidatePath] = "<?php\x00\x01\x02 binary"
	root := testutil.NewTestProject(t, files).Root

	rep, err := newTestEngine(t).Check(context.Background(), CheckRequest{
		Root:  root,
		Files: []string{testutil.CandidatePath},
	})
	require.NoError(t, err)

	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	assert.Empty(t, res.Violations)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "Controller: uncomparable, cannot extract pattern from "+testutil.CandidatePath+": binary content", res.Notes[0])
	assert.False(t, rep.Failed())
}

func TestCheck_UsesChangeSource(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShopWithCandidate("report_controller")).Root

	e := newTestEngine(t).WithChangeSource(vcs.Static{"src/Controller/ReportController.php", "README.md"})
	rep, err := e.Check(context.Background(), CheckRequest{Root: root})
	require.NoError(t, err)

	require.Len(t, rep.Results, 1)
	assert.Len(t, rep.Results[0].Violations, 1)
}

func TestCheck_Deterministic(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShopWithCandidate("report_controller")).Root
	req := CheckRequest{
		Root:  root,
		Files: []string{"src/Security/UserVoter.php", "src/Controller/ReportController.php"},
	}

	render := func(req CheckRequest) []byte {
		rep, err := newTestEngine(t).Check(context.Background(), req)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, report.Render(&buf, rep, report.FormatJSON, report.RenderOptions{}))
		return buf.Bytes()
	}

	first := render(req)
	reordered := req
	reordered.Files = []string{"src/Controller/ReportController.php", "src/Security/UserVoter.php"}
	assert.Equal(t, first, render(req))
	assert.Equal(t, first, render(reordered))
}

func TestCheck_Cancelled(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t).Check(ctx, CheckRequest{
		Root:  root,
		Files: []string{"src/Controller/CartController.php"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPattern_LearnsConventions(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root

	rep, err := newTestEngine(t).Pattern(context.Background(), PatternRequest{Root: root, Role: "controller"})
	require.NoError(t, err)

	require.Len(t, rep.Conventions, 1)
	set := rep.Conventions[0]
	assert.Equal(t, roles.Key{Role: roles.Controller}, set.Role)
	assert.Equal(t, 5, set.SampleSize)
	assert.Equal(t, []string{
		"src/Controller/CartController.php",
		"src/Controller/LegacyController.php",
		"src/Controller/OrderController.php",
		"src/Controller/ProductController.php",
		"src/Controller/UserController.php",
	}, set.References)

	assert.Equal(t, pattern.Resolved, set.Naming.Status)
	assert.Equal(t, "PascalCase", set.Naming.Value)
	assert.InDelta(t, 0.8, set.Naming.Support, 1e-9)
	assert.Equal(t, "constructor-injection", set.Dependency.Value)
	assert.Equal(t, "throw", set.ErrorIdiom.Value)
	assert.Empty(t, rep.Results)
}

func TestPattern_FeatureWithoutMatches(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root

	rep, err := newTestEngine(t).Pattern(context.Background(), PatternRequest{Root: root, Role: "Controller", Feature: "zzz"})
	require.NoError(t, err)

	require.Len(t, rep.Conventions, 1)
	assert.Zero(t, rep.Conventions[0].SampleSize)
	assert.Equal(t, pattern.Unknown, rep.Conventions[0].Naming.Status)
	require.Len(t, rep.Notes, 1)
	assert.Contains(t, rep.Notes[0], `matching "zzz"`)
}

func TestPattern_UnknownRole(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root

	_, err := newTestEngine(t).Pattern(context.Background(), PatternRequest{Root: root, Role: "Widget"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Error(), "Widget")
}

func TestDominantLanguage(t *testing.T) {
	inv := func(langs ...string) selector.Inventory {
		var out selector.Inventory
		for i, l := range langs {
			out = append(out, selector.Entry{Path: fmt.Sprintf("f%d", i), Language: l})
		}
		return out
	}

	tests := []struct {
		name    string
		inv     selector.Inventory
		primary string
		want    string
	}{
		{"primary present", inv(project.Python, project.Python, project.PHP), project.PHP, project.PHP},
		{"most common without primary", inv(project.Python, project.JavaScript, project.JavaScript), project.Go, project.JavaScript},
		{"tie broken by name", inv(project.Python, project.JavaScript), project.Go, project.JavaScript},
		{"empty", nil, project.Go, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dominantLanguage(tt.inv, tt.primary))
		})
	}
}

func TestInventory_SortedAndClassified(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root
	e := newTestEngine(t)

	profile, err := e.detector().Detect(context.Background(), root)
	require.NoError(t, err)
	inv, err := e.Inventory(context.Background(), profile)
	require.NoError(t, err)

	require.Len(t, inv, 6, "README.md and composer.json are not source files")
	for i := 1; i < len(inv); i++ {
		assert.Less(t, inv[i-1].Path, inv[i].Path)
	}
	voter := inv[len(inv)-1]
	assert.Equal(t, "src/Security/UserVoter.php", voter.Path)
	assert.Equal(t, roles.Key{Role: roles.Security, Tag: "Voter"}, voter.Ranked.Top().Key)
	assert.Equal(t, project.PHP, voter.Language)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.References.Count = 9
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.Classifier.Rules = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	_, err = New(cfg)
	assert.ErrorContains(t, err, "loading rule file")
}
