package vcs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/norms/pkg/logger"
)

type fakeRunner struct {
	outputs map[string][]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Lines(_ context.Context, name string, args ...string) ([]string, error) {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if err := f.errs[call]; err != nil {
		return nil, err
	}
	return f.outputs[call], nil
}

func newFakeGit(r *fakeRunner) *Git {
	return NewGitWithRunner(r, logger.NewSilentLogger())
}

func TestGit_WorkingTree(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]string{
		"git diff --name-only --relative --diff-filter=d HEAD": {"src/b.php", "src/a.php"},
		"git ls-files --others --exclude-standard":             {"src/new.php", "src/a.php"},
	}}

	files, err := newFakeGit(r).ChangedFiles(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.php", "src/b.php", "src/new.php"}, files)
	assert.Len(t, r.calls, 2)
}

func TestGit_Range(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]string{
		"git diff --name-only --relative --diff-filter=d main...feature": {"pkg/x.go"},
	}}

	files, err := newFakeGit(r).ChangedFiles(context.Background(), "main", "feature")
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/x.go"}, files)
	assert.Equal(t, []string{"git diff --name-only --relative --diff-filter=d main...feature"}, r.calls)
}

func TestGit_Errors(t *testing.T) {
	boom := errors.New("fatal: bad revision")
	r := &fakeRunner{errs: map[string]error{
		"git diff --name-only --relative --diff-filter=d nope": boom,
	}}

	_, err := newFakeGit(r).ChangedFiles(context.Background(), "nope", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "listing changed files")

	r = &fakeRunner{errs: map[string]error{
		"git ls-files --others --exclude-standard": boom,
	}}
	_, err = newFakeGit(r).ChangedFiles(context.Background(), "", "")
	assert.ErrorContains(t, err, "listing untracked files")
}

func TestGit_IsRepository(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]string{
		"git rev-parse --is-inside-work-tree": {"true"},
	}}
	assert.True(t, newFakeGit(r).IsRepository(context.Background()))

	r = &fakeRunner{errs: map[string]error{
		"git rev-parse --is-inside-work-tree": errors.New("not a git repository"),
	}}
	assert.False(t, newFakeGit(r).IsRepository(context.Background()))
}

func TestStatic(t *testing.T) {
	files, err := Static{"./src/B.php", "src/A.php", "src/B.php", " "}.ChangedFiles(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/A.php", "src/B.php"}, files)
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain/path.go", "plain/path.go"},
		{`"with space.go"`, "with space.go"},
		{`"tab\there.go"`, "tab\there.go"},
		{`"quote\".go"`, `quote".go`},
		{`"caf\303\251.go"`, "café.go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unquote(tt.in), tt.in)
	}
}
