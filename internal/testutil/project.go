package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// FixedTime is the modification time given to every fixture file so
// reference ordering does not depend on when the test ran
var FixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// TestProject represents a temporary repository for testing
type TestProject struct {
	Root string
	t    *testing.T
}

// NewTestProject creates a temporary project directory holding files
func NewTestProject(t *testing.T, files map[string]string) *TestProject {
	t.Helper()

	p := &TestProject{Root: t.TempDir(), t: t}
	for rel, content := range files {
		p.WriteFile(rel, content)
	}
	return p
}

// WriteFile writes a slash separated, root-relative file
func (p *TestProject) WriteFile(rel, content string) {
	p.t.Helper()

	full := p.Path(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		p.t.Fatalf("creating %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		p.t.Fatalf("writing %s: %v", rel, err)
	}
	if err := os.Chtimes(full, FixedTime, FixedTime); err != nil {
		p.t.Fatalf("touching %s: %v", rel, err)
	}
}

// Path returns the absolute path of a root-relative file
func (p *TestProject) Path(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// FileExists checks if a file exists in the project
func (p *TestProject) FileExists(rel string) bool {
	p.t.Helper()

	_, err := os.Stat(p.Path(rel))
	return err == nil
}

// ReadFile reads a file from the project
func (p *TestProject) ReadFile(rel string) (string, error) {
	p.t.Helper()

	content, err := os.ReadFile(p.Path(rel))
	return string(content), err
}

// Git runs git in the project, skipping the test when git is unavailable
func (p *TestProject) Git(args ...string) {
	p.t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		p.t.Skip("git not installed")
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = p.Root
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=norms", "GIT_AUTHOR_EMAIL=norms@example.com",
		"GIT_COMMITTER_NAME=norms", "GIT_COMMITTER_EMAIL=norms@example.com",
		"GIT_CONFIG_NOSYSTEM=1", "HOME="+p.Root,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		p.t.Fatalf("git %v failed: %s\nOutput: %s", args, err, output)
	}
}
