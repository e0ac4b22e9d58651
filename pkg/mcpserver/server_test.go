package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/norms/internal/testutil"
	"github.com/simonhull/norms/pkg/config"
	"github.com/simonhull/norms/pkg/engine"
	"github.com/simonhull/norms/pkg/logger"
)

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	e, err := engine.New(config.DefaultConfig())
	require.NoError(t, err)
	e = e.WithLogger(logger.NewSilentLogger())
	return New(e, root, "test").WithLogger(logger.NewSilentLogger())
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

type jsonReport struct {
	Results []struct {
		Path       string `json:"path"`
		Violations []struct {
			RuleID   string `json:"ruleId"`
			Severity string `json:"severity"`
		} `json:"violations"`
	} `json:"results"`
	Conventions []struct {
		SampleSize int `json:"sampleSize"`
		Naming     struct {
			Value string `json:"value"`
		} `json:"namingStyle"`
	} `json:"conventions"`
}

func TestCheckConventions(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShopWithCandidate("report_controller")).Root
	s := newTestServer(t, root)

	res, _, err := s.checkConventions(context.Background(), nil, CheckInput{Files: []string{testutil.CandidatePath}})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &rep))
	require.Len(t, rep.Results, 1)
	require.Len(t, rep.Results[0].Violations, 1)
	assert.Equal(t, "naming-style", rep.Results[0].Violations[0].RuleID)
	assert.Equal(t, "warning", rep.Results[0].Violations[0].Severity)
}

func TestCheckConventions_Markdown(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShopWithCandidate("report_controller")).Root
	s := newTestServer(t, root)

	res, _, err := s.checkConventions(context.Background(), nil, CheckInput{
		Files:  []string{testutil.CandidatePath},
		Format: "markdown",
	})
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), "# Convention report")
}

func TestCheckConventions_BadFormat(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	res, _, err := s.checkConventions(context.Background(), nil, CheckInput{Format: "xml"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "unknown format")
}

func TestCheckConventions_MissingRoot(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "gone"))

	res, _, err := s.checkConventions(context.Background(), nil, CheckInput{Files: []string{"a.php"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFindPattern(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root
	s := newTestServer(t, root)

	res, _, err := s.findPattern(context.Background(), nil, PatternInput{Role: "Controller"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &rep))
	require.Len(t, rep.Conventions, 1)
	assert.Equal(t, 5, rep.Conventions[0].SampleSize)
	assert.Equal(t, "PascalCase", rep.Conventions[0].Naming.Value)
}

func TestFindPattern_InvalidRequests(t *testing.T) {
	root := testutil.NewTestProject(t, testutil.PHPShop()).Root
	s := newTestServer(t, root)

	tests := []struct {
		name  string
		input PatternInput
		want  string
	}{
		{"missing role", PatternInput{}, "role required"},
		{"unknown role", PatternInput{Role: "Widget"}, "Widget"},
		{"bad format", PatternInput{Role: "Controller", Format: "yaml"}, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := s.findPattern(context.Background(), nil, tt.input)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, textOf(t, res), tt.want)
		})
	}
}

func TestListTodos(t *testing.T) {
	files := testutil.PHPShop()
	files["src/Service/Mailer.php"] = "<?php\n// TODO(mail): retry on timeout\n"
	files["templates/base.html.twig"] = "<!-- TODO(ui): dark mode -->\n"
	root := testutil.NewTestProject(t, files).Root
	s := newTestServer(t, root)

	res, _, err := s.listTodos(context.Background(), nil, TodosInput{Scope: "mail"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out struct {
		Total  int `json:"total"`
		Groups []struct {
			Scope string `json:"scope"`
			Items []struct {
				Path string `json:"path"`
				Line int    `json:"line"`
				Text string `json:"text"`
			} `json:"items"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	assert.Equal(t, 1, out.Total)
	require.Len(t, out.Groups, 1)
	assert.Equal(t, "mail", out.Groups[0].Scope)
	require.Len(t, out.Groups[0].Items, 1)
	assert.Equal(t, "src/Service/Mailer.php", out.Groups[0].Items[0].Path)
	assert.Equal(t, 2, out.Groups[0].Items[0].Line)
	assert.Equal(t, "retry on timeout", out.Groups[0].Items[0].Text)
}

func TestListTodos_MissingRoot(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "gone"))

	res, _, err := s.listTodos(context.Background(), nil, TodosInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "cannot detect project")
}

func TestMCP_ListsTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(t, t.TempDir())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{CheckTool, PatternTool, TodosTool}, names)
}
