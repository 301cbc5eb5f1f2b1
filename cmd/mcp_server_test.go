package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform/fake"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMCPServer(t *testing.T, ttl time.Duration) (*mcpServer, *fake.Desktop, *dconf.Memory) {
	t.Helper()
	desk := fake.New()
	desk.SetApp("gnome-terminal-server", terminalTree())
	store := dconf.NewMemory()
	return newMCPServer(MCPConfig{Transport: "stdio", CacheTTL: ttl}, desk.Provider(), store), desk, store
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decode(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), v))
}

func TestMCP_ListApplications(t *testing.T) {
	s, desk, _ := newTestMCPServer(t, 0)
	desk.SetApp("gedit", &model.Node{})

	var entries []appEntry
	decode(t, call(t, s.handleListApplications, nil), &entries)
	assert.ElementsMatch(t, []appEntry{{App: "gedit"}, {App: "gnome-terminal-server"}}, entries)
}

func TestMCP_DumpTree(t *testing.T) {
	s, _, _ := newTestMCPServer(t, 0)

	res := call(t, s.handleDumpTree, map[string]any{})
	assert.True(t, res.IsError)

	var flat struct {
		App      string           `json:"app"`
		Elements []model.FlatNode `json:"elements"`
	}
	decode(t, call(t, s.handleDumpTree, map[string]any{"app": "gnome-terminal-server", "flat": true, "showing": true}), &flat)
	assert.Equal(t, "gnome-terminal-server", flat.App)
	for _, e := range flat.Elements {
		assert.NotEqual(t, "menu item", e.Role, "hidden nodes are pruned")
	}

	res = call(t, s.handleDumpTree, map[string]any{"app": "gedit"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "read gedit")
}

func TestMCP_DumpTreeUsesCache(t *testing.T) {
	s, desk, _ := newTestMCPServer(t, time.Minute)

	call(t, s.handleDumpTree, map[string]any{"app": "gnome-terminal-server"})
	desk.RemoveApp("gnome-terminal-server")

	res := call(t, s.handleDumpTree, map[string]any{"app": "gnome-terminal-server"})
	assert.False(t, res.IsError, "cached tree is served within the TTL")

	res = call(t, s.handleDumpTree, map[string]any{"app": "gnome-terminal-server", "refresh": true})
	assert.True(t, res.IsError, "refresh bypasses the cache")
}

func TestMCP_Find(t *testing.T) {
	s, _, _ := newTestMCPServer(t, 0)

	res := call(t, s.handleFind, map[string]any{"app": "gnome-terminal-server"})
	assert.True(t, res.IsError, "text or roles is required")

	var found findResult
	decode(t, call(t, s.handleFind, map[string]any{"text": "new tab", "limit": float64(5)}), &found)
	assert.Equal(t, 1, found.Total)
	require.Len(t, found.Matches, 1)
	assert.Equal(t, "gnome-terminal-server", found.Matches[0].App)

	res = call(t, s.handleFind, map[string]any{"roles": "push button", "state": "shiny"})
	assert.True(t, res.IsError)
}

func TestMCP_Steps(t *testing.T) {
	s, _, _ := newTestMCPServer(t, 0)

	var entries []stepEntry
	decode(t, call(t, s.handleListSteps, nil), &entries)
	assert.Equal(t, len(catalogSuite().Catalog()), len(entries))

	var m matchResult
	decode(t, call(t, s.handleMatchStep, map[string]any{"text": `Terminal has "2" tabs`}), &m)
	assert.Equal(t, []string{"2"}, m.Args)

	res := call(t, s.handleMatchStep, map[string]any{"text": "the moon is made of cheese"})
	assert.True(t, res.IsError)
}

func TestMCP_Dconf(t *testing.T) {
	s, _, store := newTestMCPServer(t, 0)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "/org/gnome/terminal/legacy/default-show-menubar", "false"))
	require.NoError(t, store.Write(ctx, "/org/gnome/terminal/legacy/profiles:/list", "['b1']"))

	var val dconfValue
	decode(t, call(t, s.handleDconfRead, map[string]any{"key": "/org/gnome/terminal/legacy/default-show-menubar"}), &val)
	assert.Equal(t, "false", val.Value)

	var listing dconfListing
	decode(t, call(t, s.handleDconfList, map[string]any{"dir": "/org/gnome/terminal/legacy/"}), &listing)
	assert.Equal(t, []string{"default-show-menubar", "profiles:/"}, listing.Entries)

	assert.True(t, call(t, s.handleDconfRead, nil).IsError)
	assert.True(t, call(t, s.handleDconfList, nil).IsError)
}

func TestMCP_Screenshot(t *testing.T) {
	s, _, _ := newTestMCPServer(t, 0)

	res := call(t, s.handleScreenshot, map[string]any{"scale": float64(2)})
	assert.True(t, res.IsError)

	res = call(t, s.handleScreenshot, nil)
	require.False(t, res.IsError)
	img, ok := res.Content[0].(mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	data, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestMCP_UnsupportedTransport(t *testing.T) {
	s, _, _ := newTestMCPServer(t, 0)
	assert.ErrorContains(t, s.serve(MCPConfig{Transport: "carrier-pigeon"}), "unsupported transport")
}

func TestMCPTreeCache_Expires(t *testing.T) {
	desk := fake.New()
	desk.SetApp("gedit", &model.Node{})
	c := newMCPTreeCache(time.Second)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	first, err := c.tree(desk, "gedit")
	require.NoError(t, err)
	second, err := c.tree(desk, "gedit")
	require.NoError(t, err)
	assert.Same(t, first, second)

	desk.RemoveApp("gedit")
	now = now.Add(2 * time.Second)
	_, err = c.tree(desk, "gedit")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestParams(t *testing.T) {
	params := map[string]interface{}{"s": "x", "n": float64(3), "i": 4, "b": true, "num": 7.0}
	assert.Equal(t, "x", stringParam(params, "s", ""))
	assert.Equal(t, "7", stringParam(params, "num", ""))
	assert.Equal(t, "d", stringParam(params, "missing", "d"))
	assert.Equal(t, 3, intParam(params, "n", 0))
	assert.Equal(t, 4, intParam(params, "i", 0))
	assert.Equal(t, 9, intParam(params, "s", 9))
	assert.True(t, boolParam(params, "b", false))
	assert.True(t, boolParam(params, "s", true))
}
