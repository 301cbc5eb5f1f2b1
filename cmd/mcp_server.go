package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/desktopqa/terminal-bdd/internal/platform"
	"github.com/desktopqa/terminal-bdd/internal/steps"
	"github.com/desktopqa/terminal-bdd/internal/version"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// mcpServer wraps the MCP server with the platform provider, the settings
// store and a tree cache.
type mcpServer struct {
	provider   *platform.Provider
	store      dconf.Store
	suite      *steps.Suite
	cache      *mcpTreeCache
	providerMu sync.Mutex
	mcp        *mcpserver.MCPServer
	now        func() time.Time
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
	CacheTTL  time.Duration
}

func newMCPServer(cfg MCPConfig, provider *platform.Provider, store dconf.Store) *mcpServer {
	s := &mcpServer{
		provider: provider,
		store:    store,
		suite:    catalogSuite(),
		cache:    newMCPTreeCache(cfg.CacheTTL),
		now:      time.Now,
	}
	s.mcp = mcpserver.NewMCPServer("terminal-bdd", version.Version)
	s.registerTools()
	return s
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_applications",
			mcp.WithDescription("List the applications registered on the AT-SPI accessibility bus"),
		),
		s.handleListApplications,
	)

	s.mcp.AddTool(
		mcp.NewTool("dump_tree",
			mcp.WithDescription("Return the accessible tree of an application. Names and roles in the tree are what step phrases refer to."),
			mcp.WithString("app", mcp.Description("Application name, e.g. 'gnome-terminal-server'"), mcp.Required()),
			mcp.WithBoolean("flat", mcp.Description("Flatten into a list with path breadcrumbs")),
			mcp.WithBoolean("showing", mcp.Description("Omit subtrees that are not showing")),
			mcp.WithBoolean("refresh", mcp.Description("Bypass the tree cache")),
		),
		s.handleDumpTree,
	)

	s.mcp.AddTool(
		mcp.NewTool("find",
			mcp.WithDescription("Search accessible nodes by name or text, role and state"),
			mcp.WithString("app", mcp.Description("Limit search to this application")),
			mcp.WithString("text", mcp.Description("Case-insensitive match on name or text")),
			mcp.WithString("roles", mcp.Description("Comma-separated roles, e.g. 'push button,menu items'")),
			mcp.WithString("state", mcp.Description("Required state: showing, visible, sensitive, focused, selected, checked, editable")),
			mcp.WithBoolean("exact", mcp.Description("Require exact match instead of substring")),
			mcp.WithNumber("limit", mcp.Description("Max matches to return (default 10)")),
		),
		s.handleFind,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_steps",
			mcp.WithDescription("List every step pattern with example phrases"),
		),
		s.handleListSteps,
	)

	s.mcp.AddTool(
		mcp.NewTool("match_step",
			mcp.WithDescription("Resolve a step phrase to its pattern and captured arguments"),
			mcp.WithString("text", mcp.Description("Step text without the Given/When/Then keyword"), mcp.Required()),
		),
		s.handleMatchStep,
	)

	s.mcp.AddTool(
		mcp.NewTool("dconf_read",
			mcp.WithDescription("Read one dconf key, e.g. '/org/gnome/terminal/legacy/default-show-menubar'"),
			mcp.WithString("key", mcp.Description("Absolute dconf key"), mcp.Required()),
		),
		s.handleDconfRead,
	)

	s.mcp.AddTool(
		mcp.NewTool("dconf_list",
			mcp.WithDescription("List the entries of a dconf directory, e.g. '/org/gnome/terminal/legacy/profiles:/'"),
			mcp.WithString("dir", mcp.Description("Absolute dconf directory ending in '/'"), mcp.Required()),
		),
		s.handleDconfList,
	)

	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the screen as PNG"),
			mcp.WithNumber("scale", mcp.Description("Scale factor 0.1-1.0 (default 0.5)")),
		),
		s.handleScreenshot,
	)
}

// encode renders v the way the CLI would, as JSON.
func encode(v interface{}) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := output.Fprint(&buf, output.FormatJSON, v); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *mcpServer) reader() (platform.Reader, error) {
	s.providerMu.Lock()
	defer s.providerMu.Unlock()
	if s.provider == nil || s.provider.Reader == nil {
		return nil, fmt.Errorf("reader not available on this platform")
	}
	return s.provider.Reader, nil
}

func (s *mcpServer) handleListApplications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reader, err := s.reader()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names, err := reader.Applications()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries := make([]appEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, appEntry{App: n})
	}
	return encode(entries)
}

func (s *mcpServer) handleDumpTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	app := stringParam(params, "app", "")
	if app == "" {
		return mcp.NewToolResultError("app is required"), nil
	}
	if boolParam(params, "refresh", false) {
		s.cache.invalidateAll()
	}
	root, err := s.tree(app)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if boolParam(params, "showing", false) {
		root = model.PruneHidden(root)
	}
	return encode(dumpResult(app, root, boolParam(params, "flat", false), s.now()))
}

func (s *mcpServer) handleFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	q := findQuery{
		Text:  stringParam(params, "text", ""),
		Exact: boolParam(params, "exact", false),
		Roles: parseRoles(stringParam(params, "roles", "")),
		State: stringParam(params, "state", ""),
		Limit: intParam(params, "limit", 10),
	}
	if q.Text == "" && len(q.Roles) == 0 {
		return mcp.NewToolResultError("text or roles is required"), nil
	}

	apps := []string{stringParam(params, "app", "")}
	if apps[0] == "" {
		reader, err := s.reader()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if apps, err = reader.Applications(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	res, err := searchApps(apps, s.tree, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return encode(res)
}

func (s *mcpServer) handleListSteps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var entries []stepEntry
	for _, st := range s.suite.Catalog() {
		entries = append(entries, stepEntry{Pattern: st.Pattern, Examples: st.Examples})
	}
	return encode(entries)
}

func (s *mcpServer) handleMatchStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := stringParam(request.GetArguments(), "text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	st, captured, ok := s.suite.Match(text)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no step matches %q", text)), nil
	}
	return encode(matchResult{Text: text, Pattern: st.Pattern, Args: captured})
}

func (s *mcpServer) handleDconfRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := stringParam(request.GetArguments(), "key", "")
	if key == "" {
		return mcp.NewToolResultError("key is required"), nil
	}
	val, err := s.store.Read(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return encode(dconfValue{Key: key, Value: val})
}

func (s *mcpServer) handleDconfList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := stringParam(request.GetArguments(), "dir", "")
	if dir == "" {
		return mcp.NewToolResultError("dir is required"), nil
	}
	entries, err := s.store.List(ctx, dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return encode(dconfListing{Dir: dir, Entries: entries})
}

func (s *mcpServer) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scale := 0.5
	if v, ok := request.GetArguments()["scale"].(float64); ok {
		scale = v
	}
	if scale < 0.1 || scale > 1 {
		return mcp.NewToolResultError(fmt.Sprintf("scale must be between 0.1 and 1.0, got %g", scale)), nil
	}

	var shooter platform.Screenshotter
	s.providerMu.Lock()
	if s.provider != nil {
		shooter = s.provider.Screenshotter
	}
	s.providerMu.Unlock()
	if shooter == nil {
		return mcp.NewToolResultError("screenshot not supported on this platform"), nil
	}
	data, err := shooter.CaptureScreen(scale)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.ImageContent{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(data),
				MIMEType: "image/png",
			},
		},
	}, nil
}

func (s *mcpServer) tree(app string) (*model.Node, error) {
	reader, err := s.reader()
	if err != nil {
		return nil, err
	}
	root, err := s.cache.tree(reader, app)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", app, err)
	}
	return root, nil
}

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

// intParam accepts the float64 that JSON decoding produces as well as
// plain ints from in-process callers.
func intParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

func boolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
