package gateway

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/emotewall/internal/security"
)

const catalogRefreshJob = "catalog_refresh"

// newMCPServer exposes wall control as MCP tools for assistants.
func (g *Gateway) newMCPServer() *server.MCPServer {
	s := server.NewMCPServer("emotewall", g.version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_themes",
		mcp.WithDescription("List the emote wall themes that can be applied."),
	), g.mcpListThemes)

	s.AddTool(mcp.NewTool("set_theme",
		mcp.WithDescription("Switch the emote wall to another theme."),
		mcp.WithString("theme", mcp.Required(), mcp.Description("Theme id as returned by list_themes.")),
	), g.mcpSetTheme)

	s.AddTool(mcp.NewTool("set_enabled",
		mcp.WithDescription("Turn emote spawning on or off. Emotes already on screen finish their lifetime."),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether new emotes spawn.")),
	), g.mcpSetEnabled)

	s.AddTool(mcp.NewTool("wall_status",
		mcp.WithDescription("Report whether the wall is enabled, its theme and how many emotes are live."),
	), g.mcpWallStatus)

	s.AddTool(mcp.NewTool("refresh_catalogs",
		mcp.WithDescription("Re-fetch the emote catalogs now so newly added channel emotes show up."),
	), g.mcpRefreshCatalogs)

	return s
}

func (g *Gateway) mcpListThemes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(g.themeList())
}

func (g *Gateway) mcpSetTheme(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("theme")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := g.applyWall("mcp", wallUpdate{Theme: &id})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status)
}

func (g *Gateway) mcpSetEnabled(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := g.applyWall("mcp", wallUpdate{Enabled: &enabled})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status)
}

func (g *Gateway) mcpWallStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if g.wall == nil {
		return mcp.NewToolResultError(errWallUnavailable.Error()), nil
	}
	return jsonResult(g.wall.Status())
}

func (g *Gateway) mcpRefreshCatalogs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if g.jobs == nil {
		return mcp.NewToolResultError("scheduler not available"), nil
	}
	if err := g.jobs.Trigger(ctx, catalogRefreshJob); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g.audit.Log(security.AuditEvent{Type: security.EventJobTrigger, Actor: "mcp", Detail: catalogRefreshJob})
	return mcp.NewToolResultText("catalogs refreshed"), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
