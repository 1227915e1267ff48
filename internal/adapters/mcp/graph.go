package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"continuity/internal/application"
	"continuity/internal/application/commands"
)

// RegisterGraphTools adds the read-only graph and history tools to the MCP server.
func RegisterGraphTools(s *server.MCPServer, engine *application.Engine) {
	s.AddTool(graphSnapshotTool(), graphSnapshotHandler(engine))
	s.AddTool(powerTimelineTool(), powerTimelineHandler(engine))
	s.AddTool(entityHistoryTool(), entityHistoryHandler(engine))
	s.AddTool(searchTool(), searchHandler(engine))
}

// --- graph_snapshot ---

func graphSnapshotTool() mcp.Tool {
	return mcp.NewTool("graph_snapshot",
		mcp.WithDescription("Return the knowledge graph as JSON: nodes, edges and power progressions."),
		mcp.WithBoolean("stats_only",
			mcp.Description("Return node and edge counts instead of the full graph"),
		),
	)
}

func graphSnapshotHandler(engine *application.Engine) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := engine.State(); err != nil {
			return toolError(err)
		}
		if req.GetBool("stats_only", false) {
			return jsonResult(engine.GraphStats())
		}
		return jsonResult(engine.GraphSnapshot())
	}
}

// --- power_timeline ---

func powerTimelineTool() mcp.Tool {
	return mcp.NewTool("power_timeline",
		mcp.WithDescription("Show a character's power progression, one line per change."),
		mcp.WithString("character_id",
			mcp.Description("Character id from the novel state"),
			mcp.Required(),
		),
	)
}

func powerTimelineHandler(engine *application.Engine) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("character_id", "")
		if id == "" {
			return toolError(fmt.Errorf("character_id is required"))
		}

		tl, err := engine.PowerTimeline(id)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "ch %d  %s  (baseline)\n", tl.BaselineChapter, tl.Baseline)
		for _, ev := range tl.Events {
			fmt.Fprintf(&sb, "ch %d  %s  %s", ev.ChapterNumber, ev.PowerLevel, ev.Type)
			if ev.Justification != "" {
				fmt.Fprintf(&sb, "  %q", ev.Justification)
			}
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- entity_history ---

func entityHistoryTool() mcp.Tool {
	return mcp.NewTool("entity_history",
		mcp.WithDescription("Return the state snapshots recorded for an entity, or its state as of a chapter."),
		mcp.WithString("type",
			mcp.Description("Entity type: character, item, technique, location, antagonist or world_rule"),
			mcp.Required(),
		),
		mcp.WithString("id",
			mcp.Description("Entity id"),
			mcp.Required(),
		),
		mcp.WithNumber("chapter",
			mcp.Description("Return the state as of this chapter instead of the full history"),
		),
	)
}

func entityHistoryHandler(engine *application.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewHistoryCommand(engine, req.GetString("type", ""), req.GetString("id", ""), req.GetInt("chapter", 0))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if result.Chapter > 0 {
			return jsonResult(result.StateAt)
		}
		return jsonResult(result.Snapshots)
	}
}

// --- search ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Find graph entities by name with fuzzy matching."),
		mcp.WithString("query",
			mcp.Description("Search query"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("Restrict to one entity type"),
		),
	)
}

func searchHandler(engine *application.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return toolError(fmt.Errorf("query is required"))
		}

		results, err := commands.NewSearchCommand(engine, query, req.GetString("type", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if len(results) == 0 {
			return mcp.NewToolResultText("No results found."), nil
		}

		var sb strings.Builder
		for _, r := range results {
			fmt.Fprintf(&sb, "%s  %s  %s\n", r.Node.ID, r.Node.Type, r.Node.Label)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
