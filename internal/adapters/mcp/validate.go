// Package mcp exposes the consistency engine as MCP tools so a generation
// agent can validate chapters without shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"continuity/internal/application"
	"continuity/internal/application/commands"
	"continuity/internal/ports"
)

// RegisterValidationTools adds the session and validation tools to the MCP server.
// store may be nil, in which case resume and save are rejected.
func RegisterValidationTools(s *server.MCPServer, engine *application.Engine, source ports.NovelSource, store ports.SnapshotStore) {
	s.AddTool(loadNovelTool(), loadNovelHandler(engine, source, store))
	s.AddTool(validatePreTool(), validatePreHandler(engine))
	s.AddTool(validatePostTool(), validatePostHandler(engine, source, store))
}

// --- load_novel ---

func loadNovelTool() mcp.Tool {
	return mcp.NewTool("load_novel",
		mcp.WithDescription("Load a novel state file (YAML or JSON) and build the knowledge graph. Must be called before validating."),
		mcp.WithString("path",
			mcp.Description("Path to the novel state file"),
			mcp.Required(),
		),
		mcp.WithBoolean("resume",
			mcp.Description("Resume the session saved for this novel, restoring power timelines and state history"),
		),
	)
}

func loadNovelHandler(engine *application.Engine, source ports.NovelSource, store ports.SnapshotStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewLoadCommand(engine, source, store, req.GetString("path", ""), req.GetBool("resume", false))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- validate_pre ---

func validatePreTool() mcp.Tool {
	return mcp.NewTool("validate_pre",
		mcp.WithDescription("Check that the loaded novel has enough context to generate the next chapter. Returns a JSON report with issues, score and context completeness."),
	)
}

func validatePreHandler(engine *application.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := commands.NewPreValidateCommand(engine).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(report)
	}
}

// --- validate_post ---

func validatePostTool() mcp.Tool {
	return mcp.NewTool("validate_post",
		mcp.WithDescription("Check a generated chapter and its extracted changes against the knowledge graph, then apply them. Provide either a file path or the chapter as inline JSON."),
		mcp.WithString("path",
			mcp.Description("Path to a generated chapter file (chapter plus payload)"),
		),
		mcp.WithString("chapter",
			mcp.Description(`Inline JSON: {"chapter": {"id", "number", "content"}, "payload": {"characterUpserts": [...]}}`),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Only report issues; leave the graph and history unchanged"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Persist the session after applying the chapter"),
		),
	)
}

func validatePostHandler(engine *application.Engine, source ports.NovelSource, store ports.SnapshotStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		inline := req.GetString("chapter", "")

		var cmd *commands.PostValidateCommand
		switch {
		case path != "" && inline != "":
			return toolError(fmt.Errorf("pass either path or chapter, not both"))
		case inline != "":
			var gen application.GeneratedChapter
			dec := json.NewDecoder(strings.NewReader(inline))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&gen); err != nil {
				return toolError(fmt.Errorf("invalid chapter JSON: %w", err))
			}
			if gen.Payload.ChapterID == "" {
				gen.Payload.ChapterID = gen.Chapter.ID
			}
			cmd = commands.NewPostValidateCommandFor(engine, store, &gen)
		default:
			cmd = commands.NewPostValidateCommand(engine, source, store, path)
		}
		cmd.DryRun = req.GetBool("dry_run", false)
		cmd.Save = req.GetBool("save", false)

		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(struct {
			Message string                    `json:"message"`
			Report  *application.Report       `json:"report"`
			Update  *application.UpdateResult `json:"update,omitempty"`
			Saved   bool                      `json:"saved"`
		}{result.Message, result.Report, result.Update, result.Saved})
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("encoding result: %w", err))
	}
	return mcp.NewToolResultText(string(data)), nil
}
