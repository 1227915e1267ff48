package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"continuity/internal/application/commands"
	"continuity/internal/powerlevel"
)

// RegisterLevelTools adds the power level tools to the MCP server.
// They work without a loaded novel.
func RegisterLevelTools(s *server.MCPServer, levels *powerlevel.System) {
	s.AddTool(parseLevelTool(levels), parseLevelHandler(levels))
	s.AddTool(compareLevelsTool(levels), compareLevelsHandler(levels))
	s.AddTool(validateProgressionTool(levels), validateProgressionHandler(levels))
}

func categoryParam(levels *powerlevel.System) mcp.ToolOption {
	return mcp.WithString("category",
		mcp.Description(fmt.Sprintf("Power system category (%s). Defaults to %s.",
			strings.Join(levels.Categories(), ", "), levels.DefaultCategoryName())),
	)
}

// --- parse_level ---

func parseLevelTool(levels *powerlevel.System) mcp.Tool {
	return mcp.NewTool("parse_level",
		mcp.WithDescription("Parse a free-text power level (e.g. \"early Foundation Building\") into its stage, order and sub-stage."),
		mcp.WithString("level",
			mcp.Description("Power level text"),
			mcp.Required(),
		),
		categoryParam(levels),
	)
}

func parseLevelHandler(levels *powerlevel.System) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewParseLevelCommand(levels, req.GetString("level", ""), req.GetString("category", ""))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if !result.Known {
			return mcp.NewToolResultText(fmt.Sprintf("%q is not a known %s level", result.Input, result.Category)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s  stage %d of %s\n", result.Normalized, result.Order, result.Category)
		if result.SubStage != "" {
			fmt.Fprintf(&sb, "sub-stage: %s\n", result.SubStage)
		}
		if result.NextStage != "" {
			fmt.Fprintf(&sb, "next stage: %s\n", result.NextStage)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- compare_levels ---

func compareLevelsTool(levels *powerlevel.System) mcp.Tool {
	return mcp.NewTool("compare_levels",
		mcp.WithDescription("Order two power levels in the same category."),
		mcp.WithString("a",
			mcp.Description("First level"),
			mcp.Required(),
		),
		mcp.WithString("b",
			mcp.Description("Second level"),
			mcp.Required(),
		),
		categoryParam(levels),
	)
}

func compareLevelsHandler(levels *powerlevel.System) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewCompareLevelsCommand(levels, req.GetString("a", ""), req.GetString("b", ""), req.GetString("category", ""))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if result.Comparable && result.StageDelta != 0 {
			return mcp.NewToolResultText(fmt.Sprintf("%s (%+d stages)", result.Message, result.StageDelta)), nil
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- validate_progression ---

func validateProgressionTool(levels *powerlevel.System) mcp.Tool {
	return mcp.NewTool("validate_progression",
		mcp.WithDescription("Check whether a character moving from one power level to another over some chapters is plausible."),
		mcp.WithString("previous",
			mcp.Description("Level before the change"),
			mcp.Required(),
		),
		mcp.WithString("current",
			mcp.Description("Level after the change"),
			mcp.Required(),
		),
		mcp.WithNumber("chapters_elapsed",
			mcp.Description("Chapters between the two levels"),
			mcp.Required(),
		),
		mcp.WithBoolean("has_event",
			mcp.Description("Whether the text shows a breakthrough event"),
		),
		categoryParam(levels),
	)
}

func validateProgressionHandler(levels *powerlevel.System) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewCheckProgressionCommand(levels,
			req.GetString("previous", ""),
			req.GetString("current", ""),
			req.GetInt("chapters_elapsed", 0),
			req.GetBool("has_event", false),
			req.GetString("category", ""),
		)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		if result.Valid {
			sb.WriteString("valid")
		} else {
			sb.WriteString("invalid")
		}
		fmt.Fprintf(&sb, " (stage delta %+d)\n", result.Delta)
		for _, f := range result.Issues {
			fmt.Fprintf(&sb, "issue   %s: %s\n", f.Kind, f.Message)
		}
		for _, f := range result.Warnings {
			fmt.Fprintf(&sb, "warning %s: %s\n", f.Kind, f.Message)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
