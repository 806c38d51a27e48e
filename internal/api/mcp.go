package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/5hiel/artistic-minds-sub002/internal/engine"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
	"github.com/5hiel/artistic-minds-sub002/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Profiles *profile.Manager
	Engine   *engine.Engine
}

// NewMCPServer creates an MCP server with all minds tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"minds",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("minds — adaptive puzzle selection tuned to the local user profile."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("next_puzzle",
			mcp.WithDescription("Select the next puzzle adapted to the user's current skill, engagement, and preferences."),
		),
		mcpNextPuzzle(deps),
	)

	s.AddTool(
		mcp.NewTool("record_completion",
			mcp.WithDescription("Record the outcome of a puzzle attempt so future selections adapt."),
			mcp.WithString("puzzle_id", mcp.Description("ID of the completed puzzle"), mcp.Required()),
			mcp.WithBoolean("success", mcp.Description("Whether the puzzle was solved correctly"), mcp.Required()),
			mcp.WithNumber("solve_time_ms", mcp.Description("Time spent solving, in milliseconds")),
			mcp.WithNumber("engagement", mcp.Description("Engagement estimate in [0, 1] (default 0.7)")),
		),
		mcpRecordCompletion(deps),
	)

	s.AddTool(
		mcp.NewTool("set_type_preference",
			mcp.WithDescription("Mark a puzzle type as liked or disliked by the user."),
			mcp.WithString("type", mcp.Description("Puzzle type name (e.g. pattern, analogy)"), mcp.Required()),
			mcp.WithBoolean("liked", mcp.Description("true to prefer the type, false to remove it (default true)")),
		),
		mcpSetTypePreference(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"User Profile",
			mcp.WithResourceDescription("Current adaptive user profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://recent",
			"Recent Completions",
			mcp.WithResourceDescription("Last 10 recorded puzzle completions"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpNextPuzzle(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec, err := deps.Engine.NextPuzzle(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("no puzzle available: %v", err)), nil
		}

		b, err := json.Marshal(rec)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal recommendation: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecordCompletion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		puzzleID, err := req.RequireString("puzzle_id")
		if err != nil {
			return mcpError("puzzle_id is required"), nil
		}
		success, err := req.RequireBool("success")
		if err != nil {
			return mcpError("success is required"), nil
		}

		solveTimeMs := req.GetFloat("solve_time_ms", 0)
		engagement := req.GetFloat("engagement", 0.7)
		if engagement < 0 || engagement > 1 {
			return mcpError("engagement must be in [0, 1]"), nil
		}

		deps.Engine.RecordCompletion(ctx, puzzleID, success,
			time.Duration(solveTimeMs)*time.Millisecond, engagement)

		p := deps.Profiles.GetProfile()
		return mcpText(fmt.Sprintf("Recorded %s (success=%v). Skill %.2f, accuracy %.2f over %d puzzles.",
			puzzleID, success, p.SkillLevel, p.OverallAccuracy, p.TotalPuzzlesSolved)), nil
	}
}

func mcpSetTypePreference(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typeName, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		if !puzzle.Enabled(typeName) {
			return mcpError(fmt.Sprintf("unknown puzzle type %q; valid types: %v", typeName, puzzle.EnabledTypes())), nil
		}

		liked := req.GetBool("liked", true)
		deps.Profiles.UpdateTypePreference(typeName, liked)

		if liked {
			return mcpText(fmt.Sprintf("Marked %s as preferred", typeName)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s from preferred types", typeName)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Profiles.GetProfile())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		completions, err := deps.Store.RecentCompletions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent completions: %w", err)
		}

		type completionSummary struct {
			PuzzleID   string  `json:"puzzle_id"`
			PuzzleType string  `json:"puzzle_type"`
			Success    bool    `json:"success"`
			Difficulty float64 `json:"difficulty"`
			CreatedAt  string  `json:"created_at"`
		}

		summaries := make([]completionSummary, len(completions))
		for i, c := range completions {
			summaries[i] = completionSummary{
				PuzzleID:   c.PuzzleID,
				PuzzleType: c.PuzzleType,
				Success:    c.Success,
				Difficulty: c.Difficulty,
				CreatedAt:  c.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal completions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
