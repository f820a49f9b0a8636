package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kalambet/persona/internal/chat"
	"github.com/kalambet/persona/internal/profile"
	"github.com/kalambet/persona/internal/provider"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Chat    *chat.Service
	Profile profile.Profile
	Welcome string
	Version string
	Logger  *zap.Logger
}

// NewMCPServer creates an MCP server exposing the assistant as tools and the
// profile as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		"persona",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions(fmt.Sprintf("Ask questions about %s's professional background.", deps.Profile.Name)),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription(fmt.Sprintf("Ask the assistant representing %s a question about their experience, skills, education or availability.", deps.Profile.Name)),
			mcp.WithString("message", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithString("history", mcp.Description("Optional JSON array of prior {role, content} turns")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("welcome",
			mcp.WithDescription("Return the assistant's greeting."),
		),
		mcpWelcome(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://me",
			"Professional Profile",
			mcp.WithResourceDescription("The profile the assistant represents, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || message == "" {
			return mcpError("message is required"), nil
		}

		var history []provider.Message
		if raw := req.GetString("history", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				return mcpError(fmt.Sprintf("invalid history JSON: %v", err)), nil
			}
			if err := validateHistory(history); err != nil {
				return mcpError(err.Error()), nil
			}
		}

		id := uuid.New().String()
		ex, err := deps.Chat.Handle(provider.ContextWithRequestID(ctx, id), message, history)
		if err != nil {
			deps.Logger.Warn("mcp ask failed", zap.String("request_id", id), zap.Error(err))
			return mcpError(err.Error()), nil
		}
		return mcpText(ex.Response), nil
	}
}

func mcpWelcome(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpText(deps.Welcome), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Profile)
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
