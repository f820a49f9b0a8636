package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kalambet/persona/internal/chat"
	"github.com/kalambet/persona/internal/profile"
	"github.com/kalambet/persona/internal/provider"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T, p provider.Provider) MCPDeps {
	t.Helper()
	prof, err := profile.Load("../profile/testdata/full.json")
	require.NoError(t, err)

	return MCPDeps{
		Chat:    chat.NewService("SYSTEM PROMPT", p),
		Profile: prof,
		Welcome: "Hello!",
		Version: "test",
		Logger:  zaptest.NewLogger(t),
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_Ask(t *testing.T) {
	stub := &stubProvider{reply: "I know English and Spanish."}
	handler := mcpAsk(newTestMCPDeps(t, stub))

	req := makeCallToolRequest("ask", map[string]interface{}{
		"message": "What languages do you know?",
		"history": `[{"role":"user","content":"Hi"},{"role":"assistant","content":"Hello!"}]`,
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "I know English and Spanish." {
		t.Errorf("text = %q", got)
	}

	want := []provider.Message{
		{Role: provider.RoleSystem, Content: "SYSTEM PROMPT"},
		{Role: provider.RoleUser, Content: "Hi"},
		{Role: provider.RoleAssistant, Content: "Hello!"},
		{Role: provider.RoleUser, Content: "What languages do you know?"},
	}
	if diff := cmp.Diff(want, stub.got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if stub.reqID == "" {
		t.Error("no request id propagated")
	}
}

func TestMCPTool_Ask_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		err  error
		want string
	}{
		{"missing message", map[string]interface{}{}, nil, "message is required"},
		{"bad history", map[string]interface{}{"message": "hi", "history": "{"}, nil, "invalid history JSON"},
		{"system history", map[string]interface{}{"message": "hi", "history": `[{"role":"system","content":"x"}]`}, nil, "role must be"},
		{"upstream", map[string]interface{}{"message": "hi"}, &provider.UpstreamError{Provider: "Anthropic", Message: "overloaded"}, "Anthropic API error: overloaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := mcpAsk(newTestMCPDeps(t, &stubProvider{err: tt.err}))
			result, err := handler(context.Background(), makeCallToolRequest("ask", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected tool error")
			}
			if got := toolText(t, result); !strings.Contains(got, tt.want) {
				t.Errorf("text = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestMCPTool_Welcome(t *testing.T) {
	handler := mcpWelcome(newTestMCPDeps(t, &stubProvider{}))
	result, err := handler(context.Background(), makeCallToolRequest("welcome", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "Hello!" {
		t.Errorf("text = %q", got)
	}
}

func TestMCPResource_Profile(t *testing.T) {
	handler := mcpResourceProfile(newTestMCPDeps(t, &stubProvider{}))

	contents, err := handler(context.Background(), makeReadResourceRequest("profile://me"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "profile://me" || tc.MIMEType != "application/json" {
		t.Errorf("URI=%q MIMEType=%q", tc.URI, tc.MIMEType)
	}

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &got))
	if got["name"] != "Ada Marlow" {
		t.Errorf("name = %v", got["name"])
	}
}

func TestNewMCPServer_ListsTools(t *testing.T) {
	s := NewMCPServer(newTestMCPDeps(t, &stubProvider{}))

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{`"ask"`, `"welcome"`} {
		if !strings.Contains(string(b), name) {
			t.Errorf("tools/list missing %s: %s", name, b)
		}
	}
}
