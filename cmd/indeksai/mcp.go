package main

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/indeksai/indeksai/internal/assistant"
	"github.com/indeksai/indeksai/internal/conversation"
)

// --- MCP Command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing:
  ihsg_latest   narrated latest IHSG close
  ihsg_weekly   narrated last week of trading with statistics
  ask_indeks    a conversational turn (history kept for the server's lifetime)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		s := server.NewMCPServer("indeksai", version, server.WithToolCapabilities(true))
		registerTools(s, newToolSession(a.assistant))
		return server.ServeStdio(s)
	},
}

// toolSession is the state shared by every tool call of one MCP server.
// mcp-go may dispatch calls concurrently; turns are serialised.
type toolSession struct {
	assistant *assistant.Assistant
	mu        sync.Mutex
	store     *conversation.Store
}

func newToolSession(a *assistant.Assistant) *toolSession {
	return &toolSession{assistant: a, store: conversation.NewStore()}
}

func registerTools(s *server.MCPServer, ts *toolSession) {
	s.AddTool(createLatestTool(), handleLatest(ts))
	s.AddTool(createWeeklyTool(), handleWeekly(ts))
	s.AddTool(createAskTool(), handleAsk(ts))
}

// --- Tool definitions ---

func createLatestTool() mcp.Tool {
	return mcp.NewTool("ihsg_latest",
		mcp.WithDescription("Get the latest IHSG (IDX Composite) close with change versus the previous close, narrated in Bahasa Indonesia."),
	)
}

func createWeeklyTool() mcp.Tool {
	return mcp.NewTool("ihsg_weekly",
		mcp.WithDescription("Get the last 7 trading days of IHSG with period change, high/low, trend and a daily table, narrated in Bahasa Indonesia."),
	)
}

func createAskTool() mcp.Tool {
	return mcp.NewTool("ask_indeks",
		mcp.WithDescription("Ask Indeks AI a question about the Indonesian capital market. Earlier questions are remembered until reset."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question, preferably in Bahasa Indonesia (e.g. 'IHSG hari ini?', 'Apa itu saham?')"),
		),
		mcp.WithBoolean("reset",
			mcp.Description("Clear the conversation before asking"),
		),
	)
}

// --- Handlers ---

func handleLatest(ts *toolSession) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return responseResult(ts.assistant.Latest(ctx)), nil
	}
}

func handleWeekly(ts *toolSession) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return responseResult(ts.assistant.Weekly(ctx)), nil
	}
}

func handleAsk(ts *toolSession) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || question == "" {
			return errorResult("Error: question parameter is required"), nil
		}

		ts.mu.Lock()
		defer ts.mu.Unlock()
		if request.GetBool("reset", false) {
			ts.store.Clear()
		}
		reply := ts.assistant.Respond(ctx, ts.store, question)
		return responseResult(reply.Response), nil
	}
}

// --- Helpers ---

// responseResult flags apologies as tool errors so the calling model does
// not mistake them for data.
func responseResult(resp assistant.Response) *mcp.CallToolResult {
	if resp.Mode == assistant.ModeErrorFallback {
		return errorResult(resp.Text)
	}
	return textResult(resp.Text)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
