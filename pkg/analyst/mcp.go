package analyst

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ServerName = "financial-analyst"

type AnalyzeInput struct {
	Query string `json:"query" jsonschema:"the stock request, naming the symbols, the timeframe and the action (plot, analyze, compare)"`
}

type SaveInput struct {
	Code string `json:"code" jsonschema:"complete, executable Python code"`
}

type Result struct {
	Result string `json:"result"`
}

// NewMCPServer exposes the tools over MCP. Tool failures are reported in
// the result text as "Error: ..." rather than as protocol errors.
func NewMCPServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name: "analyze_stock",
			Description: "Analyzes stock market data based on the query and generates executable Python code for " +
				"analysis and visualization. The query must contain the stock symbol, the timeframe and the action to perform.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, Result, error) {
			code, err := t.Analyze(ctx, in.Query)
			return toolResult(code, err)
		},
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "save_code",
			Description: "Saves the given Python code to " + CodeFile + ", replacing any previous content.",
		},
		func(_ context.Context, _ *mcp.CallToolRequest, in SaveInput) (*mcp.CallToolResult, Result, error) {
			return toolResult(SavedMessage, t.SaveCode(in.Code))
		},
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "run_code_and_show_plot",
			Description: "Runs the code in " + CodeFile + " and generates the plot.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, Result, error) {
			out, err := t.RunCode(ctx)
			return toolResult(out, err)
		},
	)

	return server
}

func toolResult(text string, err error) (*mcp.CallToolResult, Result, error) {
	if err != nil {
		text = "Error: " + err.Error()
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, Result{Result: text}, nil
}
