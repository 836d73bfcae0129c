package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mikeboe/topic-report/pkg/analyst"
	"github.com/mikeboe/topic-report/pkg/clients"
	"github.com/mikeboe/topic-report/pkg/config"
)

const version = "1.0.0"

func main() {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stock-tools",
		Short: "Serve the stock analysis tools over MCP stdio",
		Long: `stock-tools exposes analyze_stock, save_code and run_code_and_show_plot to an MCP client over stdin/stdout.
Running saved code is disabled unless STOCK_TOOLS_ALLOW_EXEC=true.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return err
				}
			} else {
				_ = godotenv.Load()
			}

			cfg := config.Load()
			// stdout carries the protocol, so logs go to stderr.
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

			llm, err := clients.New(cmd.Context(), cfg)
			if err != nil {
				slog.Error("Failed to init completion client", "error", err)
				return err
			}

			tools := analyst.New(cfg, llm)
			slog.Info("Serving stock tools", "dir", tools.Dir, "exec", tools.AllowExec)
			return analyst.NewMCPServer(tools, version).Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of .env")

	if err := cmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
