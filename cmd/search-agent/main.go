package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mikeboe/search-agent/pkg/clients"
	"github.com/mikeboe/search-agent/pkg/config"
	"github.com/mikeboe/search-agent/pkg/mcpserver"
	"github.com/mikeboe/search-agent/pkg/research"
	"github.com/mikeboe/search-agent/pkg/research/tools"
)

const version = "0.1.0"

var question string

func newEngine(ctx context.Context, cfg *config.Config) (*research.Engine, error) {
	gen := clients.NewGenerator(ctx, cfg)
	return research.NewEngine(research.ConfigFrom(cfg), tools.NewProviders(cfg), gen)
}

// readQuestion reads one line. A final line without a newline is accepted.
func readQuestion(r io.Reader) (string, error) {
	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func main() {
	cfg := config.Load()

	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))

	rootCmd := &cobra.Command{
		Use:   "search-agent",
		Short: "A terminal-based multi-source research agent",
		Long: `search-agent answers a question by searching Google, DuckDuckGo and Reddit in parallel,
reading the most relevant Reddit threads, checking official sources against community opinion
and synthesizing one report.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("question") {
				// Interactive Mode
				fmt.Print("What do you want to research? ")
				input, err := readQuestion(os.Stdin)
				if err != nil {
					slog.Error("Failed to read question", "error", err)
					os.Exit(1)
				}
				question = input
			}
			question = strings.TrimSpace(question)
			if question == "" {
				slog.Error("Question cannot be empty")
				os.Exit(1)
			}

			engine, err := newEngine(cmd.Context(), cfg)
			if err != nil {
				slog.Error("Error initializing engine", "error", err)
				os.Exit(1)
			}

			answer, err := engine.Run(cmd.Context(), question)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			banner := strings.Repeat("=", 50)
			fmt.Printf("\n%s\nFINAL RESEARCH REPORT\n%s\n\n%s\n", banner, banner, answer)
		},
	}
	rootCmd.Flags().StringVarP(&question, "question", "q", "", "The research question")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the research tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

			engine, err := newEngine(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to init engine: %w", err)
			}
			engine.Logger = slog.Default()

			srv := mcpserver.NewServer(engine, version)
			slog.Info("Starting MCP server over stdio")
			return srv.MCPServer.Run(cmd.Context(), &sdkmcp.StdioTransport{})
		},
	}
	rootCmd.AddCommand(mcpCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
