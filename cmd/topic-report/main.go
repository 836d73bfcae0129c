package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/topic-report/pkg/clients"
	"github.com/mikeboe/topic-report/pkg/config"
	"github.com/mikeboe/topic-report/pkg/research"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "topic-report [topic...]",
		Short: "Build a 360° report on a topic",
		Long: `topic-report researches a topic from several angles (academic work, recent news and industry
activity) and merges the findings into a single report printed to the terminal.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(envFile); err != nil {
				return err
			}
			cfg := config.Load()
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

			topic, err := readTopic(args, in, out)
			if err != nil {
				slog.Error("Topic cannot be empty")
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, topic, out)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of .env")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, topic string, out io.Writer) error {
	llm, err := clients.New(ctx, cfg)
	if err != nil {
		slog.Error("Error initializing completion client", "error", err)
		return err
	}

	engine, err := research.NewEngine(cfg, llm)
	if err != nil {
		slog.Error("Error initializing engine", "error", err)
		return err
	}
	engine.Out = out

	slog.Info("Starting research", "topic", topic, "graph", engine.Graph.Name)
	if _, err := engine.Run(ctx, topic); err != nil {
		slog.Error("Error running research", "error", err)
		return err
	}
	return nil
}

// loadEnv reads an explicit env file, or .env when present.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

// readTopic joins the positional arguments, or prompts for a topic when
// there are none.
func readTopic(args []string, in io.Reader, out io.Writer) (string, error) {
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" && len(args) == 0 {
		fmt.Fprint(out, "Enter a topic to analyze: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read topic: %w", err)
		}
		topic = strings.TrimSpace(line)
	}
	if topic == "" {
		return "", research.ErrEmptyTopic
	}
	return topic, nil
}
