package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mikeboe/topic-report/pkg/clients"
	"github.com/mikeboe/topic-report/pkg/config"
)

// CodeFile is the file save_code writes and run_code_and_show_plot executes.
const CodeFile = "stock_analysis.py"

const (
	SavedMessage     = "Code saved successfully"
	GeneratedMessage = "Plot generated successfully"
)

var (
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrExecutionDisabled = errors.New("code execution is disabled, set STOCK_TOOLS_ALLOW_EXEC=true to enable it")
	ErrNoSavedCode       = errors.New("no saved code, call save_code first")
)

type Tools struct {
	LLM         clients.Completer
	Dir         string
	AllowExec   bool
	Interpreter string
	Timeout     time.Duration
	Logger      *slog.Logger

	// mu serializes access to the code file.
	mu sync.Mutex
}

func New(cfg *config.Config, llm clients.Completer) *Tools {
	return &Tools{
		LLM:         llm,
		Dir:         cfg.StockToolsDir,
		AllowExec:   cfg.StockToolsAllowExec,
		Interpreter: cfg.StockToolsInterpreter,
		Timeout:     cfg.StockToolsTimeout,
		Logger:      slog.Default(),
	}
}

// CodePath is where the saved analysis code lives.
func (t *Tools) CodePath() string {
	dir := t.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, CodeFile)
}

// Analyze asks the model for a Python script answering query and returns
// it cleaned of tables and code fences.
func (t *Tools) Analyze(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	out, err := t.LLM.Complete(ctx, []clients.Message{
		clients.System(analystSystemPrompt),
		clients.User(analystUserPrompt(query)),
	}, clients.Options{})
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis code: %w", err)
	}

	code := CleanOutput(out)
	t.logger().Info("Generated analysis code", "query", query, "bytes", len(code))
	return code, nil
}

// SaveCode overwrites the code file with code.
func (t *Tools) SaveCode(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.CodePath()
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	t.logger().Info("Saved analysis code", "path", path, "bytes", len(code))
	return nil
}

// RunCode executes the saved code in a subprocess and returns the success
// message followed by whatever the process printed.
func (t *Tools) RunCode(ctx context.Context) (string, error) {
	if !t.AllowExec {
		return "", ErrExecutionDisabled
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := os.Stat(t.CodePath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoSavedCode
		}
		return "", fmt.Errorf("failed to stat code file: %w", err)
	}

	dir, err := filepath.Abs(filepath.Dir(t.CodePath()))
	if err != nil {
		return "", fmt.Errorf("failed to resolve workdir: %w", err)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	interpreter := t.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}

	cmd := exec.CommandContext(ctx, interpreter, CodeFile)
	cmd.Dir = dir
	cmd.WaitDelay = 2 * time.Second
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"MPLBACKEND=Agg",
	}

	start := time.Now()
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("code execution timed out after %s", t.Timeout)
		}
		if output != "" {
			return "", fmt.Errorf("code execution failed: %w: %s", err, output)
		}
		return "", fmt.Errorf("code execution failed: %w", err)
	}

	t.logger().Info("Ran analysis code", "interpreter", interpreter, "duration", time.Since(start))
	if output == "" {
		return GeneratedMessage, nil
	}
	return GeneratedMessage + "\n" + output, nil
}

// CleanOutput drops table rows, rules and fence lines from model output,
// then strips any remaining triple backticks.
func CleanOutput(s string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && strings.ContainsRune("+|-`", rune(trimmed[0])) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.ReplaceAll(strings.Join(kept, "\n"), "```", ""))
}

func (t *Tools) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

const analystSystemPrompt = `You are a senior financial analyst and Python developer.
You turn questions about stocks into a single self-contained Python script that downloads the data with yfinance,
analyzes it with pandas and plots it with matplotlib. Reply with the script only.`

func analystUserPrompt(query string) string {
	return fmt.Sprintf(`Write a Python script for the following request: %s

The script must identify the stock symbols and timeframe from the request, fetch the data, compute the requested
analysis, and save the plot to a PNG file in the current directory before calling plt.show().`, query)
}
