package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the CLI, server and tool server need. It is
// built once in main and passed down explicitly.
type Config struct {
	// Completion provider
	LLMProvider    string
	LLMApiKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int

	// Search provider
	SerperApiKey   string
	SerperURL      string
	SearchLimit    int
	AcademicSource string

	// Pipeline
	PipelineVariant string
	PipelineFile    string
	ReportDir       string

	// Process
	LogLevel    string
	Port        string
	HTTPTimeout time.Duration

	// Stock tool server
	StockToolsDir         string
	StockToolsAllowExec   bool
	StockToolsInterpreter string
	StockToolsTimeout     time.Duration
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

func Load() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))

	return &Config{
		LLMProvider:    provider,
		LLMApiKey:      llmApiKey(provider),
		LLMBaseURL:     getEnv("LLM_BASE_URL", defaultBaseURL(provider)),
		LLMModel:       getEnv("LLM_MODEL", defaultModel(provider)),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1000),

		SerperApiKey:   getEnv("SERPER_API_KEY", ""),
		SerperURL:      getEnv("SERPER_URL", "https://google.serper.dev/search"),
		SearchLimit:    getEnvAsInt("SEARCH_LIMIT", 5),
		AcademicSource: strings.ToLower(getEnv("ACADEMIC_SOURCE", "serper")),

		PipelineVariant: getEnv("PIPELINE_VARIANT", "parallel"),
		PipelineFile:    getEnv("PIPELINE_FILE", ""),
		ReportDir:       getEnv("REPORT_DIR", ""),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "8081"),
		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 60*time.Second),

		StockToolsDir:         getEnv("STOCK_TOOLS_DIR", "."),
		StockToolsAllowExec:   getEnvAsBool("STOCK_TOOLS_ALLOW_EXEC", false),
		StockToolsInterpreter: getEnv("STOCK_TOOLS_INTERPRETER", "python3"),
		StockToolsTimeout:     getEnvAsDuration("STOCK_TOOLS_TIMEOUT", 2*time.Minute),
	}
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// llmApiKey picks the credential for the selected provider. LLM_API_KEY
// always wins so a single variable can be used in containers.
func llmApiKey(provider string) string {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key
	}
	switch provider {
	case ProviderAnthropic:
		return getEnv("ANTHROPIC_API_KEY", "")
	case ProviderGemini:
		return getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", ""))
	default:
		return getEnv("OPENROUTER_API_KEY", getEnv("OPENAI_API_KEY", ""))
	}
}

func defaultBaseURL(provider string) string {
	if provider == ProviderOpenAI {
		return "https://openrouter.ai/api/v1"
	}
	return ""
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-20241022"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "moonshotai/kimi-k2"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
