// Package config loads the application configuration from the environment
// and resolves the Gemini API credential.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultModel is used when GEMINI_MODEL is not set.
	DefaultModel = "gemini-2.5-flash"

	// DefaultKeyFile is the local secrets file consulted when neither an
	// explicit key nor the environment provides one.
	DefaultKeyFile = "config/gemini_api_key.txt"

	// MaxFileSize is the largest accepted image upload (10 MB).
	MaxFileSize = 10 * 1024 * 1024
)

// supportedImageFormats are the file extensions accepted at the upload
// boundary.
var supportedImageFormats = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"}

// Config holds all configuration for the analyzer.
type Config struct {
	// Gemini configuration
	APIKey  string
	Model   string
	BaseURL string
	KeyFile string

	// Backend selection: "gemini" or "ollama"
	Backend string

	// Ollama configuration
	OllamaURL   string
	OllamaModel string

	// Report output
	OutputDir    string
	OutputPrefix string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is merged in first; real environment variables win.
func Load() *Config {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	return &Config{
		APIKey:  getEnv("GEMINI_API_KEY", ""),
		Model:   getEnv("GEMINI_MODEL", DefaultModel),
		BaseURL: getEnv("GEMINI_BASE_URL", ""),
		KeyFile: getEnv("GEMINI_API_KEY_FILE", DefaultKeyFile),

		Backend: getEnv("ANALYZER_BACKEND", "gemini"),

		OllamaURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", ""),

		OutputDir:    getEnv("OUTPUT_DIR", "./reports"),
		OutputPrefix: getEnv("OUTPUT_PREFIX", "analysis"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ResolveAPIKey resolves the credential with the priority explicit input >
// environment > local key file. An empty result means no credential was
// found anywhere; callers treat that as a configuration error.
func (c *Config) ResolveAPIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c.APIKey != "" {
		return c.APIKey
	}
	return readKeyFile(c.KeyFile)
}

func readKeyFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("backend must be gemini or ollama, got %q", c.Backend)
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.OutputPrefix == "" {
		return fmt.Errorf("output_prefix cannot be empty")
	}
	return nil
}

// ValidImageFormat checks whether the file extension is an accepted upload
// format.
func ValidImageFormat(filename string) bool {
	if filename == "" {
		return false
	}

	parts := strings.Split(strings.ToLower(filename), ".")
	if len(parts) < 2 {
		return false
	}
	ext := parts[len(parts)-1]

	for _, f := range supportedImageFormats {
		if ext == f {
			return true
		}
	}
	return false
}

// ValidFileSize checks whether the upload size is within limits.
func ValidFileSize(size int64) bool {
	return size <= MaxFileSize
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
