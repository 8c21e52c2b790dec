// Package geminianalyzer provides multimodal image analysis backed by Google
// Gemini vision models, with an optional local Ollama backend.
//
// The package normalizes heterogeneous image inputs (file path, in-memory
// bytes, readable stream), assembles a multi-part request combining the image
// with a natural-language instruction, dispatches it to the selected model,
// and returns the textual analysis.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		geminianalyzer "github.com/sundae-ai/gemini-analyzer"
//	)
//
//	func main() {
//		analyzer, err := geminianalyzer.New("your-api-key")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		text, err := analyzer.AnalyzeFile(context.Background(), "chart.png",
//			"Describe the trend visible in this chart.")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Println(text)
//	}
//
// The package consists of three main components:
//
// 1. Input (pkg/input): image-input variants and normalization
// 2. Gemini (pkg/gemini): the remote analysis client
// 3. Ollama (pkg/ollama): a local vision backend with the same contract
//
// The credential is resolved with the priority explicit argument >
// GEMINI_API_KEY (a .env file is honored) > local key file, and is passed
// explicitly to the transport; the process environment is never mutated.
package geminianalyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sundae-ai/gemini-analyzer/internal/config"
	"github.com/sundae-ai/gemini-analyzer/internal/utils"
	"github.com/sundae-ai/gemini-analyzer/pkg/client"
	"github.com/sundae-ai/gemini-analyzer/pkg/gemini"
	"github.com/sundae-ai/gemini-analyzer/pkg/input"
	"github.com/sundae-ai/gemini-analyzer/pkg/ollama"
)

// Version of the gemini analyzer library
const Version = "1.0.0"

// Analyzer provides a high-level interface for multimodal image analysis.
type Analyzer struct {
	backend client.VisionAnalyzer
	cfg     *config.Config
}

// New creates an Analyzer against the Gemini backend. The API key may be
// empty, in which case it is resolved from the environment or the local key
// file; if no credential is found anywhere, gemini.ErrMissingCredential is
// returned.
func New(apiKey string) (*Analyzer, error) {
	cfg := config.Load()
	cfg.APIKey = cfg.ResolveAPIKey(apiKey)
	cfg.Backend = "gemini"
	return NewWithConfig(cfg)
}

// NewWithConfig creates an Analyzer from an explicit configuration,
// selecting the backend it names.
func NewWithConfig(cfg *config.Config) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	return &Analyzer{backend: backend, cfg: cfg}, nil
}

// NewWithBackend wraps an existing backend. Used when the caller constructs
// the client itself (custom transport, tests).
func NewWithBackend(backend client.VisionAnalyzer, cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.Load()
	}
	return &Analyzer{backend: backend, cfg: cfg}
}

// Analyze submits an image input with an instruction and returns the model's
// text verbatim.
func (a *Analyzer) Analyze(ctx context.Context, img input.Input, instruction string) (string, error) {
	return a.backend.Analyze(ctx, img, instruction)
}

// AnalyzeFile analyzes the image file at path.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path, instruction string) (string, error) {
	return a.backend.Analyze(ctx, input.FromPath(path), instruction)
}

// AnalyzeBytes analyzes an in-memory image payload.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte, instruction string) (string, error) {
	return a.backend.Analyze(ctx, input.FromBytes(data), instruction)
}

// AnalyzeReader analyzes an image read from r. Seekable readers are left at
// their pre-call position so the caller can reuse them.
func (a *Analyzer) AnalyzeReader(ctx context.Context, r io.Reader, instruction string) (string, error) {
	return a.backend.Analyze(ctx, input.FromReader(r), instruction)
}

// AnalyzeDefault analyzes an image with the backend's generic instruction.
func (a *Analyzer) AnalyzeDefault(ctx context.Context, img input.Input) (string, error) {
	return a.backend.AnalyzeDefault(ctx, img)
}

// Probe reports whether the backend is reachable and authorized.
func (a *Analyzer) Probe(ctx context.Context) bool {
	return a.backend.Probe(ctx)
}

// SetModel switches the active model for subsequent calls.
func (a *Analyzer) SetModel(model string) error {
	return a.backend.SetModel(model)
}

// Model returns the active model identifier.
func (a *Analyzer) Model() string {
	return a.backend.Model()
}

// SupportedModels lists the backend's model allow-list in stable order.
func (a *Analyzer) SupportedModels() []string {
	return a.backend.SupportedModels()
}

// SaveReport writes the analysis text next to the configured output
// directory as <prefix>_<original-image-name>.txt and returns the path.
func (a *Analyzer) SaveReport(text, imagePath string) (string, error) {
	if err := utils.EnsureDir(a.cfg.OutputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(a.cfg.OutputDir, utils.ReportFilename(imagePath, a.cfg.OutputPrefix))
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func buildBackend(cfg *config.Config) (client.VisionAnalyzer, error) {
	switch cfg.Backend {
	case "ollama":
		return ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel)
	default:
		if cfg.APIKey == "" {
			return nil, gemini.ErrMissingCredential
		}

		opts := []gemini.Option{gemini.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		return gemini.NewClient(cfg.APIKey, opts...)
	}
}
