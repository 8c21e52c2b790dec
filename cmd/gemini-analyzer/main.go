package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	geminianalyzer "github.com/sundae-ai/gemini-analyzer"
	"github.com/sundae-ai/gemini-analyzer/internal/config"
	"github.com/sundae-ai/gemini-analyzer/internal/utils"
	"github.com/sundae-ai/gemini-analyzer/pkg/input"
)

func main() {
	var in, prompt, model, backend, url, key, outDir string
	var listModels, probe, save bool

	flag.StringVar(&in, "in", "", "input image path (png/jpg/gif/bmp/webp)")
	flag.StringVar(&prompt, "prompt", "", "instruction describing what to extract from the image (empty = generic description)")
	flag.StringVar(&model, "model", "", "model name (defaults: gemini=gemini-2.5-flash, ollama=llava)")
	flag.StringVar(&backend, "backend", "", "backend to use: gemini or ollama (default gemini)")
	flag.StringVar(&url, "url", "", "ollama server URL (default http://localhost:11434)")
	flag.StringVar(&key, "key", "", "Gemini API key (overrides GEMINI_API_KEY and the key file)")
	flag.StringVar(&outDir, "out", "", "report output directory (default ./reports)")
	flag.BoolVar(&save, "save", false, "write the analysis to <prefix>_<image>.txt in the output directory")
	flag.BoolVar(&listModels, "list-models", false, "list supported models and exit")
	flag.BoolVar(&probe, "probe", false, "check backend connectivity and exit")
	flag.Parse()

	cfg := config.Load()
	if backend != "" {
		cfg.Backend = backend
	}
	if url != "" {
		cfg.OllamaURL = url
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if model != "" {
		if cfg.Backend == "ollama" {
			cfg.OllamaModel = model
		} else {
			cfg.Model = model
		}
	}
	cfg.APIKey = cfg.ResolveAPIKey(key)

	analyzer, err := geminianalyzer.NewWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}

	ctx := context.Background()

	if listModels {
		fmt.Printf("Supported models (%s backend):\n", cfg.Backend)
		for _, m := range analyzer.SupportedModels() {
			marker := " "
			if m == analyzer.Model() {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, m)
		}
		return
	}

	if probe {
		if analyzer.Probe(ctx) {
			log.Info("Backend is reachable")
			return
		}
		log.Fatal("Backend is not reachable")
	}

	if in == "" {
		log.Fatalf("usage: %s -in image.png [-prompt \"...\"] [-backend gemini|ollama] [-model name] [-save]",
			filepath.Base(os.Args[0]))
	}
	if !utils.IsImageFile(in) {
		log.Fatalf("Not an image file: %s", in)
	}
	if info, err := os.Stat(in); err == nil && !config.ValidFileSize(info.Size()) {
		log.Fatalf("Image too large: %s (limit %s)",
			utils.FormatFileSize(info.Size()), utils.FormatFileSize(config.MaxFileSize))
	}

	var text string
	if strings.TrimSpace(prompt) == "" {
		text, err = analyzer.AnalyzeDefault(ctx, input.FromPath(in))
	} else {
		text, err = analyzer.AnalyzeFile(ctx, in, prompt)
	}
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Println(text)

	if save {
		path, err := analyzer.SaveReport(text, in)
		if err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
		log.Infof("wrote %s", path)
	}
}
