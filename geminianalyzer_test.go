package geminianalyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sundae-ai/gemini-analyzer/internal/config"
	"github.com/sundae-ai/gemini-analyzer/pkg/gemini"
	"github.com/sundae-ai/gemini-analyzer/pkg/input"
)

// fakeBackend records the last call it received
type fakeBackend struct {
	lastInput       input.Input
	lastInstruction string
	defaultCalls    int
	model           string
	probeResult     bool
}

func (f *fakeBackend) Analyze(ctx context.Context, img input.Input, instruction string) (string, error) {
	f.lastInput = img
	f.lastInstruction = instruction
	return "fake analysis", nil
}

func (f *fakeBackend) AnalyzeDefault(ctx context.Context, img input.Input) (string, error) {
	f.defaultCalls++
	f.lastInput = img
	return "fake default analysis", nil
}

func (f *fakeBackend) Probe(ctx context.Context) bool { return f.probeResult }

func (f *fakeBackend) SetModel(model string) error {
	f.model = model
	return nil
}

func (f *fakeBackend) Model() string { return f.model }

func (f *fakeBackend) SupportedModels() []string { return []string{f.model} }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Model:        config.DefaultModel,
		Backend:      "gemini",
		OutputDir:    t.TempDir(),
		OutputPrefix: "analysis",
	}
}

func TestNewMissingCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY_FILE", filepath.Join(t.TempDir(), "missing.txt"))

	_, err := New("")
	if !errors.Is(err, gemini.ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
}

func TestNewWithConfigInvalid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = "carrier-pigeon"

	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("expected error for invalid backend")
	}
}

func TestAnalyzeHelpersDelegate(t *testing.T) {
	fake := &fakeBackend{model: config.DefaultModel}
	analyzer := NewWithBackend(fake, testConfig(t))
	ctx := context.Background()

	text, err := analyzer.AnalyzeFile(ctx, "chart.png", "describe")
	if err != nil || text != "fake analysis" {
		t.Fatalf("AnalyzeFile = %q, %v", text, err)
	}
	if _, ok := fake.lastInput.(input.Path); !ok {
		t.Errorf("expected path input, got %T", fake.lastInput)
	}
	if fake.lastInstruction != "describe" {
		t.Errorf("instruction not passed through: %q", fake.lastInstruction)
	}

	if _, err := analyzer.AnalyzeBytes(ctx, []byte{1, 2}, "x"); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.lastInput.(input.Bytes); !ok {
		t.Errorf("expected bytes input, got %T", fake.lastInput)
	}

	if _, err := analyzer.AnalyzeReader(ctx, strings.NewReader("img"), "x"); err != nil {
		t.Fatal(err)
	}

	if _, err := analyzer.AnalyzeDefault(ctx, input.FromBytes([]byte{1})); err != nil {
		t.Fatal(err)
	}
	if fake.defaultCalls != 1 {
		t.Errorf("expected 1 default call, got %d", fake.defaultCalls)
	}

	if err := analyzer.SetModel("gemini-1.5-flash"); err != nil {
		t.Fatal(err)
	}
	if analyzer.Model() != "gemini-1.5-flash" {
		t.Errorf("model not passed through: %s", analyzer.Model())
	}
}

func TestSaveReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputPrefix = "sundae"
	analyzer := NewWithBackend(&fakeBackend{}, cfg)

	path, err := analyzer.SaveReport("Bullish pattern", "charts/trading_chart.png")
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	if filepath.Base(path) != "sundae_trading_chart.txt" {
		t.Errorf("unexpected report name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Bullish pattern" {
		t.Errorf("report content = %q", data)
	}
}

func TestGeminiBackendEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Bullish pattern"}]}}]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.APIKey = "k1"
	cfg.BaseURL = srv.URL

	analyzer, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}

	text, err := analyzer.AnalyzeBytes(context.Background(), []byte{0x89, 0x50}, "describe")
	if err != nil {
		t.Fatalf("AnalyzeBytes failed: %v", err)
	}
	if text != "Bullish pattern" {
		t.Errorf("expected %q, got %q", "Bullish pattern", text)
	}

	if got := analyzer.SupportedModels(); len(got) == 0 || got[0] != config.DefaultModel {
		t.Errorf("unexpected allow-list %v", got)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() = %s, expected %s", GetVersion(), Version)
	}
}
