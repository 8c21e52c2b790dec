// Package client defines the contract shared by the vision backends.
package client

import (
	"context"
	"fmt"

	"github.com/sundae-ai/gemini-analyzer/pkg/input"
)

// VisionAnalyzer is implemented by every analysis backend (remote Gemini,
// local Ollama). Implementations hold only a credential and the active model
// between calls; no request-scoped state survives a call.
type VisionAnalyzer interface {
	// Analyze submits one image and an instruction and returns the model's
	// text verbatim. An empty string is a valid result, distinct from an
	// error. Dispatch failures are reported as *AnalysisError.
	Analyze(ctx context.Context, img input.Input, instruction string) (string, error)

	// AnalyzeDefault runs Analyze with the backend's generic instruction.
	AnalyzeDefault(ctx context.Context, img input.Input) (string, error)

	// Probe reports whether the backend is reachable and authorized.
	Probe(ctx context.Context) bool

	// SetModel switches the active model for subsequent calls. In-flight
	// calls keep the model they captured at dispatch time.
	SetModel(model string) error

	// Model returns the active model identifier.
	Model() string

	// SupportedModels lists the backend's model allow-list in stable order.
	SupportedModels() []string
}

// AnalysisError wraps any remote dispatch failure: transport errors, auth
// rejection, malformed responses, or remote-side rejection of the payload.
// The original cause is preserved for errors.Is/As.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("image analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// UnsupportedModelError reports a model identifier outside the backend's
// allow-list. The active model is left unchanged.
type UnsupportedModelError struct {
	Model string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model: %s", e.Model)
}
