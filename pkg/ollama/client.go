// Package ollama implements the local analysis backend against an Ollama
// server running a vision-capable model. It exists so the analyze operation
// has a credential-free local path with the same contract as the remote one.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/ollama/ollama/api"

	"github.com/sundae-ai/gemini-analyzer/pkg/client"
	"github.com/sundae-ai/gemini-analyzer/pkg/input"
)

// DefaultModel is the vision model used when none is configured.
const DefaultModel = "llava"

// knownVisionModels lists models known to handle image inputs. Unlike the
// remote backend, the local registry is open: SetModel accepts any non-empty
// name, since the set of pulled models is only known to the server.
var knownVisionModels = []string{
	"llava",
	"llava:13b",
	"llama3.2-vision",
	"minicpm-v",
}

// Client wraps the Ollama API client.
type Client struct {
	client *api.Client

	mu    sync.RWMutex
	model string
}

// NewClient creates a client for the Ollama server at ollamaURL. An empty
// model selects DefaultModel.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Strip any path like /api/chat; the SDK appends its own routes.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Analyze sends the image and instruction to the local vision model and
// returns the response text. Dispatch failures are *client.AnalysisError.
func (c *Client) Analyze(ctx context.Context, img input.Input, instruction string) (string, error) {
	data, err := input.Normalize(img)
	if err != nil {
		return "", err
	}

	// Local models can be slow on CPU; cap the call if the caller didn't.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	model := c.Model()
	log.Debugf("ollama: dispatching %d byte image to %s", len(data), model)

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: instruction,
				Images:  []api.ImageData{api.ImageData(data)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", &client.AnalysisError{Err: fmt.Errorf("ollama chat error: %w", err)}
	}

	return responseContent, nil
}

// AnalyzeDefault runs Analyze with the generic instruction shared with the
// remote backend.
func (c *Client) AnalyzeDefault(ctx context.Context, img input.Input) (string, error) {
	return c.Analyze(ctx, img, "Please analyze this image and describe what you see in detail.")
}

// Probe reports whether the Ollama server is reachable.
func (c *Client) Probe(ctx context.Context) bool {
	return c.client.Heartbeat(ctx) == nil
}

// SupportedModels lists models known to handle image inputs.
func (c *Client) SupportedModels() []string {
	return append([]string(nil), knownVisionModels...)
}

// SetModel switches the active model. Only empty names are rejected; the
// server decides whether the model actually exists.
func (c *Client) SetModel(model string) error {
	if model == "" {
		return &client.UnsupportedModelError{Model: model}
	}

	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	return nil
}

// Model returns the active model identifier.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}
