// Package gemini implements the remote analysis backend on top of the Google
// Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/sundae-ai/gemini-analyzer/pkg/client"
	"github.com/sundae-ai/gemini-analyzer/pkg/input"
)

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultInstruction is the generic prompt used by AnalyzeDefault.
	DefaultInstruction = "Please analyze this image and describe what you see in detail."

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// supportedModels is the fixed allow-list, in stable order. The default
// model comes first.
var supportedModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash",
}

// ErrMissingCredential is returned by NewClient when no API key is supplied.
var ErrMissingCredential = errors.New("gemini: missing API key")

// APIError is the typical cause inside a *client.AnalysisError when the
// remote service rejects a request.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error (status %d): %s", e.StatusCode, e.Body)
}

// Gemini generateContent wire format.
type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client talks to the Gemini API. It holds the credential and the active
// model; everything else is per-call. Safe for concurrent use as long as the
// underlying http.Client is.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	model string
}

// Option customizes a Client.
type Option func(*Client)

// WithModel selects the initial model. Validated against the allow-list.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a Gemini client. The API key is required and is passed
// explicitly on every request; it is never written to the environment or the
// logs.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if !modelSupported(c.model) {
		return nil, &client.UnsupportedModelError{Model: c.model}
	}
	return c, nil
}

// Analyze submits the image and instruction as a single multimodal request
// and returns the response text verbatim. Input-shape and local read errors
// surface before any network call; every dispatch failure is reported as a
// *client.AnalysisError wrapping the cause.
func (c *Client) Analyze(ctx context.Context, img input.Input, instruction string) (string, error) {
	data, err := input.Normalize(img)
	if err != nil {
		return "", err
	}

	mime := input.DetectMIME(data)
	model := c.Model()

	// Image part first, instruction text second.
	reqBody := generateRequest{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{InlineData: &inlineData{
						MimeType: mime,
						Data:     base64.StdEncoding.EncodeToString(data),
					}},
					{Text: instruction},
				},
			},
		},
	}

	log.Debugf("gemini: dispatching %d byte %s image to %s", len(data), mime, model)

	text, err := c.generateContent(ctx, model, reqBody)
	if err != nil {
		return "", &client.AnalysisError{Err: err}
	}
	return text, nil
}

// AnalyzeDefault runs Analyze with DefaultInstruction.
func (c *Client) AnalyzeDefault(ctx context.Context, img input.Input) (string, error) {
	return c.Analyze(ctx, img, DefaultInstruction)
}

// Probe checks reachability and authorization with the models.get metadata
// call instead of a generation request, so a healthy setup reports true.
func (c *Client) Probe(ctx context.Context) bool {
	url := fmt.Sprintf("%s/models/%s?key=%s", c.baseURL, c.Model(), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// SupportedModels returns the allow-list in stable order.
func (c *Client) SupportedModels() []string {
	return append([]string(nil), supportedModels...)
}

// SetModel switches the active model for subsequent calls. Unknown models
// are rejected and the active model is left unchanged.
func (c *Client) SetModel(model string) error {
	if !modelSupported(model) {
		return &client.UnsupportedModelError{Model: model}
	}

	c.mu.Lock()
	c.model = model
	c.mu.Unlock()

	log.Infof("gemini: model changed to %s", model)
	return nil
}

// Model returns the active model identifier.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func modelSupported(model string) bool {
	for _, m := range supportedModels {
		if m == model {
			return true
		}
	}
	return false
}

func (c *Client) generateContent(ctx context.Context, model string, body generateRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	// The first text part of the first candidate, verbatim. A candidate with
	// no text parts is a valid empty result.
	for _, p := range gr.Candidates[0].Content.Parts {
		return p.Text, nil
	}
	return "", nil
}
