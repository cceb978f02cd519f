package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/somshekargr/studybuddy/internal/core"
)

// Default configuration values for the local Ollama endpoint.
const (
	defaultOllamaTimeout = 120 * time.Second
	defaultVisionTimeout = 60 * time.Second
)

// OllamaModel calls the local Ollama /api/generate endpoint. When the local
// model is unreachable or errors, Generate falls back to the hosted provider
// so triplet extraction keeps working without a local runtime.
type OllamaModel struct {
	client   *http.Client
	baseURL  string
	model    string
	fallback core.LLMProvider
}

var _ core.LocalModel = (*OllamaModel)(nil)

func NewOllamaModel(baseURL, model string, fallback core.LLMProvider) *OllamaModel {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaModel{
		client:   &http.Client{Timeout: defaultOllamaTimeout},
		baseURL:  baseURL,
		model:    model,
		fallback: fallback,
	}
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
	Images []string `json:"images,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (m *OllamaModel) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := generateRequest{
		Model:  m.model,
		Prompt: prompt,
		Stream: false,
	}
	if jsonMode {
		req.Format = "json"
	}

	out, err := m.post(ctx, req, defaultOllamaTimeout)
	if err == nil {
		return out, nil
	}

	if m.fallback == nil {
		return "", err
	}
	log.Printf("ollama: local model failed (%v), falling back to hosted provider", err)
	out, ferr := m.fallback.Generate(ctx, "", prompt)
	if ferr != nil {
		return "", fmt.Errorf("local model failed (%v); hosted fallback failed: %w", err, ferr)
	}
	return out, nil
}

func (m *OllamaModel) post(ctx context.Context, body generateRequest, timeout time.Duration) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, m.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(raw))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}

// OllamaVision describes images with a local vision model. There is no
// hosted fallback here: a vision failure degrades to a placeholder string,
// never to a pipeline error.
type OllamaVision struct {
	inner *OllamaModel
}

var _ core.VisionProvider = (*OllamaVision)(nil)

func NewOllamaVision(baseURL, model string) *OllamaVision {
	return &OllamaVision{inner: NewOllamaModel(baseURL, model, nil)}
}

func (v *OllamaVision) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe this diagram or chart in detail for a study guide."
	}
	req := generateRequest{
		Model:  v.inner.model,
		Prompt: prompt,
		Stream: false,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	}
	return v.inner.post(ctx, req, defaultVisionTimeout)
}
