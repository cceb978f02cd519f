package core

import "context"

// ChatMessage is one role/content turn handed to a generation call.
type ChatMessage struct {
	Role    string
	Content string
}

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider is the generation capability: a non-streaming call and a
// streaming variant that delivers tokens as they arrive. Stream must close
// the returned channel when generation finishes or ctx is cancelled; a
// terminal error, if any, arrives on the error channel after close.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
	Stream(ctx context.Context, messages []ChatMessage) (<-chan string, <-chan error)
}

// LocalModel is the local (Ollama-style) text model used for structured
// extraction. jsonMode asks the model for strict JSON output.
type LocalModel interface {
	Generate(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// VisionProvider describes an image for indexing.
type VisionProvider interface {
	DescribeImage(ctx context.Context, image []byte, prompt string) (string, error)
}
