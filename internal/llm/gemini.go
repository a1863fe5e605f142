package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultGeminiConfig()
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Complete generates a reply to user under the given system instruction
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.config.ChatModel == "" {
		return "", fmt.Errorf("no chat model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.completionTimeout())
	defer cancel()

	model := c.client.GenerativeModel(c.config.ChatModel)
	model.SetTemperature(c.config.Temperature)
	model.SetMaxOutputTokens(int32(c.config.maxTokens()))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", &UpstreamServiceError{Service: ServiceCompletion, Message: "failed to generate content", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &UpstreamServiceError{Service: ServiceCompletion, Message: "malformed response", Cause: err}
	}
	return text, nil
}

// Embed returns the embedding vector for input
func (c *GeminiClient) Embed(ctx context.Context, input string) ([]float32, error) {
	if c.config.EmbeddingModel == "" {
		return nil, fmt.Errorf("no embedding model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.embeddingTimeout())
	defer cancel()

	em := c.client.EmbeddingModel(c.config.EmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(input))
	if err != nil {
		return nil, &UpstreamServiceError{Service: ServiceEmbedding, Message: "failed to embed content", Cause: err}
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &UpstreamServiceError{Service: ServiceEmbedding, Message: "response has no embedding vector"}
	}
	return res.Embedding.Values, nil
}

// ChatModel returns the completion model name
func (c *GeminiClient) ChatModel() string {
	return c.config.ChatModel
}

// EmbeddingModel returns the embedding model name
func (c *GeminiClient) EmbeddingModel() string {
	return c.config.EmbeddingModel
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
