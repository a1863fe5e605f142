package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody bounds how much of an error response is kept in messages
const maxErrorBody = 512

// OpenAIClient implements Client for OpenAI-compatible REST endpoints, including Azure deployments
type OpenAIClient struct {
	config     *Config
	apiKey     string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *chatMessage `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if config == nil {
		config = DefaultOpenAIConfig()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Provider == ProviderAzure && config.APIVersion == "" {
		return nil, fmt.Errorf("API version is required for Azure")
	}

	return &OpenAIClient{
		config:     config,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}, nil
}

// Complete sends a two-message chat completion and returns choices[0].message.content
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.completionTimeout())
	defer cancel()

	reqBody := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.maxTokens(),
	}
	if c.config.Provider != ProviderAzure {
		reqBody.Model = c.config.ChatModel
	}

	var resp chatResponse
	if err := c.post(ctx, ServiceCompletion, c.deploymentURL(c.config.ChatModel, "chat/completions"), reqBody, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", &UpstreamServiceError{Service: ServiceCompletion, Message: "response has no choices"}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &UpstreamServiceError{Service: ServiceCompletion, Message: "response content is empty"}
	}
	return content, nil
}

// Embed requests a vector for input and returns data[0].embedding
func (c *OpenAIClient) Embed(ctx context.Context, input string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.embeddingTimeout())
	defer cancel()

	reqBody := embeddingRequest{Input: input}
	if c.config.Provider != ProviderAzure {
		reqBody.Model = c.config.EmbeddingModel
	}

	var resp embeddingResponse
	if err := c.post(ctx, ServiceEmbedding, c.deploymentURL(c.config.EmbeddingModel, "embeddings"), reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &UpstreamServiceError{Service: ServiceEmbedding, Message: "response has no embedding vector"}
	}
	return resp.Data[0].Embedding, nil
}

// ChatModel returns the completion model or deployment name
func (c *OpenAIClient) ChatModel() string {
	return c.config.ChatModel
}

// EmbeddingModel returns the embedding model or deployment name
func (c *OpenAIClient) EmbeddingModel() string {
	return c.config.EmbeddingModel
}

// Close releases resources held by the client
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// deploymentURL builds either <endpoint>/<path> or the Azure
// <endpoint>/openai/deployments/<deployment>/<path>?api-version=<v> form.
func (c *OpenAIClient) deploymentURL(deployment, path string) string {
	base := strings.TrimRight(c.config.Endpoint, "/")
	if c.config.Provider != ProviderAzure {
		return base + "/" + path
	}
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		base, url.PathEscape(deployment), path, url.QueryEscape(c.config.APIVersion))
}

func (c *OpenAIClient) post(ctx context.Context, service, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &UpstreamServiceError{Service: service, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &UpstreamServiceError{Service: service, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Provider == ProviderAzure {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamServiceError{Service: service, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamServiceError{Service: service, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamServiceError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    truncate(strings.TrimSpace(string(respBody)), maxErrorBody),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &UpstreamServiceError{Service: service, StatusCode: resp.StatusCode, Message: "malformed response", Cause: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
