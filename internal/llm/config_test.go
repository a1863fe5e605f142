package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderOpenAI, config.Provider)
	assert.Equal(t, "gpt-4o-mini", config.ChatModel)
	assert.Equal(t, "text-embedding-3-small", config.EmbeddingModel)
	assert.InDelta(t, 0.1, config.Temperature, 1e-6)
	assert.Equal(t, DefaultMaxTokens, config.MaxTokens)
}

func TestDefaultGeminiConfig(t *testing.T) {
	config := DefaultGeminiConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash", config.ChatModel)
	assert.NotEmpty(t, config.EmbeddingModel)
}

func TestWithChatModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithChatModel("custom-model")

	// Original should be unchanged
	assert.Equal(t, "gpt-4o-mini", config.ChatModel)
	assert.Equal(t, "custom-model", newConfig.ChatModel)
	assert.Equal(t, config.EmbeddingModel, newConfig.EmbeddingModel)

	embedConfig := config.WithEmbeddingModel("text-embedding-3-large")
	assert.Equal(t, "text-embedding-3-large", embedConfig.EmbeddingModel)
	assert.Equal(t, "text-embedding-3-small", config.EmbeddingModel)
}

func TestConfigFallbacks(t *testing.T) {
	config := &Config{}

	assert.Equal(t, DefaultMaxTokens, config.maxTokens())
	assert.Equal(t, DefaultCompletionTimeout, config.completionTimeout())
	assert.Equal(t, DefaultEmbeddingTimeout, config.embeddingTimeout())
}

func TestProviderConstants(t *testing.T) {
	assert.Equal(t, Provider("openai"), ProviderOpenAI)
	assert.Equal(t, Provider("azure"), ProviderAzure)
	assert.Equal(t, Provider("gemini"), ProviderGemini)
}

func TestBuildSystemInstruction(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Profile",
		Description: "You extract profiles.",
		Fields: []SchemaField{
			{Name: "name", Type: `"string"`, Required: true},
			{Name: "phone", Type: `"string"`, Description: "digits only"},
		},
		Rules: []string{"Dates use YYYY-MM."},
	}

	prompt := BuildSystemInstruction(schema)

	assert.Contains(t, prompt, "You extract profiles.")
	assert.Contains(t, prompt, `"name": "string" (required),`)
	assert.Contains(t, prompt, `"phone": "string" // digits only`)
	assert.Contains(t, prompt, "- Dates use YYYY-MM.")
	assert.Equal(t, []string{"name"}, schema.RequiredFields())
}

func TestBuildUserContent(t *testing.T) {
	assert.Equal(t, "Input text:\n\"\"\"\nhello\n\"\"\"\n", BuildUserContent("hello"))
}
