// Package ai generates daily prompts and chat replies with a pluggable LLM provider.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"loopbot/model"
)

// Provider is an abstraction over LLM backends (OpenAI, Gemini).
type Provider interface {
	// Generate returns a completion for prompt under the given system instruction.
	// An empty modelName selects the provider's default model.
	Generate(ctx context.Context, modelName, system, prompt string, maxTokens int) (string, error)
	Close()
}

// OpenAIProvider implements Provider with the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider using apiKey.
func NewOpenAIProvider(apiKey, modelName string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey), modelName)
}

// NewOpenAIProviderWithConfig creates a provider from a full client config, e.g. a custom BaseURL.
func NewOpenAIProviderWithConfig(cfg openai.ClientConfig, modelName string) *OpenAIProvider {
	if modelName == "" {
		modelName = openai.GPT4o
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: modelName}
}

// Generate implements Provider
func (p *OpenAIProvider) Generate(ctx context.Context, modelName, system, prompt string, maxTokens int) (string, error) {
	if modelName == "" {
		modelName = p.model
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}
	return text, nil
}

// Close implements Provider
func (p *OpenAIProvider) Close() {}

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini client authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client, model: geminiModel(modelName, defaultGeminiModel)}, nil
}

// geminiModel maps empty or OpenAI model names, left over from the default config, to fallback.
func geminiModel(name, fallback string) string {
	if name == "" || strings.HasPrefix(name, "gpt-") {
		return fallback
	}
	return name
}

// Generate implements Provider
func (g *GeminiProvider) Generate(ctx context.Context, modelName, system, prompt string, maxTokens int) (string, error) {
	m := g.client.GenerativeModel(geminiModel(modelName, g.model))
	m.SetTemperature(0.7)
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from LLM")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return strings.TrimSpace(string(txt)), nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// Close implements Provider
func (g *GeminiProvider) Close() {
	g.client.Close()
}

// NewProvider picks the configured backend. It returns nil, nil when no key is configured.
func NewProvider(ctx context.Context, cfg model.AI) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, nil
		}
		return NewGeminiProvider(ctx, cfg.GeminiKey, cfg.PromptModel)
	default:
		if cfg.OpenAIKey == "" {
			return nil, nil
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.PromptModel), nil
	}
}
