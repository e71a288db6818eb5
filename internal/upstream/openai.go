package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

// OpenAI talks to any OpenAI-compatible chat completions API. With a base URL
// it reaches local servers such as Ollama or llama.cpp.
type OpenAI struct {
	model  string
	client *openai.Client
}

func NewOpenAI(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAI {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &OpenAI{
		model:  model,
		client: openai.NewClient(all...),
	}
}

func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt(p.Page)),
	}
	for _, t := range p.History {
		switch t.Role {
		case chat.RoleUser:
			messages = append(messages, openai.UserMessage(t.Content))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		}
	}
	messages = append(messages, openai.UserMessage(p.UserInput))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(o.model),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Status: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("chat completion: %w", classifyTransport(err))
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
