package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider uses the official SDK. Retries are disabled: a failed call
// is reported once and never replayed.
type OpenAIProvider struct {
	client openai.Client
	params Params
}

func NewOpenAIProvider(baseURL, apiKey string, params Params) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key required")
	}
	if params.Model == "" {
		params.Model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), params: params}, nil
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.params.Model),
		Messages:    msgs,
		Temperature: openai.Float(p.params.Temperature),
	}
	if p.params.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.params.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			payload := apiErr.Message
			if payload == "" {
				payload = apiErr.RawJSON()
			}
			return "", &GatewayError{Provider: "openai", Status: apiErr.StatusCode, Payload: payload, Err: err}
		}
		return "", &GatewayError{Provider: "openai", Err: err}
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", &GatewayError{Provider: "openai", Err: ErrEmptyResponse}
	}
	return completion.Choices[0].Message.Content, nil
}
