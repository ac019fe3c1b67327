package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider maps the system message onto SystemInstruction; Gemini has
// no system role in contents.
type GeminiProvider struct {
	client *genai.Client
	params Params
}

func NewGeminiProvider(ctx context.Context, baseURL, apiKey string, params Params) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	if params.Model == "" {
		params.Model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: c, params: params}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	system, contents := toGenAIContents(messages)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.params.Temperature)),
	}
	if p.params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.params.MaxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.params.Model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &GatewayError{Provider: "gemini", Status: apiErr.Code, Payload: apiErr.Message, Err: err}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			return "", &GatewayError{Provider: "gemini", Status: apiErrPtr.Code, Payload: apiErrPtr.Message, Err: err}
		}
		return "", &GatewayError{Provider: "gemini", Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &GatewayError{Provider: "gemini", Err: ErrEmptyResponse}
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func toGenAIContents(messages []Message) (string, []*genai.Content) {
	var system []string
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return strings.Join(system, "\n\n"), out
}
