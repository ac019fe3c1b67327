package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultCompatBaseURL = "https://api.groq.com/openai/v1"

// CompatProvider talks to any OpenAI-compatible /chat/completions endpoint
// (Groq by default).
type CompatProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Params  Params
	Client  *http.Client
}

type compatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatChatReq struct {
	Model       string      `json:"model"`
	Messages    []compatMsg `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream"`
}

type compatChatResp struct {
	Choices []struct {
		Message compatMsg `json:"message"`
	} `json:"choices"`
	Error *compatErrBody `json:"error,omitempty"`
}

type compatErrBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

func NewCompatProvider(name, baseURL, apiKey string, params Params) *CompatProvider {
	if name == "" {
		name = "groq"
	}
	if baseURL == "" {
		baseURL = DefaultCompatBaseURL
	}
	return &CompatProvider{
		Name:    name,
		BaseURL: baseURL,
		APIKey:  apiKey,
		Params:  params,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *CompatProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", p.fail(0, "", errors.New("http client is nil"))
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", p.fail(0, "", errors.New("api key is required"))
	}
	model := strings.TrimSpace(p.Params.Model)
	if model == "" {
		return "", p.fail(0, "", errors.New("model is required"))
	}

	reqBody := compatChatReq{
		Model:       model,
		Temperature: p.Params.Temperature,
		MaxTokens:   p.Params.MaxTokens,
		Stream:      false,
		Messages: func() []compatMsg {
			out := make([]compatMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, compatMsg{Role: string(m.Role), Content: m.Content})
			}
			return out
		}(),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", p.fail(0, "", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", p.fail(0, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", p.fail(0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return "", p.fail(resp.StatusCode, errorPayload(body), nil)
	}

	var decoded compatChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", p.fail(resp.StatusCode, "", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", p.fail(resp.StatusCode, decoded.Error.Message, nil)
	}
	if len(decoded.Choices) == 0 {
		return "", p.fail(resp.StatusCode, "", ErrEmptyResponse)
	}
	return decoded.Choices[0].Message.Content, nil
}

func (p *CompatProvider) fail(status int, payload string, err error) error {
	return &GatewayError{Provider: p.Name, Status: status, Payload: payload, Err: err}
}

// errorPayload prefers the structured {"error":{"message"}} body and falls
// back to the raw text.
func errorPayload(body []byte) string {
	var decoded struct {
		Error *compatErrBody `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}
	return strings.TrimSpace(string(body))
}
