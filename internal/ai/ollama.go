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

const DefaultOllamaBaseURL = "http://localhost:11434"

type OllamaProvider struct {
	BaseURL string
	Params  Params
	Client  *http.Client
}

func NewOllamaProvider(baseURL string, params Params) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if params.Model == "" {
		params.Model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Params:  params,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type ollamaChatReq struct {
	Model    string        `json:"model"`
	Messages []ollamaMsg   `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResp struct {
	Message *ollamaMsg `json:"message"`
	Error   string     `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", &GatewayError{Provider: "ollama", Err: errors.New("http client is nil")}
	}

	reqBody := ollamaChatReq{
		Model:  p.Params.Model,
		Stream: false,
		Options: ollamaOptions{
			Temperature: p.Params.Temperature,
			NumPredict:  p.Params.MaxTokens,
		},
		Messages: func() []ollamaMsg {
			out := make([]ollamaMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, ollamaMsg{Role: string(m.Role), Content: m.Content})
			}
			return out
		}(),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GatewayError{Provider: "ollama", Err: err}
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", &GatewayError{Provider: "ollama", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", &GatewayError{Provider: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		var decoded ollamaChatResp
		payload := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
			payload = decoded.Error
		}
		return "", &GatewayError{Provider: "ollama", Status: resp.StatusCode, Payload: payload}
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &GatewayError{Provider: "ollama", Status: resp.StatusCode, Err: err}
	}
	if decoded.Error != "" {
		return "", &GatewayError{Provider: "ollama", Status: resp.StatusCode, Payload: decoded.Error}
	}
	if decoded.Message == nil {
		return "", &GatewayError{Provider: "ollama", Status: resp.StatusCode, Err: ErrEmptyResponse}
	}
	return decoded.Message.Content, nil
}
