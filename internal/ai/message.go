package ai

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Provider sends one composed conversation and returns the generated reply.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Params are fixed per provider instance.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}
