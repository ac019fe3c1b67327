package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/onepuzle/puzle-ai/internal/config"
)

var (
	chatURLFlag      string
	chatUserFlag     string
	chatPasswordFlag string
)

// chatClient talks to a running server. The cookie jar carries the session
// between calls.
type chatClient struct {
	base   string
	http   *http.Client
	chatID string
}

func newChatClient(base string) (*chatClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &chatClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Jar: jar, Timeout: 90 * time.Second},
	}, nil
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Message) }

func (c *chatClient) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Message == "" {
			e.Message = strings.TrimSpace(string(raw))
		}
		return &apiError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// login opens a session and starts a fresh saved chat.
func (c *chatClient) login(ctx context.Context, username, password string) error {
	if err := c.post(ctx, "/auth/login", map[string]string{"username": username, "password": password}, nil); err != nil {
		return err
	}
	var out struct {
		ChatID string `json:"chat_id"`
	}
	if err := c.post(ctx, "/chat/new", struct{}{}, &out); err != nil {
		return err
	}
	c.chatID = out.ChatID
	return nil
}

func (c *chatClient) send(ctx context.Context, message string) (string, error) {
	var out struct {
		Message string `json:"message"`
		ChatID  string `json:"chat_id"`
	}
	body := map[string]string{"message": message}
	if c.chatID != "" {
		body["chat_id"] = c.chatID
	}
	if err := c.post(ctx, "/chat", body, &out); err != nil {
		return "", err
	}
	if out.ChatID != "" {
		c.chatID = out.ChatID
	}
	return out.Message, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	base := chatURLFlag
	if base == "" {
		base = "http://localhost:" + config.Load().Port
	}
	client, err := newChatClient(base)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if chatUserFlag != "" {
		if err := client.login(ctx, chatUserFlag, chatPasswordFlag); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Printf("Giriş yapıldı: %s\n", boldCyan(chatUserFlag))
	}

	fmt.Println(boldGreen("1Puzle AI"))
	fmt.Printf("Sunucu: %s\n", boldCyan(client.base))
	fmt.Println("Komutlar için /help yaz. Çıkmak için 'exit' ya da Ctrl+C.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("Sen: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if l := strings.ToLower(input); l == "exit" || l == "quit" {
			break
		}

		reply, err := client.send(ctx, input)
		if err != nil {
			fmt.Fprintln(os.Stderr, red("Hata: "+err.Error()))
			continue
		}
		fmt.Println(boldCyan("1Puzle AI: ") + reply)
		fmt.Println()
	}
	return scanner.Err()
}
