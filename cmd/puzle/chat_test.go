package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatClient_LoginKeepsSessionAndChat(t *testing.T) {
	var lastChatID string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "puzle_session", Value: "tok", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("/chat/new", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("puzle_session"); err != nil || c.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Önce giriş yapmalısın."})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"chat_id": "01HCHAT0000000000000000000"})
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastChatID = body["chat_id"]
		if body["message"] == "/new" {
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Yeni sohbet başlatıldı.", "chat_id": "01HCHAT1111111111111111111"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "merhaba " + body["message"]})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := newChatClient(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.login(ctx, "ayse", "gizli123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	reply, err := c.send(ctx, "dünya")
	if err != nil || reply != "merhaba dünya" {
		t.Fatalf("send: %q %v", reply, err)
	}
	if lastChatID != "01HCHAT0000000000000000000" {
		t.Fatalf("chat id not sent: %q", lastChatID)
	}

	if _, err := c.send(ctx, "/new"); err != nil {
		t.Fatal(err)
	}
	_, _ = c.send(ctx, "tekrar")
	if lastChatID != "01HCHAT1111111111111111111" {
		t.Fatalf("client should follow the new chat id, sent %q", lastChatID)
	}
}

func TestChatClient_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Günlük mesaj limitine ulaştın."}`))
	}))
	defer srv.Close()

	c, _ := newChatClient(srv.URL)
	_, err := c.send(context.Background(), "hi")

	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "Günlük mesaj limitine ulaştın." {
		t.Fatalf("error: %v", err)
	}
}
