package pushover_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"ramu/internal/infra/pushover"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Notify(t *testing.T) {
	var got http.Header
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header
		r.ParseForm()
		form = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"message": r.PostForm.Get("message"),
			"title":   r.PostForm.Get("title"),
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", server.URL, discardLogger())

	if err := client.Notify(context.Background(), "Error: transcription failed"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if got.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("content type: got %q", got.Get("Content-Type"))
	}
	if form["token"] != "app-token" || form["user"] != "user-key" {
		t.Errorf("credentials: got %+v", form)
	}
	if form["message"] != "Error: transcription failed" || form["title"] != "Ramu" {
		t.Errorf("message: got %+v", form)
	}
}

func TestClient_NotifyErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusBadRequest)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("bad", "user-key", server.URL, discardLogger())
	if err := client.Notify(context.Background(), "x"); err == nil {
		t.Error("expected error for rejected notification")
	}

	unconfigured := pushover.NewClientWithURL("", "", server.URL, discardLogger())
	if err := unconfigured.Notify(context.Background(), "x"); err != nil {
		t.Errorf("unconfigured client should be a no-op, got %v", err)
	}
}

func TestClient_NotifyTruncatesOnRuneBoundary(t *testing.T) {
	var message string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		message = r.PostForm.Get("message")
		w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("app-token", "user-key", server.URL, discardLogger())

	// 2 ASCII bytes then 3-byte runes: byte 1024 falls inside a rune.
	long := "ab" + strings.Repeat("अ", 600)
	if err := client.Notify(context.Background(), long); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if !utf8.ValidString(message) {
		t.Fatal("truncated message is not valid UTF-8")
	}
	if len(message) != 1022 {
		t.Errorf("length: got %d, want 1022", len(message))
	}
	if !strings.HasPrefix(long, message) {
		t.Error("truncated message should be a prefix of the original")
	}
}
