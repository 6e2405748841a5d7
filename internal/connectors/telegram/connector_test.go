package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/seagata/hinabot/internal/persona"
)

type fakeDispatcher struct {
	messages []persona.Message
	replies  []string
	tag      string
}

func (f *fakeDispatcher) Handle(ctx context.Context, msg persona.Message, emit func(ctx context.Context, text string) error) error {
	f.messages = append(f.messages, msg)
	for _, reply := range f.replies {
		if err := emit(ctx, reply); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDispatcher) SetTag(tag string) {
	f.tag = tag
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollOnceDispatchesGroupMessage(t *testing.T) {
	dispatcher := &fakeDispatcher{replies: []string{"first", "second"}}
	var sentBodies []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.Contains(req.URL.Path, "/getUpdates"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"result": []map[string]any{
					{
						"update_id": 101,
						"message": map[string]any{
							"message_id": 1,
							"text":       "@hinabot hello",
							"chat": map[string]any{
								"id":   -10001,
								"type": "supergroup",
							},
							"from": map[string]any{
								"id":         123456,
								"first_name": "Alice",
								"last_name":  "Tanaka",
							},
						},
					},
				},
			})
		case strings.Contains(req.URL.Path, "/sendMessage"):
			body, _ := io.ReadAll(req.Body)
			sentBodies = append(sentBodies, string(body))
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	connector := New("test-token", server.URL, 1, dispatcher, discardLogger())
	if err := connector.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce returned error: %v", err)
	}

	if len(dispatcher.messages) != 1 {
		t.Fatalf("expected one dispatched message, got %d", len(dispatcher.messages))
	}
	msg := dispatcher.messages[0]
	if msg.SenderName != "Alice" {
		t.Fatalf("sender name must be the first name alone, got %s", msg.SenderName)
	}
	if msg.ChatID != "-10001" || msg.ChatKind != persona.KindGroup {
		t.Fatalf("unexpected chat fields: %+v", msg)
	}
	if len(sentBodies) != 2 {
		t.Fatalf("expected two sendMessage calls, got %d", len(sentBodies))
	}
	if !strings.Contains(sentBodies[0], `"first"`) || !strings.Contains(sentBodies[0], "MarkdownV2") {
		t.Fatalf("unexpected first send payload: %s", sentBodies[0])
	}
	if connector.offset != 102 {
		t.Fatalf("expected offset to advance past update, got %d", connector.offset)
	}
}

func TestPollOnceSkipsEmptyMessages(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.Contains(req.URL.Path, "/getUpdates") {
			http.NotFound(w, req)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 7,
					"message": map[string]any{
						"message_id": 1,
						"chat":       map[string]any{"id": 42, "type": "private"},
						"from":       map[string]any{"id": 9, "first_name": "Mute"},
					},
				},
			},
		})
	}))
	defer server.Close()

	connector := New("test-token", server.URL, 1, dispatcher, discardLogger())
	if err := connector.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce returned error: %v", err)
	}
	if len(dispatcher.messages) != 0 {
		t.Fatalf("expected no dispatched messages, got %d", len(dispatcher.messages))
	}
}

func TestPollOnceCaptionFallback(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.Contains(req.URL.Path, "/getUpdates") {
			http.NotFound(w, req)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 8,
					"message": map[string]any{
						"message_id": 2,
						"caption":    "look at this",
						"chat":       map[string]any{"id": 42, "type": "private"},
						"from":       map[string]any{"id": 9, "first_name": "Seagata"},
					},
				},
			},
		})
	}))
	defer server.Close()

	connector := New("test-token", server.URL, 1, dispatcher, discardLogger())
	if err := connector.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce returned error: %v", err)
	}
	if len(dispatcher.messages) != 1 || dispatcher.messages[0].Text != "look at this" {
		t.Fatalf("expected caption as text, got %+v", dispatcher.messages)
	}
}

func TestStartLearnsBotTag(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	var pollOnce sync.Once
	polled := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.Contains(req.URL.Path, "/getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"username": "hinabot"},
			})
		case strings.Contains(req.URL.Path, "/getUpdates"):
			pollOnce.Do(func() { close(polled) })
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": []any{}})
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	connector := New("test-token", server.URL, 1, dispatcher, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = connector.Start(ctx)
	}()
	<-polled
	cancel()
	<-done
	if dispatcher.tag != "@hinabot" {
		t.Fatalf("expected dispatcher tag @hinabot, got %q", dispatcher.tag)
	}
}

func TestStartIdlesWithoutToken(t *testing.T) {
	connector := New("", "", 1, &fakeDispatcher{}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := connector.Start(ctx); err != nil {
		t.Fatalf("expected nil from disabled connector, got %v", err)
	}
}
