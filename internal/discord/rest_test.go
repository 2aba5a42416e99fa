package discord

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestREST(t *testing.T, handler http.Handler) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTClient("test-token", srv.URL, slog.New(slog.DiscardHandler))
}

func TestSendMessage(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/channels/chan-1/messages" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Errorf("Authorization = %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["content"] != "hello chat" {
			t.Errorf("content = %v", payload["content"])
		}
		w.Write([]byte(`{"id": "msg-9", "channel_id": "chan-1"}`))
	}))

	id, err := c.SendMessage(context.Background(), "chan-1", "hello chat")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if id != "msg-9" {
		t.Errorf("id = %q", id)
	}
}

func TestSendReplyCarriesReference(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		ref, ok := payload["message_reference"].(map[string]any)
		if !ok || ref["message_id"] != "orig-1" {
			t.Errorf("message_reference = %v", payload["message_reference"])
		}
		w.Write([]byte(`{"id": "msg-10"}`))
	}))

	if _, err := c.SendReply(context.Background(), "chan-1", "orig-1", "on it"); err != nil {
		t.Fatalf("SendReply: %v", err)
	}
}

func TestSendMessageTruncatesLongContent(t *testing.T) {
	var sent string
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		sent = payload["content"]
		w.Write([]byte(`{"id": "msg-1"}`))
	}))

	long := strings.Repeat("a", 3000)
	if _, err := c.SendMessage(context.Background(), "chan-1", long); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(sent) != MaxMessageLength {
		t.Errorf("sent length = %d, want %d", len(sent), MaxMessageLength)
	}
	if !strings.HasSuffix(sent, "...") {
		t.Error("truncated content missing ellipsis")
	}
}

func TestEditMessage(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/channels/chan-1/messages/msg-2" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id": "msg-2"}`))
	}))

	if err := c.EditMessage(context.Background(), "chan-1", "msg-2", "updated"); err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
}

func TestAPIErrorSurfacesStatusAndBody(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "Missing Permissions"}`))
	}))

	_, err := c.SendMessage(context.Background(), "chan-1", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "Missing Permissions") {
		t.Errorf("error = %v", err)
	}
}

func TestOpenDM(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me/channels" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["recipient_id"] != "user-7" {
			t.Errorf("recipient_id = %q", payload["recipient_id"])
		}
		w.Write([]byte(`{"id": "dm-chan-1"}`))
	}))

	id, err := c.OpenDM(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("OpenDM: %v", err)
	}
	if id != "dm-chan-1" {
		t.Errorf("id = %q", id)
	}
}

func TestHasRole(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guilds/guild-1/members/user-1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"user": {"id": "user-1"}, "roles": ["role-a", "role-b"]}`))
	}))

	ctx := context.Background()
	if !c.HasRole(ctx, "guild-1", "user-1", "role-b") {
		t.Error("expected role-b to match")
	}
	if c.HasRole(ctx, "guild-1", "user-1", "role-z") {
		t.Error("role-z should not match")
	}
	if c.HasRole(ctx, "", "user-1", "role-a") {
		t.Error("empty guild should never match")
	}
	if c.HasRole(ctx, "guild-1", "user-1", "") {
		t.Error("empty role should never match")
	}
	if c.HasRole(ctx, "guild-1", "user-404", "role-a") {
		t.Error("unknown member should not match")
	}
}

func TestSearchMember(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "alice" {
			w.Write([]byte(`[{"user": {"id": "user-3", "username": "alice"}}]`))
			return
		}
		w.Write([]byte(`[]`))
	}))

	id, ok := c.SearchMember(context.Background(), "guild-1", "alice")
	if !ok || id != "user-3" {
		t.Errorf("SearchMember = %q, %v", id, ok)
	}
	if _, ok := c.SearchMember(context.Background(), "guild-1", "zoidberg"); ok {
		t.Error("expected miss for unknown member")
	}
}

func TestUserNamePrefersGlobalNameAndCaches(t *testing.T) {
	var hits atomic.Int32
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"id": "user-5", "username": "xx_bert_xx", "global_name": "Bert"}`))
	}))

	if got := c.UserName("user-5"); got != "Bert" {
		t.Errorf("UserName = %q", got)
	}
	if got := c.UserName("user-5"); got != "Bert" {
		t.Errorf("UserName = %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("API hit %d times, want 1 (cached)", hits.Load())
	}
}

func TestUserNameFallsBackToUsername(t *testing.T) {
	c := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "user-6", "username": "plainname"}`))
	}))
	if got := c.UserName("user-6"); got != "plainname" {
		t.Errorf("UserName = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short"); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("x", MaxMessageLength+1)
	got := truncate(long)
	if len([]rune(got)) != MaxMessageLength {
		t.Errorf("truncate length = %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("missing ellipsis")
	}
}

func TestStripMentions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ids     []string
		want    string
	}{
		{"plain mention", "<@42> hello bob", []string{"42"}, "hello bob"},
		{"nick mention", "<@!42> hello", []string{"42"}, "hello"},
		{"other ids untouched", "<@42> ping <@99>", []string{"42"}, "ping <@99>"},
		{"multiple ids", "<@1> and <@2> hey", []string{"1", "2"}, "and  hey"},
		{"no mentions", "just text", []string{"42"}, "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMentions(tt.content, tt.ids...); got != tt.want {
				t.Errorf("StripMentions = %q, want %q", got, tt.want)
			}
		})
	}
}
