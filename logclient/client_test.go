package logclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pkt.systems/sketchroom/schema"
)

func TestFetchRoomLogReversesToAppendOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats/7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(schema.ChatsResponse{Messages: []schema.ChatEntry{
			{ID: 3, RoomID: 7, Message: "third"},
			{ID: 2, RoomID: 7, Message: "second"},
			{ID: 1, RoomID: 7, Message: "first"},
		}})
	}))
	defer server.Close()

	client, err := New(server.URL, "tok", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	entries, err := client.FetchRoomLog(context.Background(), 7)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != 1 || entries[2].ID != 3 {
		t.Fatalf("entries = %+v, want oldest first", entries)
	}
}

func TestDeleteAndUpdateEntry(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if r.Body != nil {
			var req schema.UpdateChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotBody = req.Message
		}
		_ = json.NewEncoder(w).Encode(schema.StatusResponse{Success: true})
	}))
	defer server.Close()

	client, err := New(server.URL, "tok", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	if err := client.DeleteEntry(ctx, 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/chat/42" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}

	if err := client.UpdateEntry(ctx, 42, `{"updateShape":{}}`); err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/chat/42" || gotBody != `{"updateShape":{}}` {
		t.Fatalf("request = %s %s body %q", gotMethod, gotPath, gotBody)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client, err := New(server.URL, "tok", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.DeleteEntry(context.Background(), 1); err == nil {
		t.Fatal("403 swallowed")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  ", "tok", nil); err == nil {
		t.Fatal("empty base url accepted")
	}
}
