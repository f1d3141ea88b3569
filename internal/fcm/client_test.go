package fcm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prophive/push-dispatcher/internal/payload"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend_RequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"name":"projects/test-project/messages/1"}`))
	}))
	defer srv.Close()

	client := NewClient("test-project", discardLogger(), WithEndpoint(srv.URL))

	n := payload.Notification{Title: "Rent overdue", Body: "Unit 4B"}
	res, err := client.Send(context.Background(), "bearer-token", "device-token", n, map[string]string{"event_id": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Success {
		t.Error("expected success for 200 response")
	}
	if gotPath != "/v1/projects/test-project/messages:send" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer bearer-token" {
		t.Errorf("authorization: got %q", gotAuth)
	}

	msg, ok := gotBody["message"].(map[string]any)
	if !ok {
		t.Fatal("request missing message object")
	}
	if msg["token"] != "device-token" {
		t.Errorf("token: got %v", msg["token"])
	}

	android, ok := msg["android"].(map[string]any)
	if !ok {
		t.Fatal("request missing android config")
	}
	if android["priority"] != "high" {
		t.Errorf("android priority: got %v", android["priority"])
	}
	androidNotif := android["notification"].(map[string]any)
	if androidNotif["channel_id"] != "high_importance_channel" {
		t.Errorf("channel_id: got %v", androidNotif["channel_id"])
	}

	apnsCfg, ok := msg["apns"].(map[string]any)
	if !ok {
		t.Fatal("request missing apns config")
	}
	apsObj := apnsCfg["payload"].(map[string]any)["aps"].(map[string]any)
	if apsObj["badge"] != float64(1) || apsObj["sound"] != "default" {
		t.Errorf("aps: got %v", apsObj)
	}
}

func TestSend_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"status":"UNREGISTERED"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-project", discardLogger(), WithEndpoint(srv.URL))

	res, err := client.Send(context.Background(), "b", "t", payload.Notification{}, nil)
	if err != nil {
		t.Fatalf("provider rejection must not be a transport error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for 404 response")
	}
	if !strings.Contains(string(res.Body), "UNREGISTERED") {
		t.Errorf("body should carry the provider response, got %s", res.Body)
	}
}

func TestSend_UnparseableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	client := NewClient("test-project", discardLogger(), WithEndpoint(srv.URL))

	res, err := client.Send(context.Background(), "b", "t", payload.Notification{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for 502 response")
	}

	var synthesized struct {
		Error struct {
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(res.Body, &synthesized); err != nil {
		t.Fatalf("synthesized body must be valid JSON: %v", err)
	}
	if synthesized.Error.Status != http.StatusBadGateway {
		t.Errorf("status: got %d", synthesized.Error.Status)
	}
}

func TestSend_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient("test-project", discardLogger(), WithEndpoint(srv.URL))

	_, err := client.Send(context.Background(), "b", "t", payload.Notification{}, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
}
