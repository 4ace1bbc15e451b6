package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clarify/internal/config"
)

func TestSendVerificationCode(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody sendRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(config.Email{APIKey: "re_test_key", BaseURL: ts.URL, From: "auth@clarifyapp.io"})
	if err := c.SendVerificationCode(context.Background(), "reader@example.com", "123456"); err != nil {
		t.Fatalf("failed to send: %v", err)
	}

	if gotAuth != "Bearer re_test_key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotPath != "/emails" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody.From != "auth@clarifyapp.io" {
		t.Errorf("unexpected from %q", gotBody.From)
	}
	if len(gotBody.To) != 1 || gotBody.To[0] != "reader@example.com" {
		t.Errorf("unexpected recipients %v", gotBody.To)
	}
	if !strings.Contains(gotBody.HTML, "123456") {
		t.Error("email body should contain the code")
	}
}

func TestSend_ProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(config.Email{APIKey: "bad", BaseURL: ts.URL, From: "auth@clarifyapp.io"})
	err := c.Send(context.Background(), "reader@example.com", "subject", "<p>hi</p>")
	if err == nil {
		t.Fatal("expected an error from a 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry the status, got %v", err)
	}
}

func TestSend_Disabled(t *testing.T) {
	c := NewClient(config.Email{From: "auth@clarifyapp.io"})
	if c.Enabled() {
		t.Error("client without an API key should be disabled")
	}
	if err := c.Send(context.Background(), "reader@example.com", "s", "b"); err == nil {
		t.Error("sending without an API key should fail")
	}
}
