package urlx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"plain url", "https://example.com/a", "https://example.com/a", true},
		{"text before url", "check this out https://example.com/a", "https://example.com/a", true},
		{"last url wins", "https://first.com and https://second.com/b", "https://second.com/b", true},
		{"www without scheme", "look at www.example.com/page", "http://www.example.com/page", true},
		{"trailing punctuation", "read https://example.com/a.", "https://example.com/a", true},
		{"percent encoded", "https://example.com/a%20b", "https://example.com/a b", true},
		{"no url", "nothing to see here", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Extract(tt.input)
			if found != tt.found {
				t.Fatalf("Extract(%q) found = %v, want %v", tt.input, found, tt.found)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractIdempotent(t *testing.T) {
	canonical := "https://example.com/a"
	got, found := Extract(canonical)
	if !found || got != canonical {
		t.Errorf("extracting an already-canonical URL changed it: %q -> %q", canonical, got)
	}
}

func TestResolve_GoogleRedirect(t *testing.T) {
	wrapped := "https://www.google.com/url?url=https%3A%2F%2Fexample.com%2Fstory"
	got, err := Resolve(context.Background(), nil, wrapped)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "https://example.com/story" {
		t.Errorf("Resolve(%q) = %q, want unwrapped target", wrapped, got)
	}
}

func TestResolve_FollowsRedirects(t *testing.T) {
	var final string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	final = srv.URL + "/final"

	got, err := Resolve(context.Background(), srv.Client(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != final {
		t.Errorf("Resolve = %q, want %q", got, final)
	}
}

func TestResolve_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Resolve(context.Background(), srv.Client(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestUnwrapSpecialCases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"amp cache",
			"https://example-com.cdn.ampproject.org/v/s/example.com/news/story",
			"https://example.com/news/story",
		},
		{
			"amp cache c path",
			"https://example-com.cdn.ampproject.org/c/s/example.com/post",
			"https://example.com/post",
		},
		{
			"not amp",
			"https://example.com/a",
			"https://example.com/a",
		},
		{
			"malformed amp path stays put",
			"https://foo.cdn.ampproject.org/v",
			"https://foo.cdn.ampproject.org/v",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapSpecialCases(tt.in); got != tt.want {
				t.Errorf("UnwrapSpecialCases(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestYouTubeURL(t *testing.T) {
	url, ok := YouTubeURL("watch this https://youtu.be/abc12345678 now")
	if !ok {
		t.Fatal("expected a YouTube URL to be detected")
	}
	if url != "https://youtu.be/abc12345678" {
		t.Errorf("YouTubeURL = %q", url)
	}

	if _, ok := YouTubeURL("check this out https://example.com/a"); ok {
		t.Error("article URL misclassified as video")
	}
}

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/abc12345678", "abc12345678", true},
		{"https://www.youtube.com/shorts/abc12345678", "abc12345678", true},
		{"https://www.youtube.com/embed/abc12345678", "abc12345678", true},
		{"abc12345678", "abc12345678", true},
		{"https://www.youtube.com/feed/subscriptions", "", false},
		{"https://example.com/watch?v=tooShort", "", false},
	}

	for _, tt := range tests {
		got, ok := YouTubeVideoID(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("YouTubeVideoID(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
