package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Scientists Discover Thing</title>
  <meta property="og:title" content="OG Title">
</head>
<body>
  <nav>Home | About</nav>
  <h1>Scientists Discover Thing</h1>
  <h2>A closer look at the discovery</h2>
  <p>First paragraph of the article.</p>
  <p>Second paragraph with more detail.</p>
  <script>trackPageView();</script>
  <footer>Copyright</footer>
</body>
</html>`

func TestArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	client := NewClient(srv.Client())
	article, err := client.Article(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Article failed: %v", err)
	}

	if article.Title != "Scientists Discover Thing" {
		t.Errorf("Title = %q", article.Title)
	}
	if article.Subtitle != "A closer look at the discovery" {
		t.Errorf("Subtitle = %q", article.Subtitle)
	}
	if article.Content != "First paragraph of the article.\nSecond paragraph with more detail." {
		t.Errorf("Content = %q", article.Content)
	}
}

func TestArticle_OGTitleFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Fallback Title"></head><body><p>Body text.</p></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	defer srv.Close()

	article, err := NewClient(srv.Client()).Article(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Article failed: %v", err)
	}
	if article.Title != "Fallback Title" {
		t.Errorf("Title = %q, want og:title fallback", article.Title)
	}
}

func TestArticle_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div>no paragraphs, no title</div></body></html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client()).Article(context.Background(), srv.URL)
	if !errors.Is(err, ErrNoArticle) {
		t.Errorf("expected ErrNoArticle, got %v", err)
	}
}

func TestArticle_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.Client()).Article(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404 page")
	}
}
