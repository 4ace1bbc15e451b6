// Package fetch acquires the content an analysis is scored against:
// article pages parsed with goquery, and YouTube caption transcripts.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clarify/internal/core"

	"github.com/PuerkitoBio/goquery"
)

// userAgent is sent on every outbound fetch; several news sites and
// YouTube serve reduced pages to unknown clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ErrNoArticle is returned when a page yields neither a title nor body text.
var ErrNoArticle = errors.New("no article content found")

// Client fetches and extracts remote content.
type Client struct {
	http *http.Client

	// Overridable in tests; empty means the real YouTube hosts.
	watchBaseURL     string
	thumbnailBaseURL string
}

// NewClient creates a fetch client. A nil httpClient gets a default with a
// 30 second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient}
}

// Article fetches a web page and extracts title, subtitle and body text.
// Extraction is best effort: the title falls back from <title> to OpenGraph
// to the first h1, the body is the concatenated paragraph text. ErrNoArticle
// is returned when both title and body come up empty.
func (c *Client) Article(ctx context.Context, pageURL string) (*core.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	article := &core.Article{
		Title:    extractTitle(doc),
		Subtitle: strings.TrimSpace(doc.Find("h2").First().Text()),
		Content:  extractBody(doc),
	}

	if article.Title == "" && article.Content == "" {
		return nil, ErrNoArticle
	}
	return article, nil
}

// extractTitle tries common title locations in order of reliability.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content"); strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractBody collects paragraph text. Scripts, styles and navigation are
// dropped first so boilerplate does not leak into the prompt.
func extractBody(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript").Remove()

	var b strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})
	return strings.TrimSpace(b.String())
}
