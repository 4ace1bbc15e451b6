// Package urlx extracts, normalizes and classifies URLs found in shared
// text. Share sheets hand over free text that may wrap the link in a
// redirector or an AMP cache URL; everything downstream keys on the
// canonical URL this package produces.
package urlx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// urlPattern matches http(s) URLs and bare www. hosts in free text.
var urlPattern = regexp.MustCompile(`(https?://[^\s]+|www\.[^\s]+)`)

// youtubePattern matches YouTube video links in any of the hosts the app accepts.
var youtubePattern = regexp.MustCompile(`https?://(?:www\.youtube\.com|m\.youtube\.com|youtube\.com|youtu\.be)/[^\s]+`)

// videoIDPatterns covers the URL shapes a video id can arrive in.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
}

// bareVideoID matches a video id passed on its own, without a URL.
var bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Extract finds the last URL-looking substring in the input and returns it
// with a scheme prepended when missing. Share text often ends with the link,
// so the last match wins. The second return is false when no URL is present.
func Extract(input string) (string, bool) {
	matches := urlPattern.FindAllString(input, -1)
	if len(matches) == 0 {
		return "", false
	}

	candidate := strings.TrimRight(matches[len(matches)-1], ".,;)")
	if !strings.HasPrefix(candidate, "http") {
		candidate = "http://" + candidate
	}

	if decoded, err := url.QueryUnescape(candidate); err == nil {
		candidate = decoded
	}
	return candidate, true
}

// Resolve follows a candidate URL to its final location. Google result-page
// redirector URLs are unwrapped locally; anything else is fetched and the
// final URL after redirects is returned. A nil client falls back to
// http.DefaultClient.
func Resolve(ctx context.Context, client *http.Client, raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}

	if parsed.Hostname() == "www.google.com" && parsed.Path == "/url" {
		if target := parsed.Query().Get("url"); target != "" {
			if decoded, derr := url.QueryUnescape(target); derr == nil {
				return decoded, nil
			}
			return target, nil
		}
	}

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %q: %w", raw, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", raw, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Some hosts answer redirects without letting the client follow;
		// honor a single relative or absolute Location hop.
		if loc := resp.Header.Get("Location"); loc != "" {
			if resolved, rerr := parsed.Parse(loc); rerr == nil {
				return resolved.String(), nil
			}
		}
		return "", fmt.Errorf("resolving %q: status %d", raw, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}

// UnwrapSpecialCases strips known link-wrapping hosts from an already
// resolved URL. Currently the only special case is the Google AMP cache,
// whose paths look like /c/s/example.com/article or /v/s/example.com/article.
// The original URL is returned untouched when no case matches.
func UnwrapSpecialCases(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if strings.Contains(parsed.Host, "cdn.ampproject.org") {
		return unwrapAMP(parsed)
	}

	return raw
}

func unwrapAMP(parsed *url.URL) string {
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	// AMP cache paths carry the target after a "c" or "v" marker and an
	// optional "s" (https) flag.
	start := -1
	for i, seg := range segments {
		if seg == "c" || seg == "v" {
			start = i + 1
			break
		}
	}
	if start == -1 || start >= len(segments) {
		return parsed.String()
	}
	if segments[start] == "s" {
		start++
	}
	if start >= len(segments) || segments[start] == "" {
		return parsed.String()
	}

	return "https://" + strings.Join(segments[start:], "/")
}

// YouTubeURL reports whether the input contains a YouTube video link and
// returns the matched link when it does.
func YouTubeURL(input string) (string, bool) {
	match := youtubePattern.FindString(input)
	if match == "" {
		return "", false
	}
	return strings.TrimRight(match, ".,;)"), true
}

// YouTubeVideoID extracts the canonical 11-character video id from a URL in
// any accepted shape (watch, shorts, embed, youtu.be short link) or from a
// bare id.
func YouTubeVideoID(urlOrID string) (string, bool) {
	if bareVideoID.MatchString(urlOrID) {
		return urlOrID, true
	}
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(urlOrID); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}
