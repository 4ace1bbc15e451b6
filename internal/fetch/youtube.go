package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"clarify/internal/core"
	"clarify/internal/urlx"

	"github.com/PuerkitoBio/goquery"
)

// ErrTranscriptUnavailable is returned when a video has no usable caption
// track. Distinguishable so callers can report it as a content failure
// rather than a transport error.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

const (
	defaultWatchBaseURL     = "https://www.youtube.com"
	defaultThumbnailBaseURL = "https://img.youtube.com"
)

// thumbnailVariants are tried in descending quality order; missing variants
// 404 and the next one is tried.
var thumbnailVariants = []string{
	"maxresdefault", "sddefault", "hqdefault", "mqdefault", "default",
}

// playerResponseRe locates the embedded player data object on a watch page.
var playerResponseRe = regexp.MustCompile(`var ytInitialPlayerResponse = `)

// playerResponse is the slice of YouTube's player data we care about: the
// caption track manifest.
type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

// captionXML is the shape of a fetched caption track.
type captionXML struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

type thumbnailResult struct {
	data []byte
	err  error
}

// Video fetches everything the model needs to judge a YouTube link: the
// video title, the flattened caption transcript and the best available
// thumbnail. Transcript and thumbnail are fetched concurrently.
func (c *Client) Video(ctx context.Context, videoURL string) (*core.Video, error) {
	videoID, ok := urlx.YouTubeVideoID(videoURL)
	if !ok {
		return nil, fmt.Errorf("unable to extract video id from %s", videoURL)
	}

	thumbCh := make(chan thumbnailResult, 1)
	go func() {
		data, err := c.Thumbnail(ctx, videoID)
		thumbCh <- thumbnailResult{data: data, err: err}
	}()

	title, transcript, err := c.transcript(ctx, videoID)
	thumb := <-thumbCh
	if err != nil {
		return nil, err
	}
	if thumb.err != nil {
		return nil, fmt.Errorf("fetching thumbnail for %s: %w", videoID, thumb.err)
	}

	return &core.Video{
		ID:         videoID,
		Title:      title,
		Transcript: transcript,
		Thumbnail:  thumb.data,
	}, nil
}

// transcript fetches the watch page, locates the caption track manifest and
// flattens the preferred track (English, else the first) into plain text.
func (c *Client) transcript(ctx context.Context, videoID string) (title, transcript string, err error) {
	base := c.watchBaseURL
	if base == "" {
		base = defaultWatchBaseURL
	}

	page, err := c.get(ctx, fmt.Sprintf("%s/watch?v=%s", base, videoID))
	if err != nil {
		return "", "", fmt.Errorf("fetching watch page for %s: %w", videoID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err == nil {
		title = strings.TrimSpace(strings.TrimSuffix(doc.Find("title").First().Text(), " - YouTube"))
	}
	if title == "" {
		title = "Unknown title"
	}

	trackURL := captionTrackURL(string(page), "en")
	if trackURL == "" {
		return title, "", fmt.Errorf("video %s: %w", videoID, ErrTranscriptUnavailable)
	}

	raw, err := c.get(ctx, trackURL)
	if err != nil {
		return title, "", fmt.Errorf("fetching caption track for %s: %w", videoID, ErrTranscriptUnavailable)
	}

	var captions captionXML
	if err := xml.Unmarshal(raw, &captions); err != nil || len(captions.Texts) == 0 {
		return title, "", fmt.Errorf("parsing caption track for %s: %w", videoID, ErrTranscriptUnavailable)
	}

	parts := make([]string, 0, len(captions.Texts))
	for _, t := range captions.Texts {
		if text := strings.TrimSpace(t.Value); text != "" {
			parts = append(parts, text)
		}
	}
	return title, strings.Join(parts, " "), nil
}

// captionTrackURL digs the caption manifest out of the watch page and picks
// the track for langCode, falling back to the first available one.
func captionTrackURL(page, langCode string) string {
	loc := playerResponseRe.FindStringIndex(page)
	if loc == nil {
		return ""
	}

	blob := page[loc[1]:]
	end := strings.Index(blob, "};")
	if end == -1 {
		return ""
	}
	blob = blob[:end+1]

	var pr playerResponse
	if err := json.Unmarshal([]byte(blob), &pr); err != nil {
		return ""
	}

	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return ""
	}

	for _, track := range tracks {
		if strings.Contains(track.LanguageCode, langCode) {
			return track.BaseURL
		}
	}
	return tracks[0].BaseURL
}

// Thumbnail fetches the first available thumbnail image, trying resolution
// variants in descending quality order and skipping 404s.
func (c *Client) Thumbnail(ctx context.Context, videoID string) ([]byte, error) {
	base := c.thumbnailBaseURL
	if base == "" {
		base = defaultThumbnailBaseURL
	}

	for _, variant := range thumbnailVariants {
		url := fmt.Sprintf("%s/vi/%s/%s.jpg", base, videoID, variant)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching thumbnail %s: %w", url, err)
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching thumbnail %s: status %d", url, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading thumbnail %s: %w", url, err)
		}
		return data, nil
	}

	return nil, errors.New("all thumbnail variants failed")
}

// get issues a GET with the browser User-Agent and returns the body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
