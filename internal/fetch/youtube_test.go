package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// watchPage builds a minimal YouTube watch page embedding a caption track
// manifest pointing at trackURL.
func watchPage(title, trackURL string) string {
	manifest := ""
	if trackURL != "" {
		manifest = fmt.Sprintf(
			`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":%q,"languageCode":"en"}]}},`,
			trackURL)
	}
	return fmt.Sprintf(`<html><head><title>%s - YouTube</title></head><body>
<script>var ytInitialPlayerResponse = {%s"videoDetails":{"videoId":"x"}};var other = 1;</script>
</body></html>`, title, manifest)
}

const captionTrackXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="1.5">never gonna give</text>
  <text start="1.5" dur="2.0">you up</text>
</transcript>`

func newVideoTestClient(t *testing.T, title string, withTrack, withThumb bool) (*Client, func()) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		trackURL := ""
		if withTrack {
			trackURL = srv.URL + "/api/timedtext"
		}
		_, _ = w.Write([]byte(watchPage(title, trackURL)))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(captionTrackXML))
	})
	mux.HandleFunc("/vi/", func(w http.ResponseWriter, r *http.Request) {
		if !withThumb {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// Only the lowest-quality variant exists; higher ones 404.
		if r.URL.Path != "/vi/dQw4w9WgXcQ/default.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	})

	client := NewClient(srv.Client())
	client.watchBaseURL = srv.URL
	client.thumbnailBaseURL = srv.URL
	return client, srv.Close
}

func TestVideo(t *testing.T) {
	client, done := newVideoTestClient(t, "Great Video", true, true)
	defer done()

	video, err := client.Video(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Video failed: %v", err)
	}

	if video.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", video.ID)
	}
	if video.Title != "Great Video" {
		t.Errorf("Title = %q", video.Title)
	}
	if video.Transcript != "never gonna give you up" {
		t.Errorf("Transcript = %q", video.Transcript)
	}
	if string(video.Thumbnail) != "jpeg-bytes" {
		t.Errorf("Thumbnail = %q", video.Thumbnail)
	}
}

func TestVideo_NoCaptionTrack(t *testing.T) {
	client, done := newVideoTestClient(t, "Silent Video", false, true)
	defer done()

	_, err := client.Video(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if !errors.Is(err, ErrTranscriptUnavailable) {
		t.Errorf("expected ErrTranscriptUnavailable, got %v", err)
	}
}

func TestVideo_BadURL(t *testing.T) {
	client := NewClient(nil)
	if _, err := client.Video(context.Background(), "https://example.com/not-a-video"); err == nil {
		t.Error("expected error for a non-YouTube URL")
	}
}

func TestThumbnail_FallsThroughVariants(t *testing.T) {
	client, done := newVideoTestClient(t, "x", true, true)
	defer done()

	data, err := client.Thumbnail(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("Thumbnail = %q", data)
	}
}

func TestThumbnail_AllMissing(t *testing.T) {
	client, done := newVideoTestClient(t, "x", true, false)
	defer done()

	if _, err := client.Thumbnail(context.Background(), "dQw4w9WgXcQ"); err == nil {
		t.Error("expected error when every variant 404s")
	}
}

func TestCaptionTrackURL(t *testing.T) {
	page := watchPage("T", "https://captions.example/track")
	if got := captionTrackURL(page, "en"); got != "https://captions.example/track" {
		t.Errorf("captionTrackURL = %q", got)
	}

	if got := captionTrackURL("<html>no player data</html>", "en"); got != "" {
		t.Errorf("expected empty track URL, got %q", got)
	}
}
