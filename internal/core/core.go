package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AnalysedLink is the canonical analysis record for a distinct URL.
// Exactly one exists per hashed URL; once written it is never regenerated.
type AnalysedLink struct {
	HashedURL    string `json:"hashedUrl"`    // sha256 hex digest of the normalized URL, used as the document key
	Title        string `json:"title"`        // Cleaned-up title of the article or video
	IsClickBait  bool   `json:"isClickBait"`  // Verdict from the model
	ClarityScore int    `json:"clarityScore"` // 0-10 rubric score, higher = less clickbait-like
	Explanation  string `json:"explanation"`  // One-sentence explanation, prefixed with the score definition
	Answer       string `json:"answer"`       // Answer to the question posed in the title, if any
	Summary      string `json:"summary"`      // Brief summary of the content
	URL          string `json:"url"`          // The normalized URL that was analysed
	IsVideo      bool   `json:"isVideo"`      // Whether the link was classified as a video
	AnalysedAt   string `json:"analysedAt"`   // ISO-8601 UTC timestamp

	// IsAlreadyInHistory is set on responses only: whether the caller had
	// already analysed this URL before. It is not persisted.
	IsAlreadyInHistory *bool `json:"isAlreadyInHistory,omitempty"`
}

// HistoryItem is a per-user or per-device pointer to an AnalysedLink.
type HistoryItem struct {
	HistoryID    string       `json:"historyId"`
	AnalysedLink AnalysedLink `json:"analysedLink"`
}

// HistoryPage is one page of a caller's history, newest first.
type HistoryPage struct {
	UserHistory   []HistoryItem `json:"userHistory"`
	NextPageToken *string       `json:"nextPageToken"`
}

// FailedLink is an upsert-and-increment counter for repeated analysis
// failures on the same URL, kept for later inspection.
type FailedLink struct {
	URL              string `json:"url"`
	HashedURL        string `json:"hashedUrl"`
	VisitCount       int    `json:"visitCount"`
	FirstAttemptedAt string `json:"firstAttemptedAt"`
	LastAttemptedAt  string `json:"lastAttemptedAt"`
	Reason           string `json:"reason"`
}

// DeviceRecord tracks an anonymous device: its request counter for quota
// enforcement, and the user it was linked to once the caller signed in.
type DeviceRecord struct {
	DeviceID      string `json:"deviceId"`
	RequestCount  int    `json:"requestCount"`
	LastRequestAt string `json:"lastRequestAt"`
	UserID        string `json:"userId,omitempty"`
}

// Feedback is a free-form app feedback record.
type Feedback struct {
	DeviceID    string `json:"deviceId"`
	Email       string `json:"email,omitempty"`
	Rating      int    `json:"rating,omitempty"`
	Content     string `json:"feedbackContent"`
	SubmittedAt string `json:"submittedAt"`
}

// Subscriber is a newsletter signup record.
type Subscriber struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email"`
	SubscribedAt string `json:"subscribedAt"`
}

// Article is the extracted content of a web page.
type Article struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Content  string `json:"content"`
}

// Video is the fetched content of a YouTube video: the flattened caption
// transcript plus the best available thumbnail.
type Video struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
	Thumbnail  []byte `json:"-"`
}

// HashURL returns the sha256 hex digest of a normalized URL. The digest is
// the document key for analysed links, history rows and failure counters.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Timestamp returns the current time as an ISO-8601 UTC string with
// millisecond precision. The fixed width keeps lexicographic order equal to
// chronological order, which history pagination relies on.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
