package core

import (
	"testing"
	"time"
)

func TestHashURL(t *testing.T) {
	a := HashURL("https://example.com/story")
	b := HashURL("https://example.com/story")
	if a != b {
		t.Error("the same URL must hash to the same key")
	}
	if len(a) != 64 {
		t.Errorf("expected a sha256 hex digest, got %d characters", len(a))
	}
	if HashURL("https://example.com/other") == a {
		t.Error("different URLs should not collide")
	}
}

func TestTimestamp_FixedWidthAndOrdered(t *testing.T) {
	ts := Timestamp()
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", ts); err != nil {
		t.Fatalf("timestamp %q is not in the expected format: %v", ts, err)
	}
	if len(ts) != len("2006-01-02T15:04:05.000Z") {
		t.Errorf("timestamp %q is not fixed width", ts)
	}
}
