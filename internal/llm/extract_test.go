package llm

import "testing"

func TestExtractJSON(t *testing.T) {
	reply := "```json\n{\"title\":\"A Title\",\"isClickBait\":true,\"clarityScore\":3,\"explanation\":\"why\",\"answer\":\"42\",\"summary\":\"short\"}\n```"

	verdict := ExtractJSON(reply)
	if verdict == nil {
		t.Fatal("expected a verdict")
	}
	if verdict.Title != "A Title" || !verdict.IsClickBait || verdict.ClarityScore != 3 {
		t.Errorf("verdict = %+v", verdict)
	}
	if verdict.Answer != "42" || verdict.Summary != "short" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestExtractJSON_ControlCharacters(t *testing.T) {
	// Raw control bytes inside a string value break encoding/json; the
	// parser must strip them and still recover the object.
	reply := "Here you go:\n```json\n{\"title\":\"A Title\",\"isClickBait\":false,\"clarityScore\":8,\"explanation\":\"e\",\"answer\":\"\",\"summary\":\"s\"}\n```\nHope that helps!"

	verdict := ExtractJSON(reply)
	if verdict == nil {
		t.Fatal("expected a verdict")
	}
	if verdict.Title != "A Title" {
		t.Errorf("Title = %q, want control characters stripped", verdict.Title)
	}
	if verdict.ClarityScore != 8 {
		t.Errorf("ClarityScore = %d", verdict.ClarityScore)
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	reply := `Sure! Based on the rubric the result is {"title":"T","isClickBait":true,"clarityScore":2,"explanation":"e","answer":"a","summary":"s"} - let me know if you need more.`

	verdict := ExtractJSON(reply)
	if verdict == nil {
		t.Fatal("expected a verdict")
	}
	if verdict.Title != "T" || verdict.ClarityScore != 2 {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestExtractJSON_TotalScoreAlias(t *testing.T) {
	reply := `{"title":"T","isClickBait":true,"totalScore":7,"explanation":"e","answer":"","summary":"s"}`

	verdict := ExtractJSON(reply)
	if verdict == nil {
		t.Fatal("expected a verdict")
	}
	if verdict.ClarityScore != 7 {
		t.Errorf("ClarityScore = %d, want totalScore alias applied", verdict.ClarityScore)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	for _, reply := range []string{
		"I cannot analyse this content.",
		"",
		"``` ```",
	} {
		if verdict := ExtractJSON(reply); verdict != nil {
			t.Errorf("ExtractJSON(%q) = %+v, want nil", reply, verdict)
		}
	}
}

func TestExtractJSON_MalformedJSON(t *testing.T) {
	if verdict := ExtractJSON(`{"title": "unterminated`); verdict != nil {
		t.Errorf("expected nil for malformed JSON, got %+v", verdict)
	}
}

func TestBuildLink(t *testing.T) {
	verdict := &Verdict{Title: "T", IsClickBait: true, ClarityScore: 4, Explanation: "too dramatic.", Summary: "s"}

	link := buildLink(verdict, "https://example.com/a", false)
	if link.HashedURL == "" {
		t.Error("expected hashed URL")
	}
	if link.IsVideo {
		t.Error("article verdict marked as video")
	}
	if link.Explanation == "too dramatic." {
		t.Error("expected clarity score definition prefix on explanation")
	}

	video := buildLink(verdict, "https://youtu.be/abc12345678", true)
	if !video.IsVideo {
		t.Error("video verdict not marked as video")
	}
}
