package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Verdict is the model's parsed reply. ClarityScore is canonical;
// TotalScore is accepted as an alias because older prompt revisions asked
// for it and models occasionally echo rubric terminology.
type Verdict struct {
	Title        string `json:"title"`
	IsClickBait  bool   `json:"isClickBait"`
	ClarityScore int    `json:"clarityScore"`
	TotalScore   int    `json:"totalScore"`
	Explanation  string `json:"explanation"`
	Answer       string `json:"answer"`
	Summary      string `json:"summary"`
}

var codeFenceRe = regexp.MustCompile("```json\\s*|```")

// ExtractJSON locates and parses the JSON object embedded in a model reply.
// Replies routinely arrive wrapped in code fences and sprinkled with control
// characters; both are stripped before parsing. Returns nil when no JSON
// object can be recovered.
func ExtractJSON(reply string) *Verdict {
	clean := codeFenceRe.ReplaceAllString(reply, "")
	clean = stripControlChars(clean)

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(clean[start:end+1]), &verdict); err != nil {
		return nil
	}

	if verdict.ClarityScore == 0 && verdict.TotalScore != 0 {
		verdict.ClarityScore = verdict.TotalScore
	}
	return &verdict
}

// stripControlChars removes U+0000 through U+001F, which break JSON parsing
// when models emit raw newlines or stray bytes inside string values.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
