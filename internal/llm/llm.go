// Package llm calls the Gemini API to score a link, and parses the model's
// textual reply back into a structured verdict.
package llm

import (
	"context"
	"fmt"

	"clarify/internal/config"
	"clarify/internal/core"
	"clarify/internal/logger"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Client wraps a Gemini client with the generation settings the scoring
// rubric was tuned against.
type Client struct {
	modelName string
	cfg       config.Gemini
	gClient   *genai.Client
}

// NewClient creates an LLM client from the Gemini configuration. The API
// key is required; the model falls back to DefaultModel.
func NewClient(ctx context.Context, cfg config.Gemini) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in the config file")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName: modelName,
		cfg:       cfg,
		gClient:   gClient,
	}, nil
}

// AnalyseArticle scores an article against the clickbait rubric and returns
// the verdict stamped with the URL. A nil verdict with nil error means the
// model replied but no JSON could be recovered.
func (c *Client) AnalyseArticle(ctx context.Context, article *core.Article, url string) (*core.AnalysedLink, error) {
	prompt := articlePrompt(article.Title, article.Subtitle, article.Content)

	reply, err := c.generate(ctx, clickbaitArticleCriteria, []*genai.Part{genai.NewPartFromText(prompt)})
	if err != nil {
		return nil, fmt.Errorf("article analysis for %s: %w", url, err)
	}

	verdict := ExtractJSON(reply)
	if verdict == nil {
		logger.Warn("No JSON found in model reply", "url", url)
		return nil, nil
	}
	return buildLink(verdict, url, false), nil
}

// AnalyseVideo scores a video by sending the transcript prompt together with
// the thumbnail as an inline JPEG part.
func (c *Client) AnalyseVideo(ctx context.Context, video *core.Video, url string) (*core.AnalysedLink, error) {
	parts := []*genai.Part{genai.NewPartFromText(videoPrompt(video.Title, video.Transcript))}
	if len(video.Thumbnail) > 0 {
		parts = append(parts, genai.NewPartFromBytes(video.Thumbnail, "image/jpeg"))
	}

	reply, err := c.generate(ctx, clickbaitVideoCriteria, parts)
	if err != nil {
		return nil, fmt.Errorf("video analysis for %s: %w", url, err)
	}

	verdict := ExtractJSON(reply)
	if verdict == nil {
		logger.Warn("No JSON found in model reply", "url", url)
		return nil, nil
	}
	return buildLink(verdict, url, true), nil
}

// generate sends the few-shot examples plus the user parts to the model and
// returns the raw text reply.
func (c *Client) generate(ctx context.Context, systemInstruction string, userParts []*genai.Part) (string, error) {
	contents := fewShotContents()
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: userParts})

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemInstruction)}},
		Temperature:       genai.Ptr(c.cfg.Temperature),
		TopP:              genai.Ptr(c.cfg.TopP),
		TopK:              genai.Ptr(c.cfg.TopK),
		MaxOutputTokens:   c.cfg.MaxTokens,
		SafetySettings:    safetySettings(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// fewShotContents converts the constant example turns into fresh content
// values for a single call. Nothing here is shared between requests.
func fewShotContents() []*genai.Content {
	contents := make([]*genai.Content, 0, len(fewShotExamples)*2)
	for _, example := range fewShotExamples {
		contents = append(contents,
			&genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(example.user)}},
			&genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{genai.NewPartFromText(example.model)}},
		)
	}
	return contents
}

// safetySettings disables the default blocking thresholds: the content being
// judged is third-party and blocking it would turn analyses into failures.
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}

// buildLink turns a parsed verdict into the canonical record: the clarity
// score definition is prepended to the explanation and the URL, video flag
// and hash are stamped on.
func buildLink(verdict *Verdict, url string, isVideo bool) *core.AnalysedLink {
	definition := clarityScoreDefinitionArticle
	if isVideo {
		definition = clarityScoreDefinitionVideo
	}

	return &core.AnalysedLink{
		HashedURL:    core.HashURL(url),
		Title:        verdict.Title,
		IsClickBait:  verdict.IsClickBait,
		ClarityScore: verdict.ClarityScore,
		Explanation:  definition + verdict.Explanation,
		Answer:       verdict.Answer,
		Summary:      verdict.Summary,
		URL:          url,
		IsVideo:      isVideo,
	}
}
