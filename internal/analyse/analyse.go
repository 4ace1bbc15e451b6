// Package analyse orchestrates a single analysis request: pull a URL out of
// the shared text, normalize it, reuse a cached verdict when one exists,
// otherwise fetch the content, ask the model, and persist the result.
package analyse

import (
	"context"
	"net/http"

	"clarify/internal/core"
	"clarify/internal/logger"
	"clarify/internal/urlx"
)

// Fetcher retrieves the content behind a URL.
type Fetcher interface {
	Article(ctx context.Context, url string) (*core.Article, error)
	Video(ctx context.Context, url string) (*core.Video, error)
}

// Analyzer produces a verdict for fetched content. A (nil, nil) return means
// the model replied but no verdict could be read out of the reply.
type Analyzer interface {
	AnalyseArticle(ctx context.Context, article *core.Article, url string) (*core.AnalysedLink, error)
	AnalyseVideo(ctx context.Context, video *core.Video, url string) (*core.AnalysedLink, error)
}

// Store is the persistence the service needs.
type Store interface {
	GetAnalysedLink(ctx context.Context, hashedURL string) (*core.AnalysedLink, error)
	SaveAnalysedLink(ctx context.Context, link *core.AnalysedLink) (*core.AnalysedLink, error)
	AddUserHistory(ctx context.Context, userID, hashedURL string) (string, bool, error)
	AddDeviceHistory(ctx context.Context, deviceID, hashedURL string) (string, bool, error)
	RecordFailedLink(ctx context.Context, url, hashedURL, reason string) error
}

// Request is one analysis request. Exactly one of UserID and DeviceID
// identifies the caller; UserID wins when both are set.
type Request struct {
	Input    string
	UserID   string
	DeviceID string
}

// Service wires the pipeline together.
type Service struct {
	fetcher  Fetcher
	llm      Analyzer
	store    Store
	resolver *http.Client
}

// NewService builds a Service. A nil resolver falls back to the default
// HTTP client for redirect resolution.
func NewService(fetcher Fetcher, llm Analyzer, store Store, resolver *http.Client) *Service {
	if resolver == nil {
		resolver = http.DefaultClient
	}
	return &Service{fetcher: fetcher, llm: llm, store: store, resolver: resolver}
}

// Analyse runs the full pipeline and returns the analysis linked into the
// caller's history. Errors are *RequestError values carrying the HTTP status
// and client-facing message.
func (s *Service) Analyse(ctx context.Context, req Request) (*core.AnalysedLink, error) {
	targetURL, isVideo, err := s.normalize(ctx, req.Input)
	if err != nil {
		return nil, err
	}
	hashedURL := core.HashURL(targetURL)

	existing, err := s.store.GetAnalysedLink(ctx, hashedURL)
	if err != nil {
		logger.Error("failed to look up cached analysis", err, "hashedUrl", hashedURL)
		return nil, ErrInternal
	}
	if existing != nil {
		logger.Debug("reusing cached analysis", "url", targetURL)
		return s.attachHistory(ctx, req, existing)
	}

	link, err := s.analyseContent(ctx, targetURL, isVideo)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.SaveAnalysedLink(ctx, link)
	if err != nil {
		logger.Error("failed to persist analysis", err, "url", targetURL)
		return nil, ErrInternal
	}
	return s.attachHistory(ctx, req, stored)
}

// normalize turns raw shared text into the URL to analyse. YouTube links are
// taken as shared, everything else goes through redirect resolution and
// AMP or Google wrapper unwrapping.
func (s *Service) normalize(ctx context.Context, input string) (string, bool, error) {
	if videoURL, ok := urlx.YouTubeURL(input); ok {
		return videoURL, true, nil
	}

	raw, ok := urlx.Extract(input)
	if !ok {
		return "", false, ErrNoURL
	}

	resolved, err := urlx.Resolve(ctx, s.resolver, raw)
	if err != nil {
		logger.Warn("failed to resolve shared URL", "url", raw, "error", err)
		s.recordFailure(ctx, raw, "could not resolve URL: "+err.Error())
		return "", false, ErrContentFetch
	}

	final := urlx.UnwrapSpecialCases(resolved)
	if videoURL, ok := urlx.YouTubeURL(final); ok {
		return videoURL, true, nil
	}
	return final, false, nil
}

func (s *Service) analyseContent(ctx context.Context, targetURL string, isVideo bool) (*core.AnalysedLink, error) {
	var (
		video   *core.Video
		article *core.Article
		err     error
	)
	if isVideo {
		video, err = s.fetcher.Video(ctx, targetURL)
	} else {
		article, err = s.fetcher.Article(ctx, targetURL)
	}
	if err != nil {
		logger.Warn("failed to fetch content", "url", targetURL, "error", err)
		s.recordFailure(ctx, targetURL, "could not fetch content: "+err.Error())
		return nil, ErrContentFetch
	}

	var link *core.AnalysedLink
	if isVideo {
		link, err = s.llm.AnalyseVideo(ctx, video, targetURL)
	} else {
		link, err = s.llm.AnalyseArticle(ctx, article, targetURL)
	}
	if err != nil {
		logger.Warn("model call failed", "url", targetURL, "error", err)
		s.recordFailure(ctx, targetURL, "model call failed: "+err.Error())
		return nil, ErrModel
	}
	if link == nil {
		logger.Warn("model reply had no readable verdict", "url", targetURL)
		s.recordFailure(ctx, targetURL, "model reply had no readable verdict")
		return nil, ErrModelEmpty
	}
	return link, nil
}

// attachHistory links the analysis into the caller's history and stamps the
// response with the caller's own view of it: when they analysed it and
// whether they had seen it before.
func (s *Service) attachHistory(ctx context.Context, req Request, link *core.AnalysedLink) (*core.AnalysedLink, error) {
	var (
		analysedAt string
		already    bool
		err        error
	)
	if req.UserID != "" {
		analysedAt, already, err = s.store.AddUserHistory(ctx, req.UserID, link.HashedURL)
	} else {
		analysedAt, already, err = s.store.AddDeviceHistory(ctx, req.DeviceID, link.HashedURL)
	}
	if err != nil {
		logger.Error("failed to record history", err, "hashedUrl", link.HashedURL)
		return nil, ErrInternal
	}

	result := *link
	result.AnalysedAt = analysedAt
	result.IsAlreadyInHistory = &already
	return &result, nil
}

func (s *Service) recordFailure(ctx context.Context, url, reason string) {
	if err := s.store.RecordFailedLink(ctx, url, core.HashURL(url), reason); err != nil {
		logger.Error("failed to record failed link", err, "url", url)
	}
}
