package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clarify/internal/analyse"
	"clarify/internal/core"
	"clarify/internal/logger"
	"clarify/internal/metrics"
	"clarify/internal/store"
)

// analysisResult is the tagged envelope the analyse endpoint responds with.
type analysisResult struct {
	Status string                `json:"status"`
	Data   *core.AnalysedLink    `json:"data,omitempty"`
	Error  *analyse.RequestError `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondAnalysisError(w http.ResponseWriter, reqErr *analyse.RequestError) {
	respondJSON(w, reqErr.Status, analysisResult{Status: "error", Error: reqErr})
}

// analyseRequest is the share payload. The url field carries whatever the
// client shared, which may be prose with a URL buried in it.
type analyseRequest struct {
	URL      string `json:"url"`
	DeviceID string `json:"deviceId"`
}

func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	var req analyseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		respondAnalysisError(w, analyse.ErrNoURL)
		return
	}

	link, err := s.deps.Analyser.Analyse(r.Context(), analyse.Request{
		Input:    req.URL,
		UserID:   userIDFrom(r.Context()),
		DeviceID: deviceIDFrom(r.Context()),
	})
	if err != nil {
		var reqErr *analyse.RequestError
		if errors.As(err, &reqErr) {
			metrics.ObserveAnalysisFailure(failureStage(reqErr))
			respondAnalysisError(w, reqErr)
			return
		}
		logger.Error("analysis failed", err)
		respondAnalysisError(w, analyse.ErrInternal)
		return
	}

	metrics.ObserveAnalysis(analysisKind(link), analysisOutcome(link))
	respondJSON(w, http.StatusOK, analysisResult{Status: "success", Data: link})
}

func failureStage(reqErr *analyse.RequestError) string {
	switch reqErr {
	case analyse.ErrNoURL:
		return "input"
	case analyse.ErrContentFetch:
		return "fetch"
	case analyse.ErrModelEmpty:
		return "extract"
	case analyse.ErrModel:
		return "model"
	default:
		return "internal"
	}
}

func analysisKind(link *core.AnalysedLink) string {
	if link.IsVideo {
		return "video"
	}
	return "article"
}

func analysisOutcome(link *core.AnalysedLink) string {
	if link.IsAlreadyInHistory != nil && *link.IsAlreadyInHistory {
		return "cached"
	}
	return "fresh"
}

func historyParams(r *http.Request) (pageSize int, pageToken, keyword string) {
	pageSize = 10
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return pageSize, r.URL.Query().Get("pageToken"), r.URL.Query().Get("searchKeyword")
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	pageSize, pageToken, keyword := historyParams(r)
	page, err := s.deps.Store.UserHistory(r.Context(), userIDFrom(r.Context()), pageSize, pageToken, keyword)
	if err != nil {
		logger.Error("failed to read user history", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleClearUserHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.ClearUserHistory(r.Context(), userIDFrom(r.Context())); err != nil {
		logger.Error("failed to clear user history", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDOf(r)
	if deviceID == "" || deviceID == noDeviceID {
		respondError(w, http.StatusBadRequest, "A device ID is required.")
		return
	}
	pageSize, pageToken, keyword := historyParams(r)
	page, err := s.deps.Store.DeviceHistory(r.Context(), deviceID, pageSize, pageToken, keyword)
	if err != nil {
		logger.Error("failed to read device history", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleClearDeviceHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDOf(r)
	if deviceID == "" || deviceID == noDeviceID {
		respondError(w, http.StatusBadRequest, "A device ID is required.")
		return
	}
	if err := s.deps.Store.ClearDeviceHistory(r.Context(), deviceID); err != nil {
		logger.Error("failed to clear device history", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type feedbackRequest struct {
	DeviceID string `json:"deviceId"`
	Email    string `json:"email"`
	Rating   int    `json:"rating"`
	Content  string `json:"feedbackContent"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "Feedback content is required.")
		return
	}
	fb := &core.Feedback{
		DeviceID: req.DeviceID,
		Email:    req.Email,
		Rating:   req.Rating,
		Content:  req.Content,
	}
	if err := s.deps.Store.SaveFeedback(r.Context(), fb); err != nil {
		logger.Error("failed to save feedback", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "A valid email is required.")
		return
	}
	sub := &core.Subscriber{Email: strings.ToLower(strings.TrimSpace(req.Email)), Name: req.Name}
	err := s.deps.Store.SaveSubscriber(r.Context(), sub)
	if errors.Is(err, store.ErrAlreadySubscribed) {
		respondError(w, http.StatusConflict, "This email is already subscribed.")
		return
	}
	if err != nil {
		logger.Error("failed to save subscriber", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
