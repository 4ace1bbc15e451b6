package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"clarify/internal/auth"
	"clarify/internal/logger"
)

type sendCodeRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "A valid email is required.")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !s.deps.Email.Enabled() {
		logger.Error("verification code requested but email is not configured", nil)
		respondError(w, http.StatusInternalServerError, "Sign-in is not available right now.")
		return
	}

	code, err := auth.GenerateCode()
	if err != nil {
		logger.Error("failed to generate verification code", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	if err := s.deps.Store.SaveVerificationCode(r.Context(), email, code); err != nil {
		logger.Error("failed to store verification code", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	if err := s.deps.Email.SendVerificationCode(r.Context(), email, code); err != nil {
		logger.Error("failed to email verification code", err)
		respondError(w, http.StatusInternalServerError, "We could not send the code. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verifyCodeRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	DeviceID string `json:"deviceId"`
}

type verifyCodeResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// handleVerifyCode turns a valid code into a session: the email's stable
// user ID, the device's history migrated over, and a signed bearer token.
func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		respondError(w, http.StatusBadRequest, "Email and code are required.")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ok, err := s.deps.Store.ConsumeVerificationCode(r.Context(), email, req.Code, s.deps.Auth.CodeNotBefore())
	if err != nil {
		logger.Error("failed to check verification code", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	if !ok {
		respondError(w, http.StatusUnauthorized, "The code is invalid or has expired.")
		return
	}

	userID := auth.UserIDForEmail(email)

	if req.DeviceID != "" && req.DeviceID != noDeviceID {
		if err := s.deps.Store.LinkDeviceToUser(r.Context(), req.DeviceID, userID); err != nil {
			logger.Error("failed to link device on sign-in", err, "deviceId", req.DeviceID)
		}
		if err := s.deps.Store.MigrateDeviceHistory(r.Context(), req.DeviceID, userID); err != nil {
			logger.Error("failed to migrate device history", err, "deviceId", req.DeviceID)
		}
	}

	token, err := s.deps.Auth.IssueToken(userID)
	if err != nil {
		logger.Error("failed to issue token", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, verifyCodeResponse{Token: token, UserID: userID})
}
