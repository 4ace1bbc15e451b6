package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"clarify/internal/analyse"
	"clarify/internal/logger"
	"clarify/internal/metrics"
)

type contextKey string

const (
	userIDKey   contextKey = "userID"
	deviceIDKey contextKey = "deviceID"
)

// noDeviceID is the sentinel share-extension clients send before they have
// generated an identifier. It never earns quota.
const noDeviceID = "NO_DEVICE_ID"

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func deviceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey).(string)
	return id
}

// deviceIDOf reads the caller's device identifier from the X-Device-Id
// header, falling back to the deviceId query parameter.
func deviceIDOf(r *http.Request) string {
	if id := r.Header.Get("X-Device-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("deviceId")
}

// deviceIDFromBody peeks at a JSON request body for a deviceId field and
// puts the body back for the handler. Share-extension clients send the
// device id inline rather than as a header.
func deviceIDFromBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var payload struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.DeviceID
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

// userOrDevice identifies the caller. A valid bearer token makes the
// request a user request with no quota; otherwise a device ID is required
// and the anonymous quota applies. At the ceiling the response is an HTTP
// 200 error envelope so older share-extension clients still show it.
func (s *Server) userOrDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := deviceIDOf(r)
		if deviceID == "" {
			deviceID = deviceIDFromBody(r)
		}

		if token := bearerToken(r); token != "" {
			userID, err := s.deps.Auth.VerifyToken(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			if deviceID != "" && deviceID != noDeviceID {
				ctx = context.WithValue(ctx, deviceIDKey, deviceID)
				if err := s.deps.Store.LinkDeviceToUser(ctx, deviceID, userID); err != nil {
					logger.Error("failed to link device to user", err, "deviceId", deviceID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if deviceID == "" || deviceID == noDeviceID {
			respondError(w, http.StatusBadRequest, "A device ID is required.")
			return
		}

		allowed, err := s.deps.Store.CountDeviceRequest(r.Context(), deviceID, s.deps.QuotaLimit)
		if err != nil {
			logger.Error("failed to check device quota", err, "deviceId", deviceID)
			respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
			return
		}
		if !allowed {
			metrics.ObserveQuotaRefusal()
			respondAnalysisError(w, analyse.ErrQuotaExceeded)
			return
		}

		ctx := context.WithValue(r.Context(), deviceIDKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser admits bearer-token requests only.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Sign in to use this endpoint.")
			return
		}
		userID, err := s.deps.Auth.VerifyToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
