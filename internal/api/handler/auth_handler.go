package handler

import (
	"net/http"

	"go.uber.org/zap"

	"soql-workbench/internal/model"
	"soql-workbench/internal/upstream"
)

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Success   bool           `json:"success"`
	UserInfo  model.UserInfo `json:"userInfo"`
	SessionID string         `json:"sessionId"`
}

// RefreshResponse is returned by a successful session refresh.
type RefreshResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// AuthStatus reports whether the caller holds a live session.
type AuthStatus struct {
	Authenticated bool            `json:"authenticated"`
	UserInfo      *model.UserInfo `json:"userInfo"`
	SessionID     *string         `json:"sessionId"`
}

// Login authenticates against the upstream platform and opens a session
// @Summary Log in
// @Description Authenticate with the upstream platform and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body upstream.Credentials true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 401 {object} ErrorResponse "Login failed"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds upstream.Credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	conn, user, err := h.upstream.Login(r.Context(), creds)
	if err != nil {
		h.metrics.Logins.WithLabelValues("failure").Inc()
		h.logger.Warn("login failed",
			zap.String("username", creds.Username),
			zap.String("environment", creds.Environment),
			zap.Error(err))
		writeError(w, http.StatusUnauthorized, upstream.FriendlyLoginError(err))
		return
	}

	// A new login replaces whatever session the caller had
	if old := h.sessions.SessionID(r); old != "" {
		if err := h.sessions.Destroy(r.Context(), old); err != nil {
			h.logger.Warn("failed to drop previous session", zap.Error(err))
		}
	}

	sess, err := h.sessions.Create(r.Context(), *user, *conn)
	if err != nil {
		h.logger.Error("failed to store session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	h.metrics.Logins.WithLabelValues("success").Inc()
	h.sessions.SetCookie(w, sess.ID)

	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		UserInfo:  sess.User,
		SessionID: sess.ID,
	})
}

// Logout ends the caller's session
// @Summary Log out
// @Description Drop the session and its upstream connection. Always succeeds.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.sessions.SessionID(r); id != "" {
		if err := h.sessions.Destroy(r.Context(), id); err != nil {
			h.logger.Warn("failed to delete session", zap.String("session", id), zap.Error(err))
		}
	}
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RefreshSession extends the caller's session
// @Summary Refresh session
// @Description Reset the idle timeout of a live session
// @Tags auth
// @Produce json
// @Success 200 {object} RefreshResponse
// @Failure 401 {object} ErrorResponse "Session not found or expired"
// @Router /refresh-session [post]
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Lookup(r.Context(), h.sessions.SessionID(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Session not found or expired")
		return
	}
	h.sessions.SetCookie(w, sess.ID)
	writeJSON(w, http.StatusOK, RefreshResponse{
		Success:   true,
		Message:   "Session refreshed",
		SessionID: sess.ID,
	})
}

// AuthStatus reports the caller's authentication state
// @Summary Authentication status
// @Tags auth
// @Produce json
// @Success 200 {object} AuthStatus
// @Router /auth-status [get]
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	status := AuthStatus{}
	id := h.sessions.SessionID(r)
	if id != "" {
		status.SessionID = &id
		if sess, err := h.sessions.Lookup(r.Context(), id); err == nil {
			status.Authenticated = true
			status.UserInfo = &sess.User
		}
	}
	writeJSON(w, http.StatusOK, status)
}
