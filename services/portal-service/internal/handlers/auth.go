package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/session"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/captcha"
)

// Form fields shared by the gated routes.
type captchaFields struct {
	CaptchaToken     string `json:"captchaToken"`
	CaptchaProvider  string `json:"captchaProvider"`
	CaptchaChallenge string `json:"captchaChallenge"`
}

func (c captchaFields) token() captcha.Token {
	return captcha.Token{Token: c.CaptchaToken, Provider: c.CaptchaProvider, Challenge: c.CaptchaChallenge}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	captchaFields
}

type codeRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	Session          session.Snapshot `json:"session"`
	VerificationType string           `json:"verificationType,omitempty"`
	ExpiresAt        string           `json:"expiresAt,omitempty"`
}

type verifyResponse struct {
	Session session.Snapshot      `json:"session"`
	User    *backend.VerifiedUser `json:"user,omitempty"`
}

type logoutResponse struct {
	Session      session.Snapshot `json:"session"`
	RemoteLogout string           `json:"remoteLogout"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.existingSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	if sess == nil {
		sess = session.New()
	}
	httpx.WriteJSON(w, http.StatusOK, sess.Snapshot())
}

// resetSession forgets the visitor locally without calling the backend.
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.existingSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	if sess != nil {
		if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
			s.sessionFailure(w, r, err)
			return
		}
	}
	s.expireCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !s.captcha.Allow(r, "login", req.token()) {
		httpx.WriteError(w, http.StatusForbidden, "captcha verification failed")
		return
	}
	sess, err := s.loadSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	data, err := s.flow.InitiateLogin(r.Context(), sess, backend.LoginRequest{
		Identifier: req.Identifier,
		Role:       req.Role,
		Password:   req.Password,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.saveSession(w, r, sess); err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Session:          sess.Snapshot(),
		VerificationType: data.VerificationType,
		ExpiresAt:        data.ExpiresAt,
	})
}

func (s *Server) verifyLogin(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeCode(w, r, &req) {
		return
	}
	sess, err := s.loadSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	data, err := s.flow.VerifyLogin(r.Context(), sess, req.Code)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.saveSession(w, r, sess); err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, verifyResponse{Session: sess.Snapshot(), User: data.User})
}

// logout clears local state even when the backend call fails; the outcome
// of the remote call is reported alongside.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.existingSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	if sess == nil {
		s.expireCookie(w)
		httpx.WriteJSON(w, http.StatusOK, logoutResponse{Session: session.New().Snapshot(), RemoteLogout: "skipped"})
		return
	}
	remote := "skipped"
	if sess.SessionToken != "" {
		remote = "ok"
	}
	if err := s.flow.Logout(r.Context(), sess); err != nil {
		remote = "failed"
	}
	if err := s.saveSession(w, r, sess); err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logoutResponse{Session: sess.Snapshot(), RemoteLogout: remote})
}
