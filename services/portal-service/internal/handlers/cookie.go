package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/auth"
	"github.com/md-rashed-zaman/careportal/libs/session"
)

const defaultCookieName = "portal_session"

type CookieConfig struct {
	Name   string
	Secret string
	TTL    time.Duration
	Secure bool
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = defaultCookieName
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Minute
	}
	return c
}

// existingSession resolves the cookie to a stored session. A missing,
// invalid or expired cookie yields (nil, nil).
func (s *Server) existingSession(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	id, err := auth.VerifySession(c.Value, s.cookie.Secret)
	if err != nil {
		return nil, nil
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return sess, err
}

// loadSession returns the visitor's session, starting a fresh one when
// there is none.
func (s *Server) loadSession(r *http.Request) (*session.Session, error) {
	sess, err := s.existingSession(r)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = session.New()
	}
	return sess, nil
}

// saveSession persists sess and refreshes the cookie, sliding its expiry.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		return err
	}
	token, err := auth.SignSession(sess.ID, s.cookie.Secret, s.cookie.TTL, time.Now())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
