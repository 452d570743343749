package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/session"
)

type registerRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	captchaFields
}

type phoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type registrationResponse struct {
	Session        session.Snapshot `json:"session"`
	UserID         string           `json:"userId,omitempty"`
	SignInRequired bool             `json:"signInRequired,omitempty"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if !s.captcha.Allow(r, "register", req.token()) {
		httpx.WriteError(w, http.StatusForbidden, "captcha verification failed")
		return
	}
	s.registrationStep(w, r, func(sess *session.Session) (string, error) {
		_, err := s.flow.Register(r.Context(), sess, backend.RegisterRequest{
			Firstname: req.Firstname,
			Lastname:  req.Lastname,
			Email:     req.Email,
			Password:  req.Password,
		})
		return "", err
	})
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeCode(w, r, &req) {
		return
	}
	s.registrationStep(w, r, func(sess *session.Session) (string, error) {
		_, err := s.flow.VerifyEmail(r.Context(), sess, req.Code)
		return "", err
	})
}

func (s *Server) sendPhoneCode(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.PhoneNumber == "" {
		httpx.WriteError(w, http.StatusBadRequest, "phoneNumber is required")
		return
	}
	s.registrationStep(w, r, func(sess *session.Session) (string, error) {
		_, err := s.flow.SendPhoneCode(r.Context(), sess, req.PhoneNumber)
		return "", err
	})
}

func (s *Server) verifyPhone(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeCode(w, r, &req) {
		return
	}
	s.registrationStep(w, r, func(sess *session.Session) (string, error) {
		data, err := s.flow.VerifyPhone(r.Context(), sess, req.Code)
		if err != nil {
			return "", err
		}
		return data.UserID, nil
	})
}

// abandonRegistration drops a half-finished registration so the visitor
// can start again with different details.
func (s *Server) abandonRegistration(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	sess.ResetRegistration()
	if err := s.saveSession(w, r, sess); err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrationResponse{Session: sess.Snapshot()})
}

// registrationStep loads the session, runs step, and persists the result
// only when step succeeds.
func (s *Server) registrationStep(w http.ResponseWriter, r *http.Request, step func(*session.Session) (string, error)) {
	sess, err := s.loadSession(r)
	if err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	userID, err := step(sess)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.saveSession(w, r, sess); err != nil {
		s.sessionFailure(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrationResponse{
		Session:        sess.Snapshot(),
		UserID:         userID,
		SignInRequired: sess.RegistrationStep == session.StepComplete,
	})
}

func decodeCode(w http.ResponseWriter, r *http.Request, req *codeRequest) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "code is required")
		return false
	}
	return true
}
