package flow

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/session"
)

// Backend is the part of the API client the flow drives.
type Backend interface {
	InitiateLogin(ctx context.Context, in backend.LoginRequest) (*backend.Envelope[backend.LoginData], error)
	VerifyLogin(ctx context.Context, in backend.VerifyRequest) (*backend.Envelope[backend.VerifyData], error)
	Logout(ctx context.Context, sessionToken string) (*backend.LogoutResponse, error)
	Register(ctx context.Context, in backend.RegisterRequest) (*backend.Envelope[backend.RegisterData], error)
	VerifyEmail(ctx context.Context, in backend.EmailVerifyRequest) (*backend.Envelope[backend.EmailVerifyData], error)
	SendPhoneVerification(ctx context.Context, in backend.PhoneSendRequest) (*backend.Envelope[backend.PhoneSendData], error)
	VerifyPhone(ctx context.Context, in backend.PhoneVerifyRequest) (*backend.Envelope[backend.PhoneVerifyData], error)
}

// Machine moves a session through login and registration. It mutates the
// session in place on success only; persisting it is the caller's job.
type Machine struct {
	api    Backend
	events Recorder
	logger *slog.Logger
	now    func() time.Time
}

func NewMachine(api Backend, events Recorder, logger *slog.Logger) *Machine {
	if events == nil {
		events = NopRecorder{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Machine{
		api:    api,
		events: events,
		logger: logger.With("component", "flow"),
		now:    time.Now,
	}
}

// InitiateLogin starts a login attempt. A new attempt replaces one that is
// still waiting for its code, and a successful one also replaces a signed-in
// session: its token is dropped locally without a remote logout.
func (m *Machine) InitiateLogin(ctx context.Context, s *session.Session, in backend.LoginRequest) (*backend.LoginData, error) {
	in.Identifier = strings.TrimSpace(in.Identifier)
	if in.Role == "" {
		in.Role = backend.RoleAdmin
	}
	if !backend.ValidRole(in.Role) {
		return nil, &backend.ValidationError{Field: "role", Reason: "unknown role " + in.Role}
	}

	out, err := m.api.InitiateLogin(ctx, in)
	if err != nil {
		return nil, err
	}
	if !out.Success || out.Data.VerificationID == "" {
		return nil, &RejectedError{Op: "login", Message: out.Message, Code: out.Code}
	}

	role := out.Data.Role
	if role == "" {
		role = in.Role
	}
	s.LoginState = session.LoginAwaitingVerification
	s.VerificationID = out.Data.VerificationID
	s.UserID = out.Data.UserID
	s.UserRole = role
	s.SessionToken = ""
	m.record(ctx, s, EventLoginInitiated)
	return &out.Data, nil
}

func (m *Machine) VerifyLogin(ctx context.Context, s *session.Session, code string) (*backend.VerifyData, error) {
	if s.LoginState != session.LoginAwaitingVerification || s.VerificationID == "" {
		return nil, &TransitionError{Op: "verify login", State: string(s.LoginState)}
	}
	out, err := m.api.VerifyLogin(ctx, backend.VerifyRequest{
		VerificationID: s.VerificationID,
		Token:          strings.TrimSpace(code),
	})
	if err != nil {
		return nil, err
	}
	if !out.Success || out.Data.SessionToken == "" {
		return nil, &RejectedError{Op: "verify login", Message: out.Message, Code: out.Code}
	}

	s.LoginState = session.LoginAuthenticated
	s.SessionToken = out.Data.SessionToken
	s.VerificationID = ""
	if u := out.Data.User; u != nil {
		if u.UserID != "" {
			s.UserID = u.UserID
		}
		if u.Role != "" {
			s.UserRole = u.Role
		}
	}
	m.record(ctx, s, EventLoginVerified)
	return &out.Data, nil
}

// Logout always clears the session. The remote call is made only when a
// token is held, and its error is returned for reporting after the local
// state is already gone.
func (m *Machine) Logout(ctx context.Context, s *session.Session) error {
	var remoteErr error
	if s.SessionToken != "" {
		_, remoteErr = m.api.Logout(ctx, s.SessionToken)
		if remoteErr != nil {
			m.logger.Warn("remote logout failed", "session_id", s.ID, "err", remoteErr)
		}
	}
	userID, role := s.UserID, s.UserRole
	s.Clear()
	m.emit(ctx, Event{Type: EventLogout, SessionID: s.ID, UserID: userID, Role: role})
	return remoteErr
}

// Register starts a registration. A completed one counts as discarded, so the
// same session may register again.
func (m *Machine) Register(ctx context.Context, s *session.Session, in backend.RegisterRequest) (*backend.RegisterData, error) {
	if s.RegistrationStep != session.StepIdentity && s.RegistrationStep != session.StepComplete {
		return nil, &TransitionError{Op: "register", State: s.RegistrationStep.String()}
	}
	in.Email = strings.TrimSpace(in.Email)
	out, err := m.api.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if !out.Success || out.Data.RegistrationID == "" {
		return nil, &RejectedError{Op: "register", Message: out.Message, Code: out.Code}
	}

	s.ResetRegistration()
	s.RegistrationID = out.Data.RegistrationID
	s.Email = in.Email
	s.RegistrationStep = session.StepEmailCode
	m.record(ctx, s, EventRegistrationStarted)
	return &out.Data, nil
}

func (m *Machine) VerifyEmail(ctx context.Context, s *session.Session, code string) (*backend.EmailVerifyData, error) {
	if s.RegistrationStep != session.StepEmailCode || s.RegistrationID == "" {
		return nil, &TransitionError{Op: "verify email", State: s.RegistrationStep.String()}
	}
	out, err := m.api.VerifyEmail(ctx, backend.EmailVerifyRequest{
		RegistrationID:   s.RegistrationID,
		VerificationCode: strings.TrimSpace(code),
	})
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &RejectedError{Op: "verify email", Message: out.Message, Code: out.Code}
	}

	s.RegistrationStep = session.StepPhoneNumber
	m.record(ctx, s, EventRegistrationEmailVerify)
	return &out.Data, nil
}

// SendPhoneCode may be repeated while the phone code is pending; the newest
// verification sid wins.
func (m *Machine) SendPhoneCode(ctx context.Context, s *session.Session, phoneNumber string) (*backend.PhoneSendData, error) {
	if (s.RegistrationStep != session.StepPhoneNumber && s.RegistrationStep != session.StepPhoneCode) || s.RegistrationID == "" {
		return nil, &TransitionError{Op: "send phone code", State: s.RegistrationStep.String()}
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	out, err := m.api.SendPhoneVerification(ctx, backend.PhoneSendRequest{
		RegistrationID: s.RegistrationID,
		PhoneNumber:    phoneNumber,
	})
	if err != nil {
		return nil, err
	}
	if !out.Success || out.Data.VerificationSid == "" {
		return nil, &RejectedError{Op: "send phone code", Message: out.Message, Code: out.Code}
	}

	s.VerificationSid = out.Data.VerificationSid
	s.PhoneNumber = phoneNumber
	s.RegistrationStep = session.StepPhoneCode
	m.record(ctx, s, EventRegistrationPhoneSent)
	return &out.Data, nil
}

func (m *Machine) VerifyPhone(ctx context.Context, s *session.Session, code string) (*backend.PhoneVerifyData, error) {
	if s.RegistrationStep != session.StepPhoneCode || s.VerificationSid == "" {
		return nil, &TransitionError{Op: "verify phone", State: s.RegistrationStep.String()}
	}
	out, err := m.api.VerifyPhone(ctx, backend.PhoneVerifyRequest{
		RegistrationID:   s.RegistrationID,
		VerificationSid:  s.VerificationSid,
		VerificationCode: strings.TrimSpace(code),
	})
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &RejectedError{Op: "verify phone", Message: out.Message, Code: out.Code}
	}

	s.ResetRegistration()
	s.RegistrationStep = session.StepComplete
	m.emit(ctx, Event{Type: EventRegistrationCompleted, SessionID: s.ID, UserID: out.Data.UserID})
	return &out.Data, nil
}

func (m *Machine) record(ctx context.Context, s *session.Session, eventType string) {
	m.emit(ctx, Event{Type: eventType, SessionID: s.ID, UserID: s.UserID, Role: s.UserRole})
}

func (m *Machine) emit(ctx context.Context, e Event) {
	e.ID = uuid.NewString()
	e.At = m.now().UTC()
	if err := m.events.Record(ctx, e); err != nil {
		m.logger.Warn("flow event not recorded", "event_type", e.Type, "session_id", e.SessionID, "err", err)
	}
}
