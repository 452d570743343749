package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type LoginState string

const (
	LoginIdle                 LoginState = "idle"
	LoginAwaitingVerification LoginState = "awaiting_verification"
	LoginAuthenticated        LoginState = "authenticated"
)

// RegistrationStep counts completed registration steps.
type RegistrationStep int

const (
	StepIdentity RegistrationStep = iota
	StepEmailCode
	StepPhoneNumber
	StepPhoneCode
	StepComplete
)

func (s RegistrationStep) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepEmailCode:
		return "email_code"
	case StepPhoneNumber:
		return "phone_number"
	case StepPhoneCode:
		return "phone_code"
	case StepComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Session is the per-visitor state carried between flow steps.
type Session struct {
	ID string `json:"id"`

	LoginState     LoginState `json:"loginState"`
	VerificationID string     `json:"verificationId,omitempty"`
	UserID         string     `json:"userId,omitempty"`
	UserRole       string     `json:"userRole,omitempty"`
	SessionToken   string     `json:"sessionToken,omitempty"`

	RegistrationStep RegistrationStep `json:"registrationStep"`
	RegistrationID   string           `json:"registrationId,omitempty"`
	VerificationSid  string           `json:"verificationSid,omitempty"`
	Email            string           `json:"email,omitempty"`
	PhoneNumber      string           `json:"phoneNumber,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

func New() *Session {
	return &Session{ID: uuid.NewString(), LoginState: LoginIdle}
}

func (s *Session) Authenticated() bool {
	return s.LoginState == LoginAuthenticated && s.SessionToken != ""
}

// Clear drops every login and registration value. The id survives so the
// visitor keeps the same cookie.
func (s *Session) Clear() {
	*s = Session{ID: s.ID, LoginState: LoginIdle, UpdatedAt: s.UpdatedAt}
}

// ResetRegistration abandons an in-progress registration only.
func (s *Session) ResetRegistration() {
	s.RegistrationStep = StepIdentity
	s.RegistrationID = ""
	s.VerificationSid = ""
	s.Email = ""
	s.PhoneNumber = ""
}

// Snapshot is the view of a session that may leave the server.
type Snapshot struct {
	ID               string `json:"id"`
	LoginState       string `json:"loginState"`
	UserID           string `json:"userId,omitempty"`
	UserRole         string `json:"userRole,omitempty"`
	HasSessionToken  bool   `json:"hasSessionToken"`
	AwaitingCode     bool   `json:"awaitingCode"`
	RegistrationStep string `json:"registrationStep"`
	Email            string `json:"email,omitempty"`
	PhoneNumber      string `json:"phoneNumber,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:               s.ID,
		LoginState:       string(s.LoginState),
		UserID:           s.UserID,
		UserRole:         s.UserRole,
		HasSessionToken:  s.SessionToken != "",
		AwaitingCode:     s.LoginState == LoginAwaitingVerification,
		RegistrationStep: s.RegistrationStep.String(),
		Email:            s.Email,
		PhoneNumber:      s.PhoneNumber,
	}
}

// Store keeps sessions between requests. Writes are last-write-wins.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
