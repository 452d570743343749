package flow

import (
	"context"
	"errors"
	"time"
)

const (
	EventLoginInitiated          = "login.initiated"
	EventLoginVerified           = "login.verified"
	EventLogout                  = "logout"
	EventRegistrationStarted     = "registration.started"
	EventRegistrationEmailVerify = "registration.email_verified"
	EventRegistrationPhoneSent   = "registration.phone_sent"
	EventRegistrationCompleted   = "registration.completed"
)

// Event describes one completed transition. It never carries credentials.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	Role      string    `json:"role,omitempty"`
	At        time.Time `json:"at"`
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }

// MultiRecorder hands every event to each recorder and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
