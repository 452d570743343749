package backend

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type Participant struct {
	UserID          string `json:"userId"`
	UserType        string `json:"userType"`
	PermissionScope string `json:"permissionScope"`
	Accepted        bool   `json:"accepted"`
}

type AppointmentLocation struct {
	Type int `json:"type"`
}

type PatientMetadata struct {
	IsPatientTravelling bool   `json:"isPatientTravelling"`
	PatientLocation     string `json:"patientLocation"`
	PatientLocationType string `json:"patientLocationType"`
}

type AppointmentTimestamps struct {
	ScheduledStartTime string `json:"scheduledStartTime"`
	ScheduledEndTime   string `json:"scheduledEndTime"`
}

type Appointment struct {
	ID              string                `json:"_id,omitempty"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Location        AppointmentLocation   `json:"location"`
	PatientMetadata PatientMetadata       `json:"patientMetadata"`
	Participants    []Participant         `json:"participants"`
	Timestamps      AppointmentTimestamps `json:"timestamps"`
}

// Validate checks that a scheduled window, when fully given, starts
// before it ends. Partial windows are left to the backend.
func (a Appointment) Validate() error {
	startRaw := strings.TrimSpace(a.Timestamps.ScheduledStartTime)
	endRaw := strings.TrimSpace(a.Timestamps.ScheduledEndTime)
	if startRaw == "" || endRaw == "" {
		return nil
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return &ValidationError{Field: "timestamps.scheduledStartTime", Reason: "must be an RFC 3339 time"}
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return &ValidationError{Field: "timestamps.scheduledEndTime", Reason: "must be an RFC 3339 time"}
	}
	if !start.Before(end) {
		return &ValidationError{Field: "timestamps", Reason: "scheduledStartTime must be before scheduledEndTime"}
	}
	return nil
}

type AppointmentResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	Appointments []Appointment `json:"appointments,omitempty"`
	Appointment  *Appointment  `json:"appointment,omitempty"`
	Total        int           `json:"total,omitempty"`
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	return nil
}

func (c *Client) appointmentCall(ctx context.Context, token, method, path string, body any) (*AppointmentResponse, error) {
	var out AppointmentResponse
	if err := c.Do(ctx, path, RequestOptions{Method: method, Body: body, SessionToken: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAppointments returns every appointment visible to practitioners and admins.
func (c *Client) ListAppointments(ctx context.Context, token string, p Page) (*AppointmentResponse, error) {
	return c.appointmentCall(ctx, token, http.MethodGet, pagedPath(PathAppointments, p), nil)
}

func (c *Client) ListPersonalAppointments(ctx context.Context, token string, p Page) (*AppointmentResponse, error) {
	return c.appointmentCall(ctx, token, http.MethodGet, pagedPath(PathPersonalAppointments, p), nil)
}

func (c *Client) GetPersonalAppointment(ctx context.Context, token, id string) (*AppointmentResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.appointmentCall(ctx, token, http.MethodGet, PersonalAppointmentPath(id), nil)
}

func (c *Client) AcceptAppointment(ctx context.Context, token, id string) (*AppointmentResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.appointmentCall(ctx, token, http.MethodPost, AcceptAppointmentPath(id), nil)
}

func (c *Client) JoinAppointment(ctx context.Context, token, id string) (*AppointmentResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.appointmentCall(ctx, token, http.MethodPost, JoinAppointmentPath(id), nil)
}

func (c *Client) GetAppointment(ctx context.Context, token, id string) (*AppointmentResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.appointmentCall(ctx, token, http.MethodGet, AppointmentPath(id), nil)
}

func (c *Client) CreateAppointment(ctx context.Context, token string, a Appointment) (*AppointmentResponse, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.ID = ""
	return c.appointmentCall(ctx, token, http.MethodPost, PathAppointmentSchedule, a)
}

func (c *Client) UpdateAppointment(ctx context.Context, token, id string, a Appointment) (*AppointmentResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return c.appointmentCall(ctx, token, http.MethodPut, AppointmentPath(id), a)
}

func (c *Client) DeleteAppointment(ctx context.Context, token, id string) (*AppointmentResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.appointmentCall(ctx, token, http.MethodDelete, AppointmentPath(id), nil)
}
