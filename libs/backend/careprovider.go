package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type AssignedPatient struct {
	ID         string `json:"_id"`
	UserID     string `json:"userId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	AssignedAt string `json:"assignedAt"`
}

type AssignedPatientsResponse struct {
	Success  bool              `json:"success"`
	Patients []AssignedPatient `json:"patients"`
}

type PatientRecord struct {
	ID         string          `json:"_id"`
	RecordType string          `json:"recordType"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  string          `json:"createdAt"`
	UpdatedAt  string          `json:"updatedAt"`
}

type PatientRecordsResponse struct {
	Success bool            `json:"success"`
	Records []PatientRecord `json:"records"`
}

// DiscoveryError is returned when no assigned-patients route answered.
type DiscoveryError struct {
	Tried []string
	Last  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("all care provider endpoints failed (%s); last error: %v", strings.Join(e.Tried, ", "), e.Last)
}

func (e *DiscoveryError) Unwrap() error { return e.Last }

// AssignedPatients tries each known route in order and returns the first
// successful answer.
func (c *Client) AssignedPatients(ctx context.Context, token string) (*AssignedPatientsResponse, string, error) {
	var lastErr error
	tried := make([]string, 0, len(AssignedPatientPaths))
	for _, path := range AssignedPatientPaths {
		var out AssignedPatientsResponse
		err := c.Do(ctx, path, RequestOptions{Method: http.MethodGet, SessionToken: token}, &out)
		if err == nil {
			return &out, path, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		c.logger.Debug("assigned patients route failed", "endpoint", path, "err", err)
		tried = append(tried, path)
		lastErr = err
	}
	return nil, "", &DiscoveryError{Tried: tried, Last: lastErr}
}

func (c *Client) PatientRecords(ctx context.Context, token, patientUserID, recordType string) (*PatientRecordsResponse, error) {
	if err := requireID(patientUserID); err != nil {
		return nil, err
	}
	var out PatientRecordsResponse
	if err := c.Do(ctx, PatientRecordsPath(patientUserID, recordType), RequestOptions{Method: http.MethodGet, SessionToken: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
