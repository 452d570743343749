package backend

import (
	"net/url"
	"strconv"
	"strings"
)

// Backend paths. This table is the only place they are spelled out.
const (
	PathLoginInitiate = "/authenticate/web/user/initiate?identifierType=email"
	PathLoginVerify   = "/authenticate/web/user/verify?identifierType=email"
	PathLogout        = "/authenticate/user/logout"

	PathRegister          = "/registrations/user"
	PathRegisterEmail     = "/registrations/user/verify-email"
	PathRegisterPhoneSend = "/registrations/user/phone/send-verification-code"
	PathRegisterPhoneCode = "/registrations/user/phone/verify-code"

	PathAppointments         = "/appointments"
	PathAppointmentSchedule  = "/appointments/schedule"
	PathPersonalAppointments = "/appointments/personal"

	PathUsers         = "/user-management/users"
	PathPractitioners = "/user-management/practitioners"
	PathPatients      = "/user-management/patients"
	PathUserRecords   = "/user-management/records"

	PathHealth = "/health"
)

// AssignedPatientPaths are tried in order; deployments disagree on the route.
var AssignedPatientPaths = []string{
	"/care-provider/patients/assigned",
	"/careprovider/patients/assigned",
	"/api/care-provider/patients/assigned",
	"/providers/patients/assigned",
	"/assignments/patients",
}

// DefaultRecordType is the record category shown when none is requested.
const DefaultRecordType = "MED"

func AppointmentPath(id string) string {
	return PathAppointments + "/" + url.PathEscape(id)
}

func PersonalAppointmentPath(id string) string {
	return PathPersonalAppointments + "/" + url.PathEscape(id)
}

func AcceptAppointmentPath(id string) string {
	return PathPersonalAppointments + "/accept/" + url.PathEscape(id)
}

func JoinAppointmentPath(id string) string {
	return PathPersonalAppointments + "/join/" + url.PathEscape(id)
}

func PatientRecordsPath(patientUserID, recordType string) string {
	if recordType == "" {
		recordType = DefaultRecordType
	}
	q := url.Values{}
	q.Set("recordType", recordType)
	return "/care-provider/patients/" + url.PathEscape(patientUserID) + "/records?" + q.Encode()
}

func UserPath(id string) string {
	return PathUsers + "/" + url.PathEscape(id)
}

// Page selects a window of a paginated list. Zero fields take the defaults.
type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

func (p Page) withDefaults() Page {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

func pagedPath(base string, p Page) string {
	p = p.withDefaults()
	return base + "?page=" + strconv.Itoa(p.Page) + "&limit=" + strconv.Itoa(p.Limit)
}

var knownPrefixes = []string{
	"/authenticate",
	"/registrations",
	"/appointments",
	"/care-provider",
	"/careprovider",
	"/api/care-provider",
	"/providers",
	"/assignments",
	"/user-management",
	PathHealth,
}

// Known reports whether endpoint falls under a route family of the table.
func Known(endpoint string) bool {
	p := endpoint
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.Contains(p, "..") {
		return false
	}
	for _, prefix := range knownPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
