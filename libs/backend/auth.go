package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

// Login roles accepted by the initiate route.
const (
	RoleAdmin        = "U_ADM"
	RoleDefault      = "U_DEF"
	RolePractitioner = "U_PRAC"
	RolePatient      = "U_PAT"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDefault, RolePractitioner, RolePatient:
		return true
	default:
		return false
	}
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	Password   string `json:"password"`
}

type LoginData struct {
	IdentifierType   string `json:"identifierType"`
	VerificationID   string `json:"verificationId"`
	VerificationType string `json:"verificationType"`
	ExpiresAt        string `json:"expiresAt"`
	UserID           string `json:"userId"`
	Role             string `json:"role"`
}

type VerifyRequest struct {
	VerificationID string `json:"verificationId"`
	Token          string `json:"token"`
}

type VerifiedUser struct {
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
}

type VerifyData struct {
	User         *VerifiedUser `json:"user,omitempty"`
	SessionToken string        `json:"sessionToken,omitempty"`
	Extensions   Extensions    `json:"-"`
}

func (d *VerifyData) UnmarshalJSON(raw []byte) error {
	type plain VerifyData
	var p plain
	ext, err := splitExtensions(raw, &p, "user", "sessionToken")
	if err != nil {
		return err
	}
	*d = VerifyData(p)
	d.Extensions = ext
	return nil
}

type RegisterRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type RegisterData struct {
	RegistrationID string `json:"registrationId"`
	Email          string `json:"email"`
	Firstname      string `json:"firstname"`
	Lastname       string `json:"lastname"`
}

type EmailVerifyRequest struct {
	RegistrationID   string `json:"registrationId"`
	VerificationCode string `json:"verificationCode"`
}

type EmailVerifyData struct {
	VerificationSid string     `json:"verificationSid,omitempty"`
	Extensions      Extensions `json:"-"`
}

func (d *EmailVerifyData) UnmarshalJSON(raw []byte) error {
	type plain EmailVerifyData
	var p plain
	ext, err := splitExtensions(raw, &p, "verificationSid")
	if err != nil {
		return err
	}
	*d = EmailVerifyData(p)
	d.Extensions = ext
	return nil
}

type PhoneSendRequest struct {
	RegistrationID string `json:"registrationId"`
	PhoneNumber    string `json:"phoneNumber"`
}

type PhoneSendData struct {
	VerificationSid string `json:"verificationSid"`
	PhoneNumber     string `json:"phoneNumber"`
}

type PhoneVerifyRequest struct {
	RegistrationID   string `json:"registrationId"`
	VerificationSid  string `json:"verificationSid"`
	VerificationCode string `json:"verificationCode"`
}

type PhoneVerifyData struct {
	UserID       string     `json:"userId,omitempty"`
	SessionToken string     `json:"sessionToken,omitempty"`
	Extensions   Extensions `json:"-"`
}

func (d *PhoneVerifyData) UnmarshalJSON(raw []byte) error {
	type plain PhoneVerifyData
	var p plain
	ext, err := splitExtensions(raw, &p, "userId", "sessionToken")
	if err != nil {
		return err
	}
	*d = PhoneVerifyData(p)
	d.Extensions = ext
	return nil
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) InitiateLogin(ctx context.Context, in LoginRequest) (*Envelope[LoginData], error) {
	if in.Identifier == "" || in.Password == "" {
		return nil, &ValidationError{Field: "identifier", Reason: "identifier and password are required"}
	}
	var out Envelope[LoginData]
	if err := c.Do(ctx, PathLoginInitiate, RequestOptions{Method: http.MethodPost, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyLogin(ctx context.Context, in VerifyRequest) (*Envelope[VerifyData], error) {
	if in.VerificationID == "" || in.Token == "" {
		return nil, &ValidationError{Field: "token", Reason: "verification id and code are required"}
	}
	var out Envelope[VerifyData]
	if err := c.Do(ctx, PathLoginVerify, RequestOptions{Method: http.MethodPost, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, sessionToken string) (*LogoutResponse, error) {
	var out LogoutResponse
	err := c.Do(ctx, PathLogout, RequestOptions{
		Method:       http.MethodPost,
		Body:         json.RawMessage(`{}`),
		SessionToken: sessionToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*Envelope[RegisterData], error) {
	if in.Email == "" || in.Password == "" {
		return nil, &ValidationError{Field: "email", Reason: "email and password are required"}
	}
	var out Envelope[RegisterData]
	if err := c.Do(ctx, PathRegister, RequestOptions{Method: http.MethodPost, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyEmail(ctx context.Context, in EmailVerifyRequest) (*Envelope[EmailVerifyData], error) {
	if in.RegistrationID == "" || in.VerificationCode == "" {
		return nil, &ValidationError{Field: "verificationCode", Reason: "registration id and code are required"}
	}
	var out Envelope[EmailVerifyData]
	if err := c.Do(ctx, PathRegisterEmail, RequestOptions{Method: http.MethodPost, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendPhoneVerification(ctx context.Context, in PhoneSendRequest) (*Envelope[PhoneSendData], error) {
	if in.RegistrationID == "" || in.PhoneNumber == "" {
		return nil, &ValidationError{Field: "phoneNumber", Reason: "registration id and phone number are required"}
	}
	var out Envelope[PhoneSendData]
	if err := c.Do(ctx, PathRegisterPhoneSend, RequestOptions{Method: http.MethodPost, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyPhone(ctx context.Context, in PhoneVerifyRequest) (*Envelope[PhoneVerifyData], error) {
	if in.RegistrationID == "" || in.VerificationSid == "" || in.VerificationCode == "" {
		return nil, &ValidationError{Field: "verificationCode", Reason: "registration id, verification sid and code are required"}
	}
	var out Envelope[PhoneVerifyData]
	if err := c.Do(ctx, PathRegisterPhoneCode, RequestOptions{Method: http.MethodPost, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
