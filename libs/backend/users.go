package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type User struct {
	ID           string `json:"_id"`
	UserID       string `json:"userId,omitempty"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	IsActive     *bool  `json:"isActive,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type UsersListResponse struct {
	Success bool   `json:"success"`
	Users   []User `json:"users"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
}

type UserRecord struct {
	ID        string `json:"_id"`
	UserID    string `json:"userId"`
	UserRole  string `json:"userRole"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

type RecordsListResponse struct {
	Success bool         `json:"success"`
	Records []UserRecord `json:"records"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
}

type SingleUserResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type CreateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

type CreatedUser struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type CreateUserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *CreatedUser `json:"data,omitempty"`
}

// ListParams filter user-management lists. Zero fields are omitted.
type ListParams struct {
	Page     int
	Limit    int
	Search   string
	UserRole string
}

func (p ListParams) path(base string, withRole bool) string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if withRole && p.UserRole != "" {
		q.Set("userRole", p.UserRole)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func (c *Client) listUsers(ctx context.Context, token, base string, p ListParams) (*UsersListResponse, error) {
	var out UsersListResponse
	if err := c.Do(ctx, p.path(base, false), RequestOptions{Method: http.MethodGet, SessionToken: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context, token string, p ListParams) (*UsersListResponse, error) {
	return c.listUsers(ctx, token, PathUsers, p)
}

func (c *Client) ListPractitioners(ctx context.Context, token string, p ListParams) (*UsersListResponse, error) {
	return c.listUsers(ctx, token, PathPractitioners, p)
}

func (c *Client) ListPatients(ctx context.Context, token string, p ListParams) (*UsersListResponse, error) {
	return c.listUsers(ctx, token, PathPatients, p)
}

func (c *Client) ListRecords(ctx context.Context, token string, p ListParams) (*RecordsListResponse, error) {
	var out RecordsListResponse
	if err := c.Do(ctx, p.path(PathUserRecords, true), RequestOptions{Method: http.MethodGet, SessionToken: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, token, id string) (*SingleUserResponse, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out SingleUserResponse
	if err := c.Do(ctx, UserPath(id), RequestOptions{Method: http.MethodGet, SessionToken: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, token string, in CreateUserRequest) (*CreateUserResponse, error) {
	if in.Email == "" || in.Password == "" {
		return nil, &ValidationError{Field: "email", Reason: "email and password are required"}
	}
	var out CreateUserResponse
	if err := c.Do(ctx, PathUsers, RequestOptions{Method: http.MethodPost, Body: in, SessionToken: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
