// Package client is a Go client for the storefront auth API together with a
// session container that keeps the signed-in state fresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/domain"
)

const defaultTimeout = 10 * time.Second

// APIError is a decoded non-2xx response.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// ProfileUpdate describes a PATCH /user/profile call. ClearImage sends an
// explicit null for the image URL.
type ProfileUpdate struct {
	Name            *string
	ProfileImageURL *string
	ClearImage      bool
}

var _ AuthAPI = (*Client)(nil)

// Client talks to the API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify returns the user behind token.
func (c *Client) Verify(ctx context.Context, token string) (*domain.User, error) {
	var out dto.VerifyResponse
	if err := c.do(ctx, http.MethodGet, "/auth/verify", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout notifies the server. The token may be empty.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// GetProfile loads the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context, token string) (*domain.User, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/user/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateProfile applies update and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (*domain.User, error) {
	body := map[string]any{}
	if update.Name != nil {
		body["name"] = *update.Name
	}
	switch {
	case update.ClearImage:
		body["profileImageUrl"] = nil
	case update.ProfileImageURL != nil:
		body["profileImageUrl"] = *update.ProfileImageURL
	}

	var out dto.ProfileMutationResponse
	if err := c.do(ctx, http.MethodPatch, "/user/profile", token, body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error   string          `json:"error"`
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
		apiErr.Details = body.Details
	}
	return apiErr
}
