package apiclient

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
)

var (
	ErrUnauthorized     = errors.New("apiclient: unauthorized")
	ErrInvalidArgument  = errors.New("apiclient: invalid argument")
	ErrMalformedPayload = errors.New("apiclient: malformed response")
)

// StatusError is returned for any non-2xx response. There is no retry: callers
// treat every failure as final for that attempt.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apiclient: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("apiclient: %s %s: %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Client talks to the Evolutech API.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

/* ===================== OPERATOR ===================== */

// Me validates a bearer token and returns the session payload.
func (c *Client) Me(ctx context.Context, token string) (MeResponse, error) {
	if token == "" {
		return MeResponse{}, ErrInvalidArgument
	}
	var out MeResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return MeResponse{}, err
	}
	if out.User.ID == "" {
		return MeResponse{}, ErrMalformedPayload
	}
	return out, nil
}

// Login exchanges operator credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return LoginResponse{}, ErrInvalidArgument
	}
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" || out.User.ID == "" {
		return LoginResponse{}, ErrMalformedPayload
	}
	return out, nil
}

/* ===================== CUSTOMER ===================== */

func (c *Client) CustomerLogin(ctx context.Context, req CustomerLoginRequest) (CustomerAuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || req.CompanySlug == "" {
		return CustomerAuthResponse{}, ErrInvalidArgument
	}
	return c.customerAuth(ctx, "/customer-auth/login", req)
}

func (c *Client) CustomerRegister(ctx context.Context, req CustomerRegisterRequest) (CustomerAuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" || req.CompanySlug == "" {
		return CustomerAuthResponse{}, ErrInvalidArgument
	}
	return c.customerAuth(ctx, "/customer-auth/register", req)
}

func (c *Client) CustomerMe(ctx context.Context, token string) (CustomerMeResponse, error) {
	if token == "" {
		return CustomerMeResponse{}, ErrInvalidArgument
	}
	var out CustomerMeResponse
	if err := c.do(ctx, http.MethodGet, "/customer-auth/me", token, nil, &out); err != nil {
		return CustomerMeResponse{}, err
	}
	if out.Customer.ID == "" {
		return CustomerMeResponse{}, ErrMalformedPayload
	}
	return out, nil
}

func (c *Client) customerAuth(ctx context.Context, path string, body any) (CustomerAuthResponse, error) {
	var out CustomerAuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return CustomerAuthResponse{}, err
	}
	if out.Token == "" || out.Customer.ID == "" {
		return CustomerAuthResponse{}, ErrMalformedPayload
	}
	return out, nil
}

/* ===================== TRANSPORT ===================== */

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("apiclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
