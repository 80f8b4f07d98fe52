// Package userclient talks to the user service over HTTP. It implements
// userdirectory.Directory for the gateway and the activity service.
package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userdirectory"
)

const maxErrorBody = 4 << 10

// ErrInvalidIdentity is returned for identities that cannot be a single path segment.
var ErrInvalidIdentity = errors.New("invalid identity")

// StatusError is returned when the user service answers with a non-2xx status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("user service %s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

var _ userdirectory.Directory = (*Client)(nil)

func New(baseURL *url.URL, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL *url.URL, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// IdentityExists calls GET /api/users/{id}/validate, which answers a JSON boolean.
func (c *Client) IdentityExists(ctx context.Context, id domain.SubjectID) (bool, error) {
	switch strings.TrimSpace(string(id)) {
	case "", ".", "..":
		return false, fmt.Errorf("validate %q: %w", id, ErrInvalidIdentity)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/users/"+url.PathEscape(string(id))+"/validate", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("user service validate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, statusError("validate", resp)
	}
	var exists bool
	if err := json.NewDecoder(resp.Body).Decode(&exists); err != nil {
		return false, fmt.Errorf("user service validate: decode: %w", err)
	}
	return exists, nil
}

type registerRequest struct {
	IdentityID         string `json:"identityId"`
	Email              string `json:"email"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	ExternalCredential bool   `json:"externalCredential"`
}

// RegisterIdentity calls POST /api/users/register. Only the external credential
// can be sent over the wire; password credentials are rejected locally.
func (c *Client) RegisterIdentity(ctx context.Context, rec userdirectory.RegistrationRecord) error {
	if !rec.Credential.IsExternal() {
		return fmt.Errorf("register %s: %w", rec.IdentityID, domain.ErrUnknownCredential)
	}
	body, err := json.Marshal(registerRequest{
		IdentityID:         string(rec.IdentityID),
		Email:              rec.Email,
		FirstName:          rec.FirstName,
		LastName:           rec.LastName,
		ExternalCredential: true,
	})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/users/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("user service register: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("register", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	// path is already escaped; JoinPath would unescape and clean it.
	u := strings.TrimRight(c.baseURL.String(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
