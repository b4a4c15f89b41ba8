// Package charclient is the HTTP client of the character persistence
// service. The game server never touches the characters database
// directly; everything durable goes through this API.
package charclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vexelgames/polyrift/internal/model"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx reply from the character service, carrying the
// service's own error message. Transport failures are returned as plain
// errors; only an answered request produces an APIError.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("character service: %s (status %d)", e.Message, e.StatusCode)
}

// CreateRequest is the body of POST /characters/user/{userId}.
type CreateRequest struct {
	Name  string `json:"name"`
	Shape string `json:"shape"`
	Color string `json:"color"`
}

// UpdateRequest is the body of PUT /characters/{id}. Nil fields are
// left unchanged by the service.
type UpdateRequest struct {
	IsPrimary *bool   `json:"isPrimary,omitempty"`
	Name      *string `json:"name,omitempty"`
	Shape     *string `json:"shape,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// StatsRequest is the body of PATCH /characters/{id}/stats. Experience,
// Kills, Deaths and PlayTime are deltas; WeaponType replaces. Nil fields
// are left unchanged.
type StatsRequest struct {
	Experience *int64  `json:"experience,omitempty"`
	Kills      *int32  `json:"kills,omitempty"`
	Deaths     *int32  `json:"deaths,omitempty"`
	PlayTime   *int64  `json:"playTime,omitempty"`
	WeaponType *string `json:"weaponType,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// GetUserCharacters lists every character the user owns.
func (c *Client) GetUserCharacters(ctx context.Context, userID string) ([]model.Character, error) {
	var out []model.Character
	if err := c.do(ctx, http.MethodGet, "/characters/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPrimaryCharacter returns the user's flagged-primary character. A
// user without one gets a 404 APIError.
func (c *Client) GetPrimaryCharacter(ctx context.Context, userID string) (*model.Character, error) {
	var out model.Character
	if err := c.do(ctx, http.MethodGet, "/characters/user/"+url.PathEscape(userID)+"/primary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCharacter creates a character for the user. The service flags
// the user's first character as primary on its own.
func (c *Client) CreateCharacter(ctx context.Context, userID string, req CreateRequest) (*model.Character, error) {
	var out model.Character
	if err := c.do(ctx, http.MethodPost, "/characters/user/"+url.PathEscape(userID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCharacter applies the non-nil fields of req. Setting IsPrimary
// true demotes the user's other characters on the service side.
func (c *Client) UpdateCharacter(ctx context.Context, characterID int64, req UpdateRequest) (*model.Character, error) {
	var out model.Character
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/characters/%d", characterID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStats applies gameplay counter deltas. The service runs its own
// level curve over the experience delta and returns the updated record.
func (c *Client) UpdateStats(ctx context.Context, characterID int64, req StatsRequest) (*model.Character, error) {
	var out model.Character
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/characters/%d/stats", characterID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCharacter removes the character. Deleting a user's last
// character is rejected by the service with a 409 APIError whose
// Message explains the rule.
func (c *Client) DeleteCharacter(ctx context.Context, characterID int64, userID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/characters/%d/user/%s", characterID, url.PathEscape(userID)), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the {"error": ...} body the service sends with
// every rejection.
func errorMessage(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || payload.Error == "" {
		return "request rejected"
	}
	return payload.Error
}
