// Package client is the HTTP/websocket client for a marks server. It
// implements the reconciler's Store and Subscription contracts so a session
// can be wired end to end: snapshot fetch, remote writes, and the change feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marksapp/marks/pkg/marks/reconciler"
)

// User represents the authenticated account
type User struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client talks to one marks server on behalf of one session
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the given server base URL (no trailing slash)
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs a session token (JWT) or API key for subsequent requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current credential
func (c *Client) Token() string {
	return c.token
}

type apiError struct {
	Error string `json:"error"`
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error != "" {
		return fmt.Errorf("server: %s", ae.Error)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates with email and password and installs the session token
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

// Me returns the account behind the current credential
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Snapshot fetches the caller's bookmarks, newest first. The result seeds
// the reconciler before the feed subscription opens.
func (c *Client) Snapshot(ctx context.Context) ([]reconciler.Record, error) {
	var records []reconciler.Record
	if err := c.do(ctx, http.MethodGet, "/api/bookmarks", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type createRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Insert issues a bookmark insert. Part of the reconciler.Store contract.
func (c *Client) Insert(ctx context.Context, title, url string) error {
	return c.do(ctx, http.MethodPost, "/api/bookmarks", createRequest{Title: title, URL: url}, nil)
}

// Delete issues a bookmark delete. Part of the reconciler.Store contract.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/bookmarks/"+id, nil, nil)
}
