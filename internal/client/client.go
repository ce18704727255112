// Package client calls the workbench HTTP API on behalf of the CLI.
package client

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
	"sync"
	"time"

	"soql-workbench/internal/api/handler"
	"soql-workbench/internal/model"
	"soql-workbench/internal/upstream"
)

// DefaultCookieName matches the server's default session cookie.
const DefaultCookieName = "workbench.sid"

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthenticated reports whether err means the session is missing or expired.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client is a session-carrying HTTP client for the workbench server.
type Client struct {
	baseURL    string
	http       *http.Client
	cookieName string

	mu     sync.Mutex
	cookie string
}

// New creates a client for the server at baseURL. A zero timeout waits forever,
// which suits unlimited queries.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		cookieName: DefaultCookieName,
	}
}

// SetSessionCookie restores a session cookie value saved earlier.
func (c *Client) SetSessionCookie(value string) {
	c.mu.Lock()
	c.cookie = value
	c.mu.Unlock()
}

// SessionCookie is the current session cookie value, "" when logged out.
func (c *Client) SessionCookie() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cookie
}

// ------------------- Auth -------------------

func (c *Client) Login(ctx context.Context, creds upstream.Credentials) (*handler.LoginResponse, error) {
	var resp handler.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.SetSessionCookie("")
	return err
}

func (c *Client) RefreshSession(ctx context.Context) (*handler.RefreshResponse, error) {
	var resp handler.RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/api/refresh-session", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AuthStatus(ctx context.Context) (*handler.AuthStatus, error) {
	var resp handler.AuthStatus
	if err := c.do(ctx, http.MethodGet, "/api/auth-status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ------------------- Queries -------------------

// Query runs soql on the server. A nil maxRecords uses the server default.
func (c *Client) Query(ctx context.Context, soql string, maxRecords *int) (*model.ResultSet, error) {
	var resp handler.QueryResponse
	req := handler.QueryRequest{Query: soql, MaxRecords: maxRecords}
	if err := c.do(ctx, http.MethodPost, "/api/query", req, &resp); err != nil {
		return nil, err
	}
	if resp.ResultSet == nil {
		return nil, errors.New("empty query response")
	}
	return resp.ResultSet, nil
}

func (c *Client) Describe(ctx context.Context, object string) (map[string]interface{}, error) {
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/describe/"+url.PathEscape(object), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Objects(ctx context.Context) ([]model.ObjectSummary, error) {
	var resp struct {
		Data []model.ObjectSummary `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/objects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ------------------- Data -------------------

func (c *Client) Statistics(ctx context.Context, records []model.Record) (map[string]*model.FieldStatistic, error) {
	var resp handler.StatisticsResponse
	if err := c.do(ctx, http.MethodPost, "/api/statistics", handler.StatisticsRequest{Data: records}, &resp); err != nil {
		return nil, err
	}
	return resp.Statistics, nil
}

func (c *Client) ExportCSV(ctx context.Context, records []model.Record, columns []string) ([]byte, error) {
	return c.send(ctx, http.MethodPost, "/api/export/csv", handler.ExportRequest{Data: records, Columns: columns})
}

// ------------------- Transport -------------------

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in interface{}) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie := c.SessionCookie(); cookie != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: cookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.captureCookie(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) captureCookie(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != c.cookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.SetSessionCookie("")
		} else {
			c.SetSessionCookie(ck.Value)
		}
	}
}

func decodeError(status int, body []byte) error {
	var er handler.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &APIError{StatusCode: status, Message: er.Error}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
