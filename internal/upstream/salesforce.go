package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"soql-workbench/internal/model"
)

const defaultAPIVersion = "59.0"

// Options configures the Salesforce client.
type Options struct {
	APIVersion string
	Timeout    time.Duration
	// ResolveLoginURL picks the login endpoint. Nil uses the public defaults.
	ResolveLoginURL func(environment, customDomain string) string
	HTTPClient      *http.Client
	// Retry applies to query, query more and describe calls. Login is never retried.
	Retry RetryPolicy
}

// Salesforce implements Client against the Salesforce SOAP login and REST query APIs.
type Salesforce struct {
	opts   Options
	http   *http.Client
	logger *zap.Logger
}

// NewSalesforce creates a new upstream client
func NewSalesforce(opts Options, logger *zap.Logger) *Salesforce {
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}
	if opts.ResolveLoginURL == nil {
		opts.ResolveLoginURL = defaultLoginURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Retry = opts.Retry.withDefaults()
	return &Salesforce{opts: opts, http: httpClient, logger: logger}
}

func defaultLoginURL(environment, customDomain string) string {
	if customDomain != "" {
		return fmt.Sprintf("https://%s.my.salesforce.com", customDomain)
	}
	if environment == "sandbox" {
		return "https://test.salesforce.com"
	}
	return "https://login.salesforce.com"
}

// ------------------- Login -------------------

type soapEnvelope struct {
	Body struct {
		LoginResponse *struct {
			Result soapLoginResult `xml:"result"`
		} `xml:"loginResponse"`
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

type soapLoginResult struct {
	ServerURL string `xml:"serverUrl"`
	SessionID string `xml:"sessionId"`
	UserID    string `xml:"userId"`
	UserInfo  struct {
		OrganizationID string `xml:"organizationId"`
	} `xml:"userInfo"`
}

const loginEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
<env:Body><n1:login xmlns:n1="urn:partner.soap.sforce.com"><n1:username>%s</n1:username><n1:password>%s</n1:password></n1:login></env:Body>
</env:Envelope>`

// Login authenticates with username and password (plus security token, if any).
func (s *Salesforce) Login(ctx context.Context, creds Credentials) (*model.Connection, *model.UserInfo, error) {
	loginURL := strings.TrimRight(s.opts.ResolveLoginURL(creds.Environment, creds.CustomDomain), "/")
	endpoint := fmt.Sprintf("%s/services/Soap/u/%s", loginURL, s.opts.APIVersion)

	body := fmt.Sprintf(loginEnvelope, xmlEscape(creds.Username), xmlEscape(creds.Password))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read login response: %w", err)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, nil, &Error{Code: "LOGIN_FAILED", Message: strings.TrimSpace(string(raw)), StatusCode: resp.StatusCode}
	}
	if f := env.Body.Fault; f != nil {
		code := f.Code
		if i := strings.LastIndex(code, ":"); i >= 0 {
			code = code[i+1:]
		}
		return nil, nil, &Error{Code: code, Message: f.String, StatusCode: resp.StatusCode}
	}
	if env.Body.LoginResponse == nil {
		return nil, nil, &Error{Code: "LOGIN_FAILED", Message: "empty login response", StatusCode: resp.StatusCode}
	}

	result := env.Body.LoginResponse.Result
	instanceURL, err := origin(result.ServerURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid server url %q: %w", result.ServerURL, err)
	}

	conn := &model.Connection{
		AccessToken: result.SessionID,
		InstanceURL: instanceURL,
		APIVersion:  s.opts.APIVersion,
	}
	user := &model.UserInfo{
		ID:             result.UserID,
		OrganizationID: result.UserInfo.OrganizationID,
		URL:            fmt.Sprintf("%s/id/%s/%s", loginURL, result.UserInfo.OrganizationID, result.UserID),
	}

	s.logger.Debug("upstream login succeeded",
		zap.String("instance", instanceURL),
		zap.String("organization", user.OrganizationID))
	return conn, user, nil
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func origin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}
	return u.Scheme + "://" + u.Host, nil
}

// ------------------- Query -------------------

type queryResponse struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl"`
	Records        []json.RawMessage `json:"records"`
}

// Query runs soql and returns the first page of results.
func (s *Salesforce) Query(ctx context.Context, conn *model.Connection, soql string) (*QueryPage, error) {
	path := fmt.Sprintf("/services/data/v%s/query?q=%s", conn.APIVersion, url.QueryEscape(soql))
	return s.fetchPage(ctx, conn, path)
}

// QueryMore fetches the page behind a continuation handle.
func (s *Salesforce) QueryMore(ctx context.Context, conn *model.Connection, nextRecordsURL string) (*QueryPage, error) {
	if nextRecordsURL == "" {
		return nil, fmt.Errorf("query more: empty continuation handle")
	}
	return s.fetchPage(ctx, conn, nextRecordsURL)
}

func (s *Salesforce) fetchPage(ctx context.Context, conn *model.Connection, path string) (*QueryPage, error) {
	var resp queryResponse
	if err := s.getJSON(ctx, conn, path, &resp); err != nil {
		return nil, err
	}

	page := &QueryPage{
		Records:        make([]model.Record, 0, len(resp.Records)),
		TotalSize:      resp.TotalSize,
		Done:           resp.Done,
		NextRecordsURL: resp.NextRecordsURL,
	}
	for i, raw := range resp.Records {
		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", i, err)
		}
		page.Records = append(page.Records, rec)
	}
	if len(resp.Records) > 0 {
		keys, err := orderedKeys(resp.Records[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read record fields: %w", err)
		}
		page.Columns = keys
	}
	return page, nil
}

// orderedKeys lists the keys of a JSON object in document order.
func orderedKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// ------------------- Metadata -------------------

// Describe returns the full describe payload of one object.
func (s *Salesforce) Describe(ctx context.Context, conn *model.Connection, object string) (map[string]interface{}, error) {
	path := fmt.Sprintf("/services/data/v%s/sobjects/%s/describe", conn.APIVersion, url.PathEscape(object))
	var out map[string]interface{}
	if err := s.getJSON(ctx, conn, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DescribeGlobal lists the queryable objects of the org.
func (s *Salesforce) DescribeGlobal(ctx context.Context, conn *model.Connection) ([]model.ObjectSummary, error) {
	path := fmt.Sprintf("/services/data/v%s/sobjects", conn.APIVersion)
	var resp struct {
		SObjects []model.ObjectSummary `json:"sobjects"`
	}
	if err := s.getJSON(ctx, conn, path, &resp); err != nil {
		return nil, err
	}

	objects := make([]model.ObjectSummary, 0, len(resp.SObjects))
	for _, obj := range resp.SObjects {
		if obj.Queryable {
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

// ------------------- Transport -------------------

type restError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (s *Salesforce) getJSON(ctx context.Context, conn *model.Connection, path string, out interface{}) error {
	return s.withRetry(ctx, path, func() error {
		return s.getJSONOnce(ctx, conn, path, out)
	})
}

func (s *Salesforce) getJSONOnce(ctx context.Context, conn *model.Connection, path string, out interface{}) error {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = strings.TrimRight(conn.InstanceURL, "/") + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("upstream request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{err: fmt.Errorf("failed to read upstream response: %w", err)}
	}
	s.logger.Debug("upstream call",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 300 {
		return decodeRESTError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

func decodeRESTError(status int, raw []byte) error {
	var errs []restError
	if err := json.Unmarshal(raw, &errs); err == nil && len(errs) > 0 {
		return &Error{Code: errs[0].ErrorCode, Message: errs[0].Message, StatusCode: status}
	}
	var single restError
	if err := json.Unmarshal(raw, &single); err == nil && single.Message != "" {
		return &Error{Code: single.ErrorCode, Message: single.Message, StatusCode: status}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Code: fmt.Sprintf("HTTP_%d", status), Message: msg, StatusCode: status}
}
