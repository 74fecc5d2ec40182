package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/bleue/internal/models"
)

const (
	issuesTable   = "issues"
	commentsTable = "comments"
)

// HTTPClient is the subset of *http.Client the backend needs (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// PostgRESTConfig holds the hosted backend connection settings.
type PostgRESTConfig struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
	VerifyTLS  bool
}

// Validate reports every missing required setting at once.
func (c PostgRESTConfig) Validate() error {
	var missing []string
	if c.URL == "" {
		missing = append(missing, "backend.url (SUPABASE_URL)")
	}
	if c.ServiceKey == "" {
		missing = append(missing, "backend.service_key (SUPABASE_SERVICE_ROLE_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required backend configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewHTTPClient builds the single connection-level client shared by all operations.
func NewHTTPClient(cfg PostgRESTConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via backend.verify_tls
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, msg)
}

// PostgRESTStore implements Store against a PostgREST endpoint (e.g. Supabase).
type PostgRESTStore struct {
	baseURL    string
	serviceKey string
	httpClient HTTPClient
}

// NewPostgRESTStore validates cfg and returns a store using httpClient for every request.
func NewPostgRESTStore(cfg PostgRESTConfig, httpClient HTTPClient) (*PostgRESTStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	return &PostgRESTStore{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/rest/v1",
		serviceKey: cfg.ServiceKey,
		httpClient: httpClient,
	}, nil
}

// Migrate is a no-op: the hosted schema is managed by the backend.
func (s *PostgRESTStore) Migrate(_ context.Context) error { return nil }

// Close releases idle connections.
func (s *PostgRESTStore) Close() error {
	if c, ok := s.httpClient.(*http.Client); ok {
		c.CloseIdleConnections()
	}
	return nil
}

// --- Issues ---

func (s *PostgRESTStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	payload := map[string]any{
		"description": issue.Description,
		"status":      string(issue.Status),
	}
	if issue.Title != "" {
		payload["title"] = issue.Title
	}
	if issue.Workflow != models.WorkflowNone {
		payload["type"] = string(issue.Workflow)
	}
	if issue.AssignedTo != "" {
		payload["assigned_to"] = issue.AssignedTo
	}

	var rows []issueRow
	if err := s.do(ctx, http.MethodPost, issuesTable, nil, payload, &rows); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("create issue: backend returned no data")
	}
	created, err := rows[0].toModel()
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	*issue = *created
	return nil
}

func (s *PostgRESTStore) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	q := url.Values{"select": {"*"}, "id": {eqFilter(id)}}
	var rows []issueRow
	if err := s.do(ctx, http.MethodGet, issuesTable, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("get issue %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return rows[0].toModel()
}

func (s *PostgRESTStore) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	var rows []issueRow
	if err := s.do(ctx, http.MethodGet, issuesTable, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	issues := make([]*models.Issue, 0, len(rows))
	for _, r := range rows {
		issue, err := r.toModel()
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *PostgRESTStore) UpdateIssue(ctx context.Context, id int64, patch IssuePatch) (*models.Issue, error) {
	payload := map[string]any{}
	if patch.Status != nil {
		payload["status"] = string(*patch.Status)
	}
	if patch.Description != nil {
		payload["description"] = *patch.Description
	}
	if patch.Workflow != nil {
		payload["type"] = nullable(string(*patch.Workflow))
	}
	if patch.AssignedTo != nil {
		payload["assigned_to"] = nullable(*patch.AssignedTo)
	}

	q := url.Values{"id": {eqFilter(id)}}
	var rows []issueRow
	if err := s.do(ctx, http.MethodPatch, issuesTable, q, payload, &rows); err != nil {
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return rows[0].toModel()
}

func (s *PostgRESTStore) DeleteIssue(ctx context.Context, id int64) error {
	q := url.Values{"id": {eqFilter(id)}}
	var rows []json.RawMessage
	if err := s.do(ctx, http.MethodDelete, issuesTable, q, nil, &rows); err != nil {
		return fmt.Errorf("delete issue %d: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return nil
}

// --- Comments ---

func (s *PostgRESTStore) CreateComment(ctx context.Context, c *models.Comment) error {
	raw := c.Raw
	if raw == nil {
		raw = map[string]any{}
	}
	payload := map[string]any{
		"issue_id": c.IssueID,
		"comment":  c.Comment,
		"raw":      raw,
		"source":   nullable(c.Source),
		"type":     nullable(c.Type),
	}

	var rows []commentRow
	if err := s.do(ctx, http.MethodPost, commentsTable, nil, payload, &rows); err != nil {
		return fmt.Errorf("create comment on issue %d: %w", c.IssueID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("create comment on issue %d: backend returned no data", c.IssueID)
	}
	created, err := rows[0].toModel()
	if err != nil {
		return fmt.Errorf("create comment on issue %d: %w", c.IssueID, err)
	}
	*c = *created
	return nil
}

func (s *PostgRESTStore) ListComments(ctx context.Context, issueID int64) ([]*models.Comment, error) {
	q := url.Values{
		"select":   {"*"},
		"issue_id": {eqFilter(issueID)},
		"order":    {"created_at.desc"},
	}
	var rows []commentRow
	if err := s.do(ctx, http.MethodGet, commentsTable, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("list comments for issue %d: %w", issueID, err)
	}

	comments := make([]*models.Comment, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// --- transport ---

func eqFilter(id int64) string {
	return "eq." + strconv.FormatInt(id, 10)
}

// nullable maps "" to JSON null so clearing a column writes NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// do performs one round trip and decodes the JSON body into out. Writes ask the
// backend to return the affected rows.
func (s *PostgRESTStore) do(ctx context.Context, method, table string, query url.Values, body any, out any) error {
	endpoint := s.baseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
