package shiftlogsdk

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
)

// Client is a minimal Shiftlog HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	// EmployeeID is sent as X-Employee-Id when no token is set. The server
	// accepts it only when header identity is enabled.
	EmployeeID string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Employee is the caller profile (partial).
type Employee struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Position string `json:"position"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Project represents a test project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	IsActive    bool   `json:"is_active"`
}

// ProjectSummary carries the project and its counters.
type ProjectSummary struct {
	Project            Project `json:"project"`
	FeaturesCount      int     `json:"features_count"`
	ActiveFeatures     int     `json:"active_features"`
	UnresolvedComments int     `json:"unresolved_comments"`
}

// Feature represents a feature under review.
type Feature struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"test_project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CreatedBy   string  `json:"created_by"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at"`
}

// Comment represents a review comment.
type Comment struct {
	ID           string  `json:"id"`
	FeatureID    string  `json:"feature_id"`
	AuthorID     string  `json:"author_id"`
	Text         string  `json:"text"`
	Type         string  `json:"comment_type"`
	IsResolved   bool    `json:"is_resolved"`
	ReworkReason *string `json:"rework_reason"`
}

// StatusChange is one feature status history row.
type StatusChange struct {
	ID        string `json:"id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy string `json:"changed_by"`
	Comment   string `json:"comment"`
	ChangedAt string `json:"changed_at"`
}

// CommentAction is one comment history row.
type CommentAction struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason"`
	ChangedAt string `json:"changed_at"`
}

// Notification is an in-app notification.
type Notification struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`
	SentAt  string `json:"sent_at"`
}

// Activity is an audit log entry.
type Activity struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts"`
	ActorID     string `json:"actor_id"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
}

// ResolveResult reports a resolved comment and whether review was requested.
type ResolveResult struct {
	Feature           Feature `json:"feature"`
	Comment           Comment `json:"comment"`
	ReviewRequested   bool    `json:"review_requested"`
	UnresolvedPending int     `json:"unresolved_pending"`
}

// ReturnResult reports a comment sent back to rework.
type ReturnResult struct {
	Feature       Feature `json:"feature"`
	Comment       Comment `json:"comment"`
	StatusChanged bool    `json:"status_changed"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Code returns the error code from the response envelope, if any.
func (e *APIError) Code() string {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &env); err != nil {
		return ""
	}
	return env.Error.Code
}

// Me returns the calling employee.
func (c *Client) Me(ctx context.Context) (Employee, error) {
	var resp Employee
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

// CreateProject creates a test project.
func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", map[string]any{"name": name, "description": description}, &resp)
	return resp, err
}

// GetProject returns a project with its counters.
func (c *Client) GetProject(ctx context.Context, id string) (ProjectSummary, error) {
	var resp ProjectSummary
	err := c.do(ctx, http.MethodGet, "v0/projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListProjects lists test projects.
func (c *Client) ListProjects(ctx context.Context, activeOnly bool) ([]Project, error) {
	var resp struct {
		Items []Project `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/projects?active_only=%t", activeOnly), nil, &resp)
	return resp.Items, err
}

// SearchProjects lists visible projects whose name or description contains
// term.
func (c *Client) SearchProjects(ctx context.Context, term string) ([]Project, error) {
	var resp struct {
		Items []Project `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/projects?search="+url.QueryEscape(term), nil, &resp)
	return resp.Items, err
}

// CreateFeature adds a feature to a project. Priority 0 means medium.
func (c *Client) CreateFeature(ctx context.Context, projectID, title, description string, priority int) (Feature, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"priority":    priority,
	}
	var resp Feature
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "features"), body, &resp)
	return resp, err
}

// ListFeatures lists a project's features, highest priority first. Empty
// status means all.
func (c *Client) ListFeatures(ctx context.Context, projectID, status string) ([]Feature, error) {
	endpoint := c.projectPath(projectID, "features")
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp struct {
		Items []Feature `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// SearchFeatures lists a project's visible features whose title or
// description contains term.
func (c *Client) SearchFeatures(ctx context.Context, projectID, term string) ([]Feature, error) {
	var resp struct {
		Items []Feature `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "features")+"?search="+url.QueryEscape(term), nil, &resp)
	return resp.Items, err
}

// GetFeature fetches a feature by id.
func (c *Client) GetFeature(ctx context.Context, id string) (Feature, error) {
	var resp Feature
	err := c.do(ctx, http.MethodGet, c.featurePath(id, ""), nil, &resp)
	return resp, err
}

// UpdateStatus moves a feature to status.
func (c *Client) UpdateStatus(ctx context.Context, featureID, status, comment string) (Feature, error) {
	var resp Feature
	err := c.do(ctx, http.MethodPost, c.featurePath(featureID, "status"), map[string]any{"status": status, "comment": comment}, &resp)
	return resp, err
}

// Transitions lists the statuses the caller may move the feature to.
func (c *Client) Transitions(ctx context.Context, featureID string) ([]string, error) {
	var resp struct {
		Available []string `json:"available"`
	}
	err := c.do(ctx, http.MethodGet, c.featurePath(featureID, "transitions"), nil, &resp)
	return resp.Available, err
}

// MarkCompleted marks a reworked feature completed.
func (c *Client) MarkCompleted(ctx context.Context, featureID string) (Feature, error) {
	var resp Feature
	err := c.do(ctx, http.MethodPost, c.featurePath(featureID, "complete"), nil, &resp)
	return resp, err
}

// ReturnToRework sends a feature back to its creator.
func (c *Client) ReturnToRework(ctx context.Context, featureID, comment string) (Feature, error) {
	var resp Feature
	err := c.do(ctx, http.MethodPost, c.featurePath(featureID, "rework"), map[string]any{"comment": comment}, &resp)
	return resp, err
}

// StatusHistory returns status changes, newest first.
func (c *Client) StatusHistory(ctx context.Context, featureID string) ([]StatusChange, error) {
	var resp struct {
		Items []StatusChange `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.featurePath(featureID, "history"), nil, &resp)
	return resp.Items, err
}

// AddComment adds a review comment. Empty commentType means remark.
func (c *Client) AddComment(ctx context.Context, featureID, text, commentType string) (Comment, error) {
	body := map[string]any{"text": text}
	if commentType != "" {
		body["comment_type"] = commentType
	}
	var resp Comment
	err := c.do(ctx, http.MethodPost, c.featurePath(featureID, "comments"), body, &resp)
	return resp, err
}

// ListComments lists comments, oldest first.
func (c *Client) ListComments(ctx context.Context, featureID string, unresolvedOnly bool) ([]Comment, error) {
	var resp struct {
		Items []Comment `json:"items"`
	}
	endpoint := fmt.Sprintf("%s?unresolved=%t", c.featurePath(featureID, "comments"), unresolvedOnly)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// ResolveComment resolves a comment and requests review when none remain.
func (c *Client) ResolveComment(ctx context.Context, featureID, commentID string) (ResolveResult, error) {
	var resp ResolveResult
	err := c.do(ctx, http.MethodPost, c.featurePath(featureID, "comments/"+url.PathEscape(commentID)+"/resolve"), nil, &resp)
	return resp, err
}

// ReturnComment reopens a resolved comment with a reason.
func (c *Client) ReturnComment(ctx context.Context, featureID, commentID, reason string) (ReturnResult, error) {
	var resp ReturnResult
	err := c.do(ctx, http.MethodPost, c.featurePath(featureID, "comments/"+url.PathEscape(commentID)+"/return"), map[string]any{"reason": reason}, &resp)
	return resp, err
}

// CommentHistory returns a comment's actions, newest first.
func (c *Client) CommentHistory(ctx context.Context, commentID string) ([]CommentAction, error) {
	var resp struct {
		Items []CommentAction `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/comments/"+url.PathEscape(commentID)+"/history", nil, &resp)
	return resp.Items, err
}

// Notifications returns the caller's notifications and unread count.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]Notification, int, error) {
	var resp struct {
		Items       []Notification `json:"items"`
		UnreadCount int            `json:"unread_count"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/notifications?unread=%t", unreadOnly), nil, &resp)
	return resp.Items, resp.UnreadCount, err
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "v0/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// Activity returns recent audit entries. Supervisors and admins only.
func (c *Client) Activity(ctx context.Context, entityID string, limit int) ([]Activity, error) {
	q := url.Values{}
	if entityID != "" {
		q.Set("entity_id", entityID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	endpoint := "v0/activity"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Activity `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.EmployeeID != "":
		req.Header.Set("X-Employee-Id", c.EmployeeID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(projectID, p string) string {
	return fmt.Sprintf("v0/projects/%s/%s", url.PathEscape(projectID), strings.TrimLeft(p, "/"))
}

func (c *Client) featurePath(featureID, p string) string {
	base := "v0/features/" + url.PathEscape(featureID)
	if p == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
