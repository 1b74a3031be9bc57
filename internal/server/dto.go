package server

import "shiftlog/internal/domain"

// Request payloads

type CreateProjectRequest struct {
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
}

type UpdateProjectRequest struct {
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CreateFeatureRequest struct {
	Title       string `json:"title" minLength:"1" maxLength:"200"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty" minimum:"0" maximum:"4" doc:"1 low, 2 medium, 3 high, 4 critical; 0 means medium"`
}

type UpdateFeatureRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" enum:"new,testing,rework,completed,done"`
	Comment string `json:"comment,omitempty"`
}

type ReworkRequest struct {
	Comment string `json:"comment,omitempty"`
}

type AddCommentRequest struct {
	Text string `json:"text" minLength:"1"`
	Type string `json:"comment_type,omitempty" enum:"remark,approval,clarification"`
}

type ReturnCommentRequest struct {
	Reason string `json:"reason" minLength:"1"`
}

// Response payloads

type ProjectList struct {
	Items []domain.TestProject `json:"items"`
}

type FeatureList struct {
	Items []domain.Feature `json:"items"`
}

type CommentList struct {
	Items []domain.FeatureComment `json:"items"`
}

type StatusHistoryList struct {
	Items []domain.FeatureStatusHistory `json:"items"`
}

type CommentHistoryList struct {
	Items []domain.FeatureCommentHistory `json:"items"`
}

type NotificationList struct {
	Items       []domain.Notification `json:"items"`
	UnreadCount int                   `json:"unread_count"`
}

type ActivityList struct {
	Items []domain.ActivityEntry `json:"items"`
}

type EmployeeList struct {
	Items []domain.Employee `json:"items"`
}

type TransitionsResponse struct {
	FeatureID string                 `json:"feature_id"`
	Status    domain.FeatureStatus   `json:"status"`
	Available []domain.FeatureStatus `json:"available"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func priorityPtr(p *int) *domain.Priority {
	if p == nil {
		return nil
	}
	v := domain.Priority(*p)
	return &v
}
