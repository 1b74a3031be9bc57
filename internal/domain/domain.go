package domain

type Department struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Employee is the actor directory entry the workflow reads. The workflow
// never mutates employees.
type Employee struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name,omitempty"`
	DepartmentID string   `json:"department_id,omitempty"`
	Position     Position `json:"position" enum:"employee,supervisor,admin"`
	Role         Role     `json:"role,omitempty"`
	TelegramID   string   `json:"telegram_id,omitempty"`
	IsActive     bool     `json:"is_active"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
}

func (e Employee) IsAdmin() bool {
	return e.Position == PositionAdmin
}

// IsSupervisor reports supervisors and admins alike.
func (e Employee) IsSupervisor() bool {
	return e.Position == PositionSupervisor || e.Position == PositionAdmin
}

func (e Employee) IsProgrammer() bool {
	return e.Role == RoleProgrammer
}

func (e Employee) IsTester() bool {
	return e.Role == RoleTester
}

func (e Employee) DisplayName() string {
	if e.FullName != "" {
		return e.FullName
	}
	return e.Username
}

type TestProject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// ProjectSummary carries the counters shown on a project page.
type ProjectSummary struct {
	Project            TestProject `json:"project"`
	FeaturesCount      int         `json:"features_count"`
	ActiveFeatures     int         `json:"active_features"`
	UnresolvedComments int         `json:"unresolved_comments"`
}

type Feature struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"test_project_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	CreatedBy   string        `json:"created_by"`
	Status      FeatureStatus `json:"status" enum:"new,testing,rework,completed,done"`
	Priority    Priority      `json:"priority" minimum:"1" maximum:"4"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
	UpdatedAt   string        `json:"updated_at" format:"date-time"`
	CompletedAt *string       `json:"completed_at,omitempty" format:"date-time"`
}

type FeatureComment struct {
	ID           string      `json:"id"`
	FeatureID    string      `json:"feature_id"`
	AuthorID     string      `json:"author_id"`
	Text         string      `json:"text"`
	Type         CommentType `json:"comment_type" enum:"remark,approval,clarification"`
	IsResolved   bool        `json:"is_resolved"`
	ReworkReason *string     `json:"rework_reason,omitempty"`
	CreatedAt    string      `json:"created_at" format:"date-time"`
}

type FeatureStatusHistory struct {
	ID        string        `json:"id"`
	FeatureID string        `json:"feature_id"`
	OldStatus FeatureStatus `json:"old_status"`
	NewStatus FeatureStatus `json:"new_status"`
	ActorID   string        `json:"changed_by"`
	Comment   string        `json:"comment,omitempty"`
	ChangedAt string        `json:"changed_at" format:"date-time"`
}

type FeatureCommentHistory struct {
	ID        string        `json:"id"`
	CommentID string        `json:"comment_id"`
	Action    CommentAction `json:"action" enum:"created,resolved,returned_to_rework,updated"`
	ActorID   string        `json:"changed_by"`
	Reason    string        `json:"reason,omitempty"`
	ChangedAt string        `json:"changed_at" format:"date-time"`
}

type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read"`
	SentAt      string           `json:"sent_at" format:"date-time"`
	ReadAt      *string          `json:"read_at,omitempty" format:"date-time"`
}

type ActivityEntry struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	ActorID     string `json:"actor_id,omitempty"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description,omitempty"`
	ChangesJSON string `json:"changes_json,omitempty"`
}
