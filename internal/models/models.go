// Package models defines the core domain types for Tempo.
package models

import "time"

// TaskStatus represents the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// SessionSource records why a timer session ended.
type SessionSource string

const (
	SourceManual   SessionSource = "manual"
	SourceSwitch   SessionSource = "switch"
	SourceAutoStop SessionSource = "autostop"
	SourceDone     SessionSource = "done"
)

// Client is a customer of the agency.
type Client struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	Company   string    `json:"company,omitempty" db:"company"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Project groups tasks for a client and is the default timer scope.
type Project struct {
	ID              string    `json:"id" db:"id"`
	ClientID        string    `json:"client_id,omitempty" db:"client_id"`
	Name            string    `json:"name" db:"name"`
	HourlyRateCents int64     `json:"hourly_rate_cents" db:"hourly_rate_cents"`
	Currency        string    `json:"currency" db:"currency"`
	Archived        bool      `json:"archived" db:"archived"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Task is a unit of work carrying its own timer state.
//
// LastResumeAt is set if and only if IsRunning is true. AccumulatedSeconds
// holds every second banked by completed sessions and never decreases.
type Task struct {
	ID                 string     `json:"id" db:"id"`
	ProjectID          string     `json:"project_id" db:"project_id"`
	Title              string     `json:"title" db:"title"`
	Description        string     `json:"description,omitempty" db:"description"`
	Status             TaskStatus `json:"status" db:"status"`
	Priority           int        `json:"priority" db:"priority"`
	DueAt              *time.Time `json:"due_at,omitempty" db:"due_at"`
	IsRunning          bool       `json:"is_running" db:"is_running"`
	AccumulatedSeconds int64      `json:"accumulated_seconds" db:"accumulated_seconds"`
	LastResumeAt       *time.Time `json:"last_resume_at,omitempty" db:"last_resume_at"`
	LastStopAt         *time.Time `json:"last_stop_at,omitempty" db:"last_stop_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// TaskPatch carries the fields of a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title              *string     `json:"title,omitempty"`
	Description        *string     `json:"description,omitempty"`
	Status             *TaskStatus `json:"status,omitempty"`
	Priority           *int        `json:"priority,omitempty"`
	DueAt              *time.Time  `json:"due_at,omitempty"`
	IsRunning          *bool       `json:"is_running,omitempty"`
	AccumulatedSeconds *int64      `json:"accumulated_seconds,omitempty"`
	LastResumeAt       *time.Time  `json:"last_resume_at,omitempty"`
	ClearLastResumeAt  bool        `json:"-"`
	LastStopAt         *time.Time  `json:"last_stop_at,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueAt == nil && p.IsRunning == nil && p.AccumulatedSeconds == nil &&
		p.LastResumeAt == nil && !p.ClearLastResumeAt && p.LastStopAt == nil
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	ProjectID string
	Status    TaskStatus
	Running   *bool
}

// TimeSession is one banked interval between a start and its matching stop.
type TimeSession struct {
	ID        string        `json:"id" db:"id"`
	TaskID    string        `json:"task_id" db:"task_id"`
	ProjectID string        `json:"project_id" db:"project_id"`
	StartedAt time.Time     `json:"started_at" db:"started_at"`
	StoppedAt time.Time     `json:"stopped_at" db:"stopped_at"`
	Seconds   int64         `json:"seconds" db:"seconds"`
	Source    SessionSource `json:"source" db:"source"`
	Note      string        `json:"note,omitempty" db:"note"`
}

// SessionFilter narrows session listings. Zero times are open bounds.
type SessionFilter struct {
	TaskID    string
	ProjectID string
	From      time.Time
	To        time.Time
}

// ProposalStatus is the commercial state of a proposal.
type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalSent     ProposalStatus = "sent"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// Valid reports whether s is a known proposal status.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalDraft, ProposalSent, ProposalAccepted, ProposalRejected:
		return true
	}
	return false
}

// ProposalItem is a priced line of a proposal.
type ProposalItem struct {
	Description    string  `json:"description" yaml:"description"`
	Quantity       float64 `json:"quantity" yaml:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents" yaml:"unit_price_cents"`
}

// AmountCents returns quantity times unit price, rounded to the nearest cent.
func (i ProposalItem) AmountCents() int64 {
	v := i.Quantity * float64(i.UnitPriceCents)
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}

// Proposal is a commercial offer drafted for a client.
type Proposal struct {
	ID         string         `json:"id" db:"id"`
	ClientID   string         `json:"client_id" db:"client_id"`
	ProjectID  string         `json:"project_id,omitempty" db:"project_id"`
	Title      string         `json:"title" db:"title"`
	Status     ProposalStatus `json:"status" db:"status"`
	Currency   string         `json:"currency" db:"currency"`
	Items      []ProposalItem `json:"items" db:"-"`
	Notes      string         `json:"notes,omitempty" db:"notes"`
	ValidUntil *time.Time     `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// TotalCents sums every line item.
func (p *Proposal) TotalCents() int64 {
	var total int64
	for _, item := range p.Items {
		total += item.AmountCents()
	}
	return total
}

// AuditEntry is a decision record for a state-mutating action.
type AuditEntry struct {
	ID         string    `json:"id" db:"id"`
	Action     string    `json:"action" db:"action"`
	InputsHash string    `json:"inputs_hash" db:"inputs_hash"`
	Outcome    string    `json:"outcome" db:"outcome"`
	TaskID     string    `json:"task_id,omitempty" db:"task_id"`
	Details    string    `json:"details,omitempty" db:"details"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// Dashboard summarizes the account at a point in time.
type Dashboard struct {
	Clients        int    `json:"clients"`
	Projects       int    `json:"projects"`
	OpenTasks      int    `json:"open_tasks"`
	DoneTasks      int    `json:"done_tasks"`
	RunningTasks   []Task `json:"running_tasks"`
	TrackedSeconds int64  `json:"tracked_seconds"`
	TodaySeconds   int64  `json:"today_seconds"`
	OpenProposals  int    `json:"open_proposals"`
	AcceptedCents  int64  `json:"accepted_cents"`
}
