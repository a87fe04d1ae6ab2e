package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskType is the reusable template a task is instantiated from.
// Immutable once created; found-or-created by exact value and set match.
type TaskType struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	ExternalID  string `gorm:"size:64;index" json:"id"`
	RequesterID uint   `gorm:"not null;index" json:"-"`

	AssignmentDurationSec int64           `gorm:"not null" json:"assignment_duration_sec"`
	AutoApproveDelaySec   int64           `gorm:"not null;default:0" json:"auto_approve_delay_sec"`
	Reward                decimal.Decimal `gorm:"type:numeric;not null" json:"reward"`
	Title                 string          `gorm:"size:256;not null" json:"title"`
	Description           string          `gorm:"type:text" json:"description"`
	CreatedAt             time.Time       `json:"created_at"`

	Keywords     []KeywordTag               `gorm:"many2many:tasktype_keywords" json:"-"`
	Requirements []QualificationRequirement `gorm:"many2many:tasktype_requirements" json:"-"`
}

func (t *TaskType) AssignmentDuration() time.Duration {
	return time.Duration(t.AssignmentDurationSec) * time.Second
}

func (t *TaskType) AutoApproveDelay() time.Duration {
	return time.Duration(t.AutoApproveDelaySec) * time.Second
}

// Task is a published unit of work.
type Task struct {
	ID          uint             `gorm:"primaryKey" json:"-"`
	ExternalID  string           `gorm:"size:64;index" json:"id"`
	RequesterID uint             `gorm:"not null;index" json:"-"`
	TaskTypeID  uint             `gorm:"not null;index" json:"-"`
	Status      TaskStatus       `gorm:"size:16;not null;default:'Assignable'" json:"status"`
	ReviewStatus TaskReviewStatus `gorm:"size:32;not null;default:'NotReviewed'" json:"review_status"`

	MaxAssignments int       `gorm:"not null;default:1" json:"max_assignments"`
	Expires        time.Time `json:"expires"`
	// Question is raw XML, validated at creation and otherwise opaque.
	Question   string `gorm:"type:text" json:"-"`
	Annotation string `gorm:"size:256" json:"annotation"`
	// UniqueToken suppresses duplicate create requests.
	UniqueToken string    `gorm:"size:64;index" json:"-"`
	Dispose     bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt   time.Time `json:"created_at"`

	TaskType  TaskType  `json:"-"`
	Requester Requester `json:"-"`
}

func (t *Task) IsReviewable() bool {
	return t.Status == TaskReviewable
}

func (t *Task) IsReviewing() bool {
	return t.Status == TaskReviewing
}

// AssignmentStats is the derived availability snapshot for a task.
type AssignmentStats struct {
	Pending   int // accepted, not yet submitted
	Submitted int // submitted, not yet decided
	Completed int // approved or rejected
	Available int
}

// Assignment is one worker's attempt at completing a task. At most one
// non-disposed row exists per (task, worker) pair; a worker return sets
// Dispose instead of deleting.
type Assignment struct {
	ID         uint             `gorm:"primaryKey" json:"-"`
	ExternalID string           `gorm:"size:64;index" json:"id"`
	TaskID     uint             `gorm:"not null;index" json:"-"`
	WorkerID   uint             `gorm:"not null;index" json:"-"`
	Status     AssignmentStatus `gorm:"size:16;not null;default:'Accepted'" json:"status"`

	Accepted    *time.Time `json:"accepted,omitempty"`
	Submitted   *time.Time `json:"submitted,omitempty"`
	Approved    *time.Time `json:"approved,omitempty"`
	Rejected    *time.Time `json:"rejected,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	AutoApprove *time.Time `json:"auto_approve,omitempty"`

	// Answer holds the worker's encoded submission.
	Answer   string `gorm:"type:text" json:"-"`
	Feedback string `gorm:"size:1024" json:"feedback"`
	Dispose  bool   `gorm:"not null;default:false" json:"-"`

	Task   Task   `json:"-"`
	Worker Worker `json:"-"`
}

func (a *Assignment) IsAccepted() bool {
	return a.Status == AssignmentAccepted
}

func (a *Assignment) IsSubmitted() bool {
	return a.Status == AssignmentSubmitted
}

func (a *Assignment) IsApproved() bool {
	return a.Status == AssignmentApproved
}

func (a *Assignment) IsRejected() bool {
	return a.Status == AssignmentRejected
}

func (a *Assignment) IsDecided() bool {
	return a.IsApproved() || a.IsRejected()
}

// BonusPayment is an append-only ledger entry for a bonus paid to a
// worker for a completed assignment.
type BonusPayment struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	WorkerID     uint            `gorm:"not null;index" json:"-"`
	AssignmentID uint            `gorm:"not null;index" json:"-"`
	Amount       decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Reason       string          `gorm:"size:256" json:"reason"`
	UniqueToken  string          `gorm:"size:64" json:"-"`
	CreatedAt    time.Time       `json:"created_at"`

	Worker     Worker     `json:"-"`
	Assignment Assignment `json:"-"`
}

// All returns every model for storage migration.
func All() []any {
	return []any{
		&Account{},
		&Worker{},
		&Requester{},
		&Credential{},
		&WorkerBlock{},
		&KeywordTag{},
		&Qualification{},
		&QualificationRequest{},
		&QualificationGrant{},
		&QualificationRequirement{},
		&TaskType{},
		&Task{},
		&Assignment{},
		&BonusPayment{},
	}
}
