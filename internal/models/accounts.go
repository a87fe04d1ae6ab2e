package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the login identity behind a worker/requester pair. Every
// account owns exactly one Worker and one Requester role.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Username  string    `gorm:"size:128;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:256" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Worker implements the tasks created by requesters.
type Worker struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ExternalID string    `gorm:"size:64;index" json:"id"`
	AccountID  uint      `gorm:"not null;uniqueIndex" json:"-"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	// Incremented every time the worker returns an accepted assignment.
	ReturnedCount int       `gorm:"not null;default:0" json:"returned_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Requester publishes tasks and pays for completed work.
type Requester struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	ExternalID string          `gorm:"size:64;index" json:"id"`
	AccountID  uint            `gorm:"not null;uniqueIndex" json:"-"`
	Name       string          `gorm:"size:256" json:"name"`
	Active     bool            `gorm:"not null;default:true" json:"active"`
	Balance    decimal.Decimal `gorm:"type:numeric;not null" json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Credential is an (access key, secret key) pair for API requests.
// Revocation is a soft toggle, the row is never deleted.
type Credential struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	RequesterID uint      `gorm:"not null;index" json:"-"`
	AccessKey   string    `gorm:"size:32;uniqueIndex;not null" json:"access_key"`
	SecretKey   string    `gorm:"size:64;not null" json:"-"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkerBlock prevents a worker from accepting assignments on any task
// owned by the blocking requester. Soft toggle, never deleted.
type WorkerBlock struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	WorkerID    uint      `gorm:"not null;index:idx_block_pair" json:"-"`
	RequesterID uint      `gorm:"not null;index:idx_block_pair" json:"-"`
	Active      bool      `gorm:"not null;default:false" json:"active"`
	Reason      string    `gorm:"size:256" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`

	Worker    Worker    `json:"-"`
	Requester Requester `json:"-"`
}
