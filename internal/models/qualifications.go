package model

import (
	"strconv"
	"strings"
	"time"
)

// KeywordTag is a searchable term attached to qualifications and task types.
type KeywordTag struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	Value string `gorm:"size:128;uniqueIndex;not null" json:"value"`
}

// Locale identifies a worker location. Country is an ISO 3166 code,
// Subdivision is optional.
type Locale struct {
	Country     string `gorm:"size:16" json:"country"`
	Subdivision string `gorm:"size:16" json:"subdivision"`
}

func (l Locale) IsZero() bool {
	return l.Country == "" && l.Subdivision == ""
}

// String renders "US" or "US-WA" for comparator matching and storage.
func (l Locale) String() string {
	if l.Subdivision == "" {
		return l.Country
	}
	return l.Country + "-" + l.Subdivision
}

// ParseLocale is the inverse of Locale.String.
func ParseLocale(s string) Locale {
	country, sub, _ := strings.Cut(s, "-")
	return Locale{Country: country, Subdivision: sub}
}

// Qualification gates worker access to tasks. Created Active; deletion
// moves it through Disposing while tasks still reference it.
type Qualification struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	ExternalID  string     `gorm:"size:64;index" json:"id"`
	RequesterID uint       `gorm:"not null;index" json:"-"`
	Name        string     `gorm:"size:256;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Status      QualStatus `gorm:"size:16;not null;default:'Active'" json:"status"`
	Requestable bool       `gorm:"not null;default:true" json:"requestable"`

	AutoGrant       bool   `gorm:"not null;default:false" json:"auto_grant"`
	AutoGrantValue  int    `gorm:"not null;default:1" json:"auto_grant_value"`
	AutoGrantLocale Locale `gorm:"embedded;embeddedPrefix:auto_grant_locale_" json:"auto_grant_locale"`

	RetryActive   bool  `gorm:"not null;default:false" json:"retry_active"`
	RetryDelaySec int64 `gorm:"not null;default:0" json:"retry_delay_sec"`

	// Test and AnswerKey are stored as raw XML and parsed on demand.
	Test            string `gorm:"type:text" json:"-"`
	AnswerKey       string `gorm:"type:text" json:"-"`
	TestDurationSec int64  `gorm:"not null;default:0" json:"test_duration_sec"`

	// Dispose marks the qualification for deletion once no outstanding
	// task references it.
	Dispose   bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	Keywords []KeywordTag `gorm:"many2many:qualification_keywords" json:"-"`
}

func (q *Qualification) HasTest() bool {
	return len(q.Test) > 0
}

func (q *Qualification) IsActive() bool {
	return q.Status == QualActive
}

func (q *Qualification) RetryDelay() time.Duration {
	return time.Duration(q.RetryDelaySec) * time.Second
}

// QualificationRequest tracks one worker's attempt to acquire a
// qualification. At most one non-rejected request exists per
// (worker, qualification) pair; a rejected request is reset and reused
// when the retry window elapses.
type QualificationRequest struct {
	ID              uint             `gorm:"primaryKey" json:"-"`
	ExternalID      string           `gorm:"size:64;index" json:"id"`
	WorkerID        uint             `gorm:"not null;index" json:"-"`
	QualificationID uint             `gorm:"not null;index" json:"-"`
	State           QualRequestState `gorm:"size:16;not null;default:'Idle'" json:"state"`
	LastRequest     time.Time        `json:"last_request"`
	Submitted       *time.Time       `json:"submitted,omitempty"`
	// Answer holds the worker's encoded test submission.
	Answer string `gorm:"type:text" json:"-"`
	Reason string `gorm:"size:256" json:"reason"`

	Worker        Worker        `json:"-"`
	Qualification Qualification `json:"-"`
}

func (r *QualificationRequest) IsPending() bool {
	return r.State == RequestPending
}

func (r *QualificationRequest) IsIdle() bool {
	return r.State == RequestIdle
}

// QualificationGrant records that a worker holds (or held) a
// qualification. Revocation deactivates the row; it is removed only when
// its qualification is hard-deleted without passing through Disposing.
type QualificationGrant struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	WorkerID        uint      `gorm:"not null;index:idx_grant_pair" json:"-"`
	QualificationID uint      `gorm:"not null;index:idx_grant_pair" json:"-"`
	Value           int       `gorm:"not null;default:0" json:"value"`
	Locale          Locale    `gorm:"embedded;embeddedPrefix:locale_" json:"locale"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	Granted         time.Time `json:"granted"`
	Reason          string    `gorm:"size:256" json:"reason"`

	Worker        Worker        `json:"-"`
	Qualification Qualification `json:"-"`
}

// QualificationRequirement constrains which workers may accept a task.
// Rows are immutable and deduplicated by exact value match, so two task
// types sharing a requirement share the row.
type QualificationRequirement struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	QualificationID uint       `gorm:"not null;index" json:"-"`
	Comparator      Comparator `gorm:"size:32;not null" json:"comparator"`
	// IntValues and LocaleValues are comma-separated canonical encodings.
	// A requirement configures one of the two, never both.
	IntValues         string `gorm:"size:256" json:"int_values"`
	LocaleValues      string `gorm:"size:256" json:"locale_values"`
	RequiredToPreview bool   `gorm:"not null;default:false" json:"required_to_preview"`

	Qualification Qualification `json:"-"`
}

// IntList decodes the configured integer values.
func (r *QualificationRequirement) IntList() []int {
	if r.IntValues == "" {
		return nil
	}
	parts := strings.Split(r.IntValues, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// LocaleList decodes the configured locale values.
func (r *QualificationRequirement) LocaleList() []Locale {
	if r.LocaleValues == "" {
		return nil
	}
	parts := strings.Split(r.LocaleValues, ",")
	out := make([]Locale, 0, len(parts))
	for _, p := range parts {
		out = append(out, ParseLocale(strings.TrimSpace(p)))
	}
	return out
}

// EncodeIntValues produces the canonical stored form of an integer list.
func EncodeIntValues(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// EncodeLocaleValues produces the canonical stored form of a locale list.
func EncodeLocaleValues(vals []Locale) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}
