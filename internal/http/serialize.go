package http

import (
	"strings"
	"time"

	model "github.com/callendorph/mturkemu/internal/models"
)

// Response shapes mirror the emulated service's wire format field for
// field, so existing client SDK code can parse them unchanged.

type LocaleDTO struct {
	Country     string `json:"Country"`
	Subdivision string `json:"Subdivision,omitempty"`
}

type QualificationRequirementDTO struct {
	QualificationTypeID string      `json:"QualificationTypeId"`
	Comparator          string      `json:"Comparator"`
	IntegerValues       []int       `json:"IntegerValues,omitempty"`
	LocaleValues        []LocaleDTO `json:"LocaleValues,omitempty"`
	RequiredToPreview   bool        `json:"RequiredToPreview"`
}

type HITDTO struct {
	HITID                        string                        `json:"HITId"`
	HITTypeID                    string                        `json:"HITTypeId"`
	CreationTime                 time.Time                     `json:"CreationTime"`
	Title                        string                        `json:"Title"`
	Description                  string                        `json:"Description"`
	Question                     string                        `json:"Question"`
	Keywords                     string                        `json:"Keywords"`
	HITStatus                    string                        `json:"HITStatus"`
	MaxAssignments               int                           `json:"MaxAssignments"`
	Reward                       string                        `json:"Reward"`
	AutoApprovalDelayInSeconds   int64                         `json:"AutoApprovalDelayInSeconds"`
	Expiration                   time.Time                     `json:"Expiration"`
	AssignmentDurationInSeconds  int64                         `json:"AssignmentDurationInSeconds"`
	RequesterAnnotation          string                        `json:"RequesterAnnotation,omitempty"`
	QualificationRequirements    []QualificationRequirementDTO `json:"QualificationRequirements"`
	HITReviewStatus              string                        `json:"HITReviewStatus"`
	NumberOfAssignmentsPending   int                           `json:"NumberOfAssignmentsPending"`
	NumberOfAssignmentsAvailable int                           `json:"NumberOfAssignmentsAvailable"`
	NumberOfAssignmentsCompleted int                           `json:"NumberOfAssignmentsCompleted"`
}

type AssignmentDTO struct {
	AssignmentID      string     `json:"AssignmentId"`
	WorkerID          string     `json:"WorkerId"`
	HITID             string     `json:"HITId"`
	AssignmentStatus  string     `json:"AssignmentStatus"`
	AutoApprovalTime  *time.Time `json:"AutoApprovalTime,omitempty"`
	AcceptTime        *time.Time `json:"AcceptTime,omitempty"`
	SubmitTime        *time.Time `json:"SubmitTime,omitempty"`
	ApprovalTime      *time.Time `json:"ApprovalTime,omitempty"`
	RejectionTime     *time.Time `json:"RejectionTime,omitempty"`
	Deadline          *time.Time `json:"Deadline,omitempty"`
	Answer            string     `json:"Answer,omitempty"`
	RequesterFeedback string     `json:"RequesterFeedback,omitempty"`
}

type QualificationTypeDTO struct {
	QualificationTypeID     string    `json:"QualificationTypeId"`
	CreationTime            time.Time `json:"CreationTime"`
	Name                    string    `json:"Name"`
	Description             string    `json:"Description"`
	Keywords                string    `json:"Keywords,omitempty"`
	QualificationTypeStatus string    `json:"QualificationTypeStatus"`
	Test                    string    `json:"Test,omitempty"`
	TestDurationInSeconds   int64     `json:"TestDurationInSeconds,omitempty"`
	AnswerKey               string    `json:"AnswerKey,omitempty"`
	RetryDelayInSeconds     int64     `json:"RetryDelayInSeconds,omitempty"`
	IsRequestable           bool      `json:"IsRequestable"`
	AutoGranted             bool      `json:"AutoGranted"`
	AutoGrantedValue        int       `json:"AutoGrantedValue,omitempty"`
}

type QualificationRequestDTO struct {
	QualificationRequestID string     `json:"QualificationRequestId"`
	QualificationTypeID    string     `json:"QualificationTypeId"`
	WorkerID               string     `json:"WorkerId"`
	State                  string     `json:"State"`
	Test                   string     `json:"Test,omitempty"`
	Answer                 string     `json:"Answer,omitempty"`
	SubmitTime             *time.Time `json:"SubmitTime,omitempty"`
}

type QualificationDTO struct {
	QualificationTypeID string     `json:"QualificationTypeId"`
	WorkerID            string     `json:"WorkerId"`
	GrantTime           time.Time  `json:"GrantTime"`
	IntegerValue        int        `json:"IntegerValue"`
	LocaleValue         *LocaleDTO `json:"LocaleValue,omitempty"`
	Status              string     `json:"Status"`
}

type BonusPaymentDTO struct {
	WorkerID     string    `json:"WorkerId"`
	BonusAmount  string    `json:"BonusAmount"`
	AssignmentID string    `json:"AssignmentId"`
	Reason       string    `json:"Reason"`
	GrantTime    time.Time `json:"GrantTime"`
}

type WorkerBlockDTO struct {
	WorkerID string `json:"WorkerId"`
	Reason   string `json:"Reason"`
}

func newLocale(l model.Locale) *LocaleDTO {
	if l.IsZero() {
		return nil
	}
	return &LocaleDTO{Country: l.Country, Subdivision: l.Subdivision}
}

func newRequirement(req *model.QualificationRequirement) QualificationRequirementDTO {
	dto := QualificationRequirementDTO{
		QualificationTypeID: req.Qualification.ExternalID,
		Comparator:          string(req.Comparator),
		IntegerValues:       req.IntList(),
		RequiredToPreview:   req.RequiredToPreview,
	}
	for _, l := range req.LocaleList() {
		dto.LocaleValues = append(dto.LocaleValues, LocaleDTO{
			Country: l.Country, Subdivision: l.Subdivision,
		})
	}
	return dto
}

func joinKeywords(tags []model.KeywordTag) string {
	values := make([]string, len(tags))
	for i, t := range tags {
		values[i] = t.Value
	}
	return strings.Join(values, ",")
}

func newHIT(task *model.Task, stats model.AssignmentStats) HITDTO {
	tt := &task.TaskType
	reqs := make([]QualificationRequirementDTO, 0, len(tt.Requirements))
	for i := range tt.Requirements {
		reqs = append(reqs, newRequirement(&tt.Requirements[i]))
	}
	return HITDTO{
		HITID:                        task.ExternalID,
		HITTypeID:                    tt.ExternalID,
		CreationTime:                 task.CreatedAt,
		Title:                        tt.Title,
		Description:                  tt.Description,
		Question:                     task.Question,
		Keywords:                     joinKeywords(tt.Keywords),
		HITStatus:                    string(task.Status),
		MaxAssignments:               task.MaxAssignments,
		Reward:                       tt.Reward.StringFixed(2),
		AutoApprovalDelayInSeconds:   tt.AutoApproveDelaySec,
		Expiration:                   task.Expires,
		AssignmentDurationInSeconds:  tt.AssignmentDurationSec,
		RequesterAnnotation:          task.Annotation,
		QualificationRequirements:    reqs,
		HITReviewStatus:              string(task.ReviewStatus),
		NumberOfAssignmentsPending:   stats.Pending,
		NumberOfAssignmentsAvailable: stats.Available,
		NumberOfAssignmentsCompleted: stats.Completed,
	}
}

func newAssignment(a *model.Assignment, hitID, workerID string) AssignmentDTO {
	return AssignmentDTO{
		AssignmentID:      a.ExternalID,
		WorkerID:          workerID,
		HITID:             hitID,
		AssignmentStatus:  string(a.Status),
		AutoApprovalTime:  a.AutoApprove,
		AcceptTime:        a.Accepted,
		SubmitTime:        a.Submitted,
		ApprovalTime:      a.Approved,
		RejectionTime:     a.Rejected,
		Deadline:          a.Deadline,
		Answer:            a.Answer,
		RequesterFeedback: a.Feedback,
	}
}

// newQualificationType serializes a type. The test and answer key are
// included only when includeSecrets is set: workers see the test via the
// request flow, never the key.
func newQualificationType(q *model.Qualification, includeSecrets bool) QualificationTypeDTO {
	dto := QualificationTypeDTO{
		QualificationTypeID:     q.ExternalID,
		CreationTime:            q.CreatedAt,
		Name:                    q.Name,
		Description:             q.Description,
		Keywords:                joinKeywords(q.Keywords),
		QualificationTypeStatus: string(q.Status),
		TestDurationInSeconds:   q.TestDurationSec,
		RetryDelayInSeconds:     q.RetryDelaySec,
		IsRequestable:           q.Requestable,
		AutoGranted:             q.AutoGrant,
	}
	if q.AutoGrant {
		dto.AutoGrantedValue = q.AutoGrantValue
	}
	if includeSecrets {
		dto.Test = q.Test
		dto.AnswerKey = q.AnswerKey
	}
	return dto
}

func newQualificationRequest(r *model.QualificationRequest, qualID, workerID, test string) QualificationRequestDTO {
	return QualificationRequestDTO{
		QualificationRequestID: r.ExternalID,
		QualificationTypeID:    qualID,
		WorkerID:               workerID,
		State:                  string(r.State),
		Test:                   test,
		Answer:                 r.Answer,
		SubmitTime:             r.Submitted,
	}
}

func newQualification(g *model.QualificationGrant, qualID, workerID string) QualificationDTO {
	status := "Granted"
	if !g.Active {
		status = "Revoked"
	}
	return QualificationDTO{
		QualificationTypeID: qualID,
		WorkerID:            workerID,
		GrantTime:           g.Granted,
		IntegerValue:        g.Value,
		LocaleValue:         newLocale(g.Locale),
		Status:              status,
	}
}

func newBonusPayment(b *model.BonusPayment, workerID, assignmentID string) BonusPaymentDTO {
	return BonusPaymentDTO{
		WorkerID:     workerID,
		BonusAmount:  b.Amount.StringFixed(2),
		AssignmentID: assignmentID,
		Reason:       b.Reason,
		GrantTime:    b.CreatedAt,
	}
}
