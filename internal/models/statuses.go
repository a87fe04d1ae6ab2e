package model

// Status vocabularies mirror the emulated service's display strings so
// they can be serialized into responses without translation.

type TaskStatus string

const (
	TaskAssignable   TaskStatus = "Assignable"
	TaskUnassignable TaskStatus = "Unassignable"
	TaskReviewable   TaskStatus = "Reviewable"
	TaskReviewing    TaskStatus = "Reviewing"
	TaskDisposed     TaskStatus = "Disposed"
)

type TaskReviewStatus string

const (
	ReviewStatusNotReviewed           TaskReviewStatus = "NotReviewed"
	ReviewStatusMarkedForReview       TaskReviewStatus = "MarkedForReview"
	ReviewStatusReviewedAppropriate   TaskReviewStatus = "ReviewedAppropriate"
	ReviewStatusReviewedInappropriate TaskReviewStatus = "ReviewedInappropriate"
)

type QualStatus string

const (
	QualActive    QualStatus = "Active"
	QualInactive  QualStatus = "Inactive"
	QualDisposing QualStatus = "Disposing"
)

type QualRequestState string

const (
	RequestIdle     QualRequestState = "Idle"
	RequestPending  QualRequestState = "Pending"
	RequestApproved QualRequestState = "Approved"
	RequestRejected QualRequestState = "Rejected"
)

type AssignmentStatus string

const (
	AssignmentAccepted  AssignmentStatus = "Accepted"
	AssignmentSubmitted AssignmentStatus = "Submitted"
	AssignmentApproved  AssignmentStatus = "Approved"
	AssignmentRejected  AssignmentStatus = "Rejected"
)

// Comparator is the vocabulary used by qualification requirements.
type Comparator string

const (
	CmpLessThan             Comparator = "LessThan"
	CmpLessThanOrEqualTo    Comparator = "LessThanOrEqualTo"
	CmpGreaterThan          Comparator = "GreaterThan"
	CmpGreaterThanOrEqualTo Comparator = "GreaterThanOrEqualTo"
	CmpEqualTo              Comparator = "EqualTo"
	CmpNotEqualTo           Comparator = "NotEqualTo"
	CmpExists               Comparator = "Exists"
	CmpDoesNotExist         Comparator = "DoesNotExist"
	CmpIn                   Comparator = "In"
	CmpNotIn                Comparator = "NotIn"
)

// ValidComparator reports whether s is a member of the comparator vocabulary.
func ValidComparator(s string) bool {
	switch Comparator(s) {
	case CmpLessThan, CmpLessThanOrEqualTo, CmpGreaterThan, CmpGreaterThanOrEqualTo,
		CmpEqualTo, CmpNotEqualTo, CmpExists, CmpDoesNotExist, CmpIn, CmpNotIn:
		return true
	}
	return false
}
