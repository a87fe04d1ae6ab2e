package errors

import "net/http"

var ErrAssignmentAlreadyAccepted = &RequestError{
	Message:    "You have already accepted an assignment for this task",
	Code:       "AWS.MechanicalTurk.AssignmentAlreadyAccepted",
	StatusCode: http.StatusConflict,
}

var ErrAlreadyHasAssignment = &RequestError{
	Message:    "You have already submitted an assignment for this task",
	Code:       "AWS.MechanicalTurk.WorkerAlreadyHasAssignment",
	StatusCode: http.StatusConflict,
}

var ErrPrerequisitesNotMet = &RequestError{
	Message:    "You do not hold the qualifications required for this task",
	Code:       "AWS.MechanicalTurk.PrerequisitesNotMet",
	StatusCode: http.StatusForbidden,
}

var ErrTaskNotAvailable = &RequestError{
	Message:    "This task is not available to be assigned",
	Code:       "AWS.MechanicalTurk.TaskNotAvailable",
	StatusCode: http.StatusConflict,
}

var ErrWorkerBlocked = &RequestError{
	Message:    "The requester has blocked you from working on their tasks",
	Code:       "AWS.MechanicalTurk.WorkerBlocked",
	StatusCode: http.StatusForbidden,
}

var ErrAssignmentNotSubmitted = &RequestError{
	Message:    "The assignment has not been submitted yet",
	Code:       "AWS.MechanicalTurk.AssignmentNotSubmitted",
	StatusCode: http.StatusConflict,
}

var ErrAssignmentAlreadyApproved = &RequestError{
	Message:    "The assignment has already been approved",
	Code:       "AWS.MechanicalTurk.AssignmentAlreadyApproved",
	StatusCode: http.StatusConflict,
}

// ErrAssignmentAlreadyRejected fires on approval of a rejected assignment
// without the override flag.
var ErrAssignmentAlreadyRejected = &RequestError{
	Message:    "The assignment has already been rejected",
	Code:       "AWS.MechanicalTurk.AssignmentAlreadyRejected",
	StatusCode: http.StatusConflict,
}

var ErrAssignmentInvalidState = &RequestError{
	Message:    "The assignment is not in a state that allows this operation",
	Code:       "AWS.MechanicalTurk.InvalidAssignmentState",
	StatusCode: http.StatusConflict,
}

var ErrTaskNotDeletable = &RequestError{
	Message: "The task must be in the Reviewable or Reviewing state with all " +
		"assignments decided before it can be deleted",
	Code:       "AWS.MechanicalTurk.TaskNotDeletable",
	StatusCode: http.StatusConflict,
}

var ErrInvalidExpirationIncrement = &RequestError{
	Message:    "The expiration extension must be between 60 seconds and 365 days",
	Code:       "AWS.MechanicalTurk.InvalidExpirationIncrement",
	StatusCode: http.StatusBadRequest,
}

// ErrInvalidAssignmentIncrease mirrors the emulated service's rule that a
// single increase may not carry max assignments from below 10 to 10 or more.
var ErrInvalidAssignmentIncrease = &RequestError{
	Message:    "The assignment increase may not cross the 10 assignment threshold",
	Code:       "AWS.MechanicalTurk.InvalidAssignmentIncrease",
	StatusCode: http.StatusBadRequest,
}
