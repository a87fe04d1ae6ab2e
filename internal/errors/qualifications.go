package errors

import (
	"fmt"
	"net/http"
	"time"
)

var ErrQualNotRequestable = &RequestError{
	Message:    "This qualification type cannot be requested by workers",
	Code:       "AWS.MechanicalTurk.QualificationNotRequestable",
	StatusCode: http.StatusBadRequest,
}

var ErrQualNotActive = &RequestError{
	Message:    "This qualification type is not active",
	Code:       "AWS.MechanicalTurk.QualificationNotActive",
	StatusCode: http.StatusBadRequest,
}

var ErrQualTypeAlreadyExists = &RequestError{
	Message:    "You already own a qualification type with this name",
	Code:       "AWS.MechanicalTurk.QualificationTypeAlreadyExists",
	StatusCode: http.StatusConflict,
}

var ErrHasActiveGrant = &RequestError{
	Message:    "You already have an active grant for this qualification",
	Code:       "AWS.MechanicalTurk.QualificationAlreadyGranted",
	StatusCode: http.StatusConflict,
}

var ErrHasActiveRequest = &RequestError{
	Message:    "You already have an active request for this qualification",
	Code:       "AWS.MechanicalTurk.QualificationRequestExists",
	StatusCode: http.StatusConflict,
}

// ErrPermanentGrantBlock fires when a revoked grant exists and the
// qualification does not allow retries.
var ErrPermanentGrantBlock = &RequestError{
	Message: "Your grant for this qualification has been revoked and this " +
		"qualification does not allow repeated requests",
	Code:       "AWS.MechanicalTurk.QualificationPermanentlyBlocked",
	StatusCode: http.StatusForbidden,
}

// ErrPermanentDenial fires when a rejected request exists and the
// qualification does not allow retries.
var ErrPermanentDenial = &RequestError{
	Message: "You have already requested this qualification and been denied, " +
		"and it does not allow repeated requests",
	Code:       "AWS.MechanicalTurk.QualificationPermanentlyDenied",
	StatusCode: http.StatusForbidden,
}

// TemporaryDenial fires inside the retry window of a rejected request.
func TemporaryDenial(nextRequestTime time.Time) *RequestError {
	return &RequestError{
		Message: fmt.Sprintf(
			"You have already requested this qualification and been denied. "+
				"You may request it again after %s",
			nextRequestTime.UTC().Format(time.RFC3339),
		),
		Code:       "AWS.MechanicalTurk.QualificationTemporarilyDenied",
		StatusCode: http.StatusConflict,
	}
}

// ErrQualRequestInvalidState covers accept/reject/test-submit attempts on
// a request that is not in the state the operation requires.
var ErrQualRequestInvalidState = &RequestError{
	Message:    "The qualification request is not in a state that allows this operation",
	Code:       "AWS.MechanicalTurk.InvalidQualificationRequestState",
	StatusCode: http.StatusConflict,
}

var ErrQualHasNoTest = &RequestError{
	Message:    "This qualification type does not have a test to complete",
	Code:       "AWS.MechanicalTurk.QualificationHasNoTest",
	StatusCode: http.StatusBadRequest,
}

// ErrInvalidRequirement fires when a requirement is evaluated with a
// comparator that needs configured values but has none.
var ErrInvalidRequirement = &RequestError{
	Message:    "The qualification requirement has no configured values for its comparator",
	Code:       "AWS.MechanicalTurk.InvalidQualificationRequirement",
	StatusCode: http.StatusBadRequest,
}

// MissingAnswer fires while scoring a test whose submission lacks a value
// for a scored question.
func MissingAnswer(questionID string) *RequestError {
	return &RequestError{
		Message:    fmt.Sprintf("Missing answer for question %s", questionID),
		Code:       "AWS.MechanicalTurk.MissingAnswer",
		StatusCode: http.StatusBadRequest,
	}
}
