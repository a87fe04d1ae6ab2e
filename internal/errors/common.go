package errors

import (
	"fmt"
	"net/http"
	"strings"
)

var ErrPermissionDenied = &RequestError{
	Message:    "You do not have permission to access this resource",
	Code:       "AWS.MechanicalTurk.PermissionDenied",
	StatusCode: http.StatusForbidden,
}

var ErrDuplicateRequest = &RequestError{
	Message:    "This request was already received with the same unique token",
	Code:       "AWS.MechanicalTurk.DuplicateRequest",
	StatusCode: http.StatusConflict,
}

var ErrInsufficientFunds = &RequestError{
	Message:    "Your account balance is too low to complete this payment",
	Code:       "AWS.MechanicalTurk.InsufficientFunds",
	StatusCode: http.StatusPaymentRequired,
}

// DoesNotExist is returned on any id lookup miss, including lookups of
// fully disposed entities.
func DoesNotExist(entity string) *RequestError {
	return &RequestError{
		Message:    fmt.Sprintf("%s does not exist", entity),
		Code:       "AWS.MechanicalTurk.DoesNotExist",
		StatusCode: http.StatusNotFound,
	}
}

// Validation aggregates one or more caller-input problems.
func Validation(messages ...string) *RequestError {
	return &RequestError{
		Message:    strings.Join(messages, "; "),
		Code:       "AWS.MechanicalTurk.ValidationError",
		StatusCode: http.StatusBadRequest,
	}
}

func MissingArgument(name string) *RequestError {
	return &RequestError{
		Message:    fmt.Sprintf("Required argument %s is missing", name),
		Code:       "AWS.MechanicalTurk.MissingArgument",
		StatusCode: http.StatusBadRequest,
	}
}

// ContentTooLarge covers oversized question, test and answer-key blobs.
func ContentTooLarge(kind string) *RequestError {
	return &RequestError{
		Message:    fmt.Sprintf("%s content exceeds the maximum allowed size", kind),
		Code:       "AWS.MechanicalTurk.ContentTooLarge",
		StatusCode: http.StatusBadRequest,
	}
}

// InvalidContent covers blobs that fail schema classification.
func InvalidContent(detail string) *RequestError {
	return &RequestError{
		Message:    fmt.Sprintf("Content is not a recognized document type: %s", detail),
		Code:       "AWS.MechanicalTurk.InvalidContent",
		StatusCode: http.StatusBadRequest,
	}
}
