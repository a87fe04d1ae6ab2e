package http

import (
	"github.com/labstack/echo/v4"

	apierr "github.com/callendorph/mturkemu/internal/errors"
)

const (
	errTypeRequest = "com.amazonaws.mturk.requester.v20170117#RequestError"
	errTypeService = "com.amazonaws.mturk.requester.v20170117#ServiceFault"
)

type errorEnvelope struct {
	Type          string `json:"__type"`
	Message       string `json:"Message"`
	TurkErrorCode string `json:"TurkErrorCode"`
}

// writeError renders any error as the service's error envelope. Errors
// outside the failure taxonomy fall through as a generic service fault.
func writeError(c echo.Context, err error) error {
	status := apierr.StatusCode(err)
	typ := errTypeRequest
	if status >= 500 {
		typ = errTypeService
	}
	return c.JSON(status, errorEnvelope{
		Type:          typ,
		Message:       err.Error(),
		TurkErrorCode: apierr.Code(err),
	})
}
