package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "github.com/callendorph/mturkemu/internal/http/middlewares"
	"github.com/callendorph/mturkemu/internal/throttle"
)

// Register wires the requester RPC endpoint and the worker REST
// surface onto the echo instance.
func Register(e *echo.Echo, h *Handler, tokens throttle.TokenManager, rateLimitPerMinute int) {
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))
	e.Use(middleware.Throttle(tokens))

	// Requester API: every operation is a POST to the root, selected
	// by the X-Amz-Target header, the way the AWS SDKs call it.
	e.POST("/", h.Dispatch)

	e.POST("/accounts", h.CreateAccount)

	w := e.Group("/worker")
	w.GET("/hittypes", h.ListAssignableHITTypes)
	w.GET("/hittypes/:id/hits", h.ListAssignableHITs)
	w.POST("/hits/:id/accept", h.AcceptHIT)
	w.POST("/hits/:id/return", h.ReturnHIT)
	w.POST("/assignments/:id/submit", h.SubmitAssignment)
	w.GET("/qualifications", h.ListOwnQualifications)
	w.GET("/qualifications/requests", h.ListOwnQualificationRequests)
	w.POST("/qualifications/:id/request", h.RequestQualification)
	w.POST("/qualification-requests/:id/test", h.SubmitQualificationTest)
}
