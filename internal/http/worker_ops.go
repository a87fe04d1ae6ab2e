package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/pagination"
	"github.com/callendorph/mturkemu/internal/questions"
)

// HITTypeDTO is the worker browse view of a task type.
type HITTypeDTO struct {
	HITTypeID                   string                        `json:"HITTypeId"`
	Title                       string                        `json:"Title"`
	Description                 string                        `json:"Description"`
	Keywords                    string                        `json:"Keywords"`
	Reward                      string                        `json:"Reward"`
	AssignmentDurationInSeconds int64                         `json:"AssignmentDurationInSeconds"`
	AutoApprovalDelayInSeconds  int64                         `json:"AutoApprovalDelayInSeconds"`
	QualificationRequirements   []QualificationRequirementDTO `json:"QualificationRequirements,omitempty"`
}

func newHITType(tt *model.TaskType) HITTypeDTO {
	dto := HITTypeDTO{
		HITTypeID:                   tt.ExternalID,
		Title:                       tt.Title,
		Description:                 tt.Description,
		Keywords:                    joinKeywords(tt.Keywords),
		Reward:                      tt.Reward.StringFixed(2),
		AssignmentDurationInSeconds: tt.AssignmentDurationSec,
		AutoApprovalDelayInSeconds:  tt.AutoApproveDelaySec,
	}
	for i := range tt.Requirements {
		dto.QualificationRequirements = append(dto.QualificationRequirements,
			newRequirement(&tt.Requirements[i]))
	}
	return dto
}

// pageFromQuery reads MaxResults/NextToken from the query string on the
// worker-side GET endpoints.
func pageFromQuery(c echo.Context) (pagination.Params, error) {
	maxResults := 0
	if raw := c.QueryParam("MaxResults"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Params{}, apierr.Validation("MaxResults must be an integer")
		}
		maxResults = n
	}
	return pagination.Parse(maxResults, c.QueryParam("NextToken"))
}

type createAccountRequest struct {
	Username       string `json:"Username"`
	Email          string `json:"Email"`
	Name           string `json:"Name"`
	InitialBalance string `json:"InitialBalance"`
}

// CreateAccount provisions a linked worker/requester pair with API
// credentials. This endpoint has no real-marketplace equivalent; tests
// and sandboxes need a way to mint identities.
func (h *Handler) CreateAccount(c echo.Context) error {
	var req createAccountRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	balance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		balance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			return writeError(c, apierr.Validation("InitialBalance is not a valid decimal amount"))
		}
	}
	worker, requester, credential, err := h.accounts.CreateAccount(
		c.Request().Context(), req.Username, req.Email, req.Name, balance)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"WorkerId":    worker.ExternalID,
		"RequesterId": requester.ExternalID,
		"AccessKey":   credential.AccessKey,
		"SecretKey":   credential.SecretKey,
	})
}

// ListAssignableHITTypes lists task types that currently have at least
// one open task a worker could accept.
func (h *Handler) ListAssignableHITTypes(c echo.Context) error {
	if _, err := h.worker(c); err != nil {
		return writeError(c, err)
	}
	window, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	types, err := h.tasks.ListAssignableTaskTypes(c.Request().Context(),
		window.Offset, window.Limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]HITTypeDTO, 0, len(types))
	for i := range types {
		out = append(out, newHITType(&types[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults": len(out),
		"NextToken":  nextTokenFor(window, len(out)),
		"HITTypes":   out,
	})
}

// ListAssignableHITs lists the open tasks of one task type.
func (h *Handler) ListAssignableHITs(c echo.Context) error {
	if _, err := h.worker(c); err != nil {
		return writeError(c, err)
	}
	window, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	tasks, err := h.tasks.ListAssignableTasksOfType(c.Request().Context(),
		c.Param("id"), window.Offset, window.Limit)
	if err != nil {
		return writeError(c, err)
	}
	hits, err := h.serializeHITs(c, tasks)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults": len(hits),
		"NextToken":  nextTokenFor(window, len(hits)),
		"HITs":       hits,
	})
}

// AcceptHIT creates an accepted assignment on the task for the caller.
func (h *Handler) AcceptHIT(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	assignment, err := h.tasks.AcceptAssignment(c.Request().Context(), worker, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"Assignment": newAssignment(assignment, c.Param("id"), worker.ExternalID),
	})
}

// ReturnHIT gives the caller's accepted assignment back, freeing the
// slot for another worker.
func (h *Handler) ReturnHIT(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.tasks.ReturnAssignment(c.Request().Context(), worker, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type submitAnswersRequest struct {
	Answers questions.Submission `json:"Answers"`
}

// SubmitAssignment turns the caller's accepted assignment in with its
// answer payload.
func (h *Handler) SubmitAssignment(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	var req submitAnswersRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, err)
	}
	assignment, err := h.tasks.SubmitAssignment(c.Request().Context(),
		worker, c.Param("id"), req.Answers)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"Assignment": newAssignment(assignment, assignment.Task.ExternalID, worker.ExternalID),
	})
}

// RequestQualification files a qualification request for the caller.
// Auto-granted types come back with the grant already attached.
func (h *Handler) RequestQualification(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	req, grant, err := h.quals.RequestQualification(c.Request().Context(), worker, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	resp := echo.Map{
		"QualificationRequest": newQualificationRequest(req,
			c.Param("id"), worker.ExternalID, req.Qualification.Test),
	}
	if grant != nil {
		resp["Qualification"] = newQualification(grant, c.Param("id"), worker.ExternalID)
	}
	return c.JSON(http.StatusOK, resp)
}

// SubmitQualificationTest grades the caller's answers to a pending
// qualification test.
func (h *Handler) SubmitQualificationTest(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	var body submitAnswersRequest
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	req, grant, err := h.quals.SubmitTestAnswers(c.Request().Context(),
		worker, c.Param("id"), body.Answers)
	if err != nil {
		return writeError(c, err)
	}
	resp := echo.Map{
		"QualificationRequest": newQualificationRequest(req,
			req.Qualification.ExternalID, worker.ExternalID, ""),
	}
	if grant != nil {
		resp["Qualification"] = newQualification(grant,
			req.Qualification.ExternalID, worker.ExternalID)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListOwnQualifications lists the caller's grants, revoked included.
func (h *Handler) ListOwnQualifications(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	window, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	grants, err := h.quals.ListWorkerGrants(c.Request().Context(), worker,
		window.Offset, window.Limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]QualificationDTO, 0, len(grants))
	for i := range grants {
		g := &grants[i]
		out = append(out, newQualification(g, g.Qualification.ExternalID, worker.ExternalID))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":     len(out),
		"NextToken":      nextTokenFor(window, len(out)),
		"Qualifications": out,
	})
}

// ListOwnQualificationRequests lists the caller's qualification
// requests in every state.
func (h *Handler) ListOwnQualificationRequests(c echo.Context) error {
	worker, err := h.worker(c)
	if err != nil {
		return writeError(c, err)
	}
	window, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	requests, err := h.quals.ListWorkerRequests(c.Request().Context(), worker,
		window.Offset, window.Limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]QualificationRequestDTO, 0, len(requests))
	for i := range requests {
		r := &requests[i]
		out = append(out, newQualificationRequest(r,
			r.Qualification.ExternalID, worker.ExternalID, r.Qualification.Test))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":            len(out),
		"NextToken":             nextTokenFor(window, len(out)),
		"QualificationRequests": out,
	})
}
