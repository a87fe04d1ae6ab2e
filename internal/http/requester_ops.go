package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	"github.com/callendorph/mturkemu/internal/http/validators"
	model "github.com/callendorph/mturkemu/internal/models"
	repository "github.com/callendorph/mturkemu/internal/repositories"
	"github.com/callendorph/mturkemu/internal/services"
)

func (h *Handler) getAccountBalance(c echo.Context, requester *model.Requester) error {
	balance := h.accounts.Balance(c.Request().Context(), requester)
	return c.JSON(http.StatusOK, echo.Map{
		"AvailableBalance": balance.StringFixed(2),
	})
}

type qualificationRequirementRequest struct {
	QualificationTypeID string      `json:"QualificationTypeId"`
	Comparator          string      `json:"Comparator"`
	IntegerValues       []int       `json:"IntegerValues"`
	LocaleValues        []LocaleDTO `json:"LocaleValues"`
	RequiredToPreview   bool        `json:"RequiredToPreview"`
}

type createHITTypeRequest struct {
	AutoApprovalDelayInSeconds  int64                             `json:"AutoApprovalDelayInSeconds"`
	AssignmentDurationInSeconds int64                             `json:"AssignmentDurationInSeconds"`
	Reward                      string                            `json:"Reward"`
	Title                       string                            `json:"Title"`
	Keywords                    string                            `json:"Keywords"`
	Description                 string                            `json:"Description"`
	QualificationRequirements   []qualificationRequirementRequest `json:"QualificationRequirements"`
}

func (r *createHITTypeRequest) taskTypeParams() (services.TaskTypeParams, error) {
	if err := validators.ValidateCreateHITType(r.Title, r.Description, r.Reward, r.AssignmentDurationInSeconds); err != nil {
		return services.TaskTypeParams{}, err
	}
	reward, err := decimal.NewFromString(r.Reward)
	if err != nil {
		return services.TaskTypeParams{}, apierr.Validation("Reward is not a valid decimal amount")
	}
	p := services.TaskTypeParams{
		AssignmentDurationSec: r.AssignmentDurationInSeconds,
		AutoApproveDelaySec:   r.AutoApprovalDelayInSeconds,
		Reward:                reward,
		Title:                 r.Title,
		Description:           r.Description,
		Keywords:              r.Keywords,
	}
	for _, req := range r.QualificationRequirements {
		rp := services.RequirementParams{
			QualificationExtID: req.QualificationTypeID,
			Comparator:         req.Comparator,
			IntValues:          req.IntegerValues,
			RequiredToPreview:  req.RequiredToPreview,
		}
		for _, l := range req.LocaleValues {
			rp.Locales = append(rp.Locales, model.Locale{
				Country: l.Country, Subdivision: l.Subdivision,
			})
		}
		p.Requirements = append(p.Requirements, rp)
	}
	return p, nil
}

func (h *Handler) createHITType(c echo.Context, requester *model.Requester) error {
	var req createHITTypeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	params, err := req.taskTypeParams()
	if err != nil {
		return err
	}
	tt, _, err := h.taskTypes.FindOrCreate(c.Request().Context(), requester, params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"HITTypeId": tt.ExternalID})
}

type createHITRequest struct {
	createHITTypeRequest
	MaxAssignments      int    `json:"MaxAssignments"`
	LifetimeInSeconds   int64  `json:"LifetimeInSeconds"`
	Question            string `json:"Question"`
	RequesterAnnotation string `json:"RequesterAnnotation"`
	UniqueRequestToken  string `json:"UniqueRequestToken"`
}

func (h *Handler) createHIT(c echo.Context, requester *model.Requester) error {
	var req createHITRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	params, err := req.taskTypeParams()
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	tt, _, err := h.taskTypes.FindOrCreate(ctx, requester, params)
	if err != nil {
		return err
	}
	task, err := h.tasks.CreateTask(ctx, requester, tt, services.CreateTaskParams{
		LifetimeSec:    req.LifetimeInSeconds,
		MaxAssignments: req.MaxAssignments,
		Question:       req.Question,
		Annotation:     req.RequesterAnnotation,
		UniqueToken:    req.UniqueRequestToken,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"HIT": newHIT(task, model.AssignmentStats{Available: task.MaxAssignments}),
	})
}

type createHITWithHITTypeRequest struct {
	HITTypeID           string `json:"HITTypeId"`
	MaxAssignments      int    `json:"MaxAssignments"`
	LifetimeInSeconds   int64  `json:"LifetimeInSeconds"`
	Question            string `json:"Question"`
	RequesterAnnotation string `json:"RequesterAnnotation"`
	UniqueRequestToken  string `json:"UniqueRequestToken"`
}

func (h *Handler) createHITWithHITType(c echo.Context, requester *model.Requester) error {
	var req createHITWithHITTypeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.HITTypeID == "" {
		return apierr.MissingArgument("HITTypeId")
	}
	ctx := c.Request().Context()
	tt, err := h.taskTypes.Get(ctx, requester, req.HITTypeID)
	if err != nil {
		return err
	}
	task, err := h.tasks.CreateTask(ctx, requester, tt, services.CreateTaskParams{
		LifetimeSec:    req.LifetimeInSeconds,
		MaxAssignments: req.MaxAssignments,
		Question:       req.Question,
		Annotation:     req.RequesterAnnotation,
		UniqueToken:    req.UniqueRequestToken,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"HIT": newHIT(task, model.AssignmentStats{Available: task.MaxAssignments}),
	})
}

type hitIDRequest struct {
	HITID string `json:"HITId"`
}

func (h *Handler) getHIT(c echo.Context, requester *model.Requester) error {
	var req hitIDRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	task, stats, err := h.tasks.GetTask(c.Request().Context(), req.HITID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"HIT": newHIT(task, stats)})
}

func (h *Handler) deleteHIT(c echo.Context, requester *model.Requester) error {
	var req hitIDRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.tasks.DeleteTask(c.Request().Context(), requester, req.HITID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// serializeHITs renders a task page with per-task derived counts.
func (h *Handler) serializeHITs(c echo.Context, tasks []model.Task) ([]HITDTO, error) {
	ctx := c.Request().Context()
	out := make([]HITDTO, 0, len(tasks))
	for i := range tasks {
		stats, err := h.tasks.AssignmentStats(ctx, &tasks[i])
		if err != nil {
			return nil, err
		}
		out = append(out, newHIT(&tasks[i], stats))
	}
	return out, nil
}

type listHITsRequest struct {
	pageRequest
}

func (h *Handler) listHITs(c echo.Context, requester *model.Requester) error {
	var req listHITsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListTasks(c.Request().Context(), requester, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	hits, err := h.serializeHITs(c, tasks)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults": len(hits),
		"NextToken":  nextTokenFor(window, len(hits)),
		"HITs":       hits,
	})
}

type listReviewableHITsRequest struct {
	pageRequest
	HITTypeID string `json:"HITTypeId"`
	Status    string `json:"Status"`
}

func (h *Handler) listReviewableHITs(c echo.Context, requester *model.Requester) error {
	var req listReviewableHITsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	status := model.TaskStatus(req.Status)
	if req.Status == "" {
		status = model.TaskReviewable
	}
	tasks, err := h.tasks.ListReviewableTasks(c.Request().Context(), requester,
		req.HITTypeID, status, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	hits, err := h.serializeHITs(c, tasks)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults": len(hits),
		"NextToken":  nextTokenFor(window, len(hits)),
		"HITs":       hits,
	})
}

type listHITsForQualRequest struct {
	pageRequest
	QualificationTypeID string `json:"QualificationTypeId"`
}

func (h *Handler) listHITsForQualificationType(c echo.Context, requester *model.Requester) error {
	var req listHITsForQualRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.QualificationTypeID == "" {
		return apierr.MissingArgument("QualificationTypeId")
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListTasksForQualification(c.Request().Context(),
		req.QualificationTypeID, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	hits, err := h.serializeHITs(c, tasks)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults": len(hits),
		"NextToken":  nextTokenFor(window, len(hits)),
		"HITs":       hits,
	})
}

type updateExpirationRequest struct {
	HITID    string     `json:"HITId"`
	ExpireAt *time.Time `json:"ExpireAt"`
}

func (h *Handler) updateExpirationForHIT(c echo.Context, requester *model.Requester) error {
	var req updateExpirationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.ExpireAt == nil {
		return apierr.MissingArgument("ExpireAt")
	}
	err := h.tasks.UpdateExpiration(c.Request().Context(), requester, req.HITID, *req.ExpireAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type updateReviewStatusRequest struct {
	HITID  string `json:"HITId"`
	Revert bool   `json:"Revert"`
}

func (h *Handler) updateHITReviewStatus(c echo.Context, requester *model.Requester) error {
	var req updateReviewStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.tasks.UpdateReviewStatus(c.Request().Context(), requester, req.HITID, req.Revert)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type updateHITTypeRequest struct {
	HITID     string `json:"HITId"`
	HITTypeID string `json:"HITTypeId"`
}

func (h *Handler) updateHITTypeOfHIT(c echo.Context, requester *model.Requester) error {
	var req updateHITTypeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.tasks.UpdateTaskType(c.Request().Context(), requester, req.HITID, req.HITTypeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type createAdditionalAssignmentsRequest struct {
	HITID                         string `json:"HITId"`
	NumberOfAdditionalAssignments int    `json:"NumberOfAdditionalAssignments"`
	UniqueRequestToken            string `json:"UniqueRequestToken"`
}

func (h *Handler) createAdditionalAssignments(c echo.Context, requester *model.Requester) error {
	var req createAdditionalAssignmentsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.tasks.CreateAdditionalAssignments(c.Request().Context(), requester,
		req.HITID, req.NumberOfAdditionalAssignments, req.UniqueRequestToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type assignmentIDRequest struct {
	AssignmentID string `json:"AssignmentId"`
}

func (h *Handler) getAssignment(c echo.Context, requester *model.Requester) error {
	var req assignmentIDRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	assignment, err := h.tasks.GetAssignment(ctx, requester, req.AssignmentID)
	if err != nil {
		return err
	}
	stats, err := h.tasks.AssignmentStats(ctx, &assignment.Task)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"Assignment": newAssignment(assignment, assignment.Task.ExternalID, assignment.Worker.ExternalID),
		"HIT":        newHIT(&assignment.Task, stats),
	})
}

type listAssignmentsRequest struct {
	pageRequest
	HITID              string   `json:"HITId"`
	AssignmentStatuses []string `json:"AssignmentStatuses"`
}

func (h *Handler) listAssignmentsForHIT(c echo.Context, requester *model.Requester) error {
	var req listAssignmentsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	statuses := make([]model.AssignmentStatus, 0, len(req.AssignmentStatuses))
	for _, s := range req.AssignmentStatuses {
		statuses = append(statuses, model.AssignmentStatus(s))
	}
	assignments, err := h.tasks.ListAssignmentsForTask(c.Request().Context(),
		requester, req.HITID, statuses, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	out := make([]AssignmentDTO, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		out = append(out, newAssignment(a, req.HITID, a.Worker.ExternalID))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":  len(out),
		"NextToken":   nextTokenFor(window, len(out)),
		"Assignments": out,
	})
}

type approveAssignmentRequest struct {
	AssignmentID      string `json:"AssignmentId"`
	RequesterFeedback string `json:"RequesterFeedback"`
	OverrideRejection bool   `json:"OverrideRejection"`
}

func (h *Handler) approveAssignment(c echo.Context, requester *model.Requester) error {
	var req approveAssignmentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.tasks.ApproveAssignment(c.Request().Context(), requester,
		req.AssignmentID, req.RequesterFeedback, req.OverrideRejection)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type rejectAssignmentRequest struct {
	AssignmentID      string `json:"AssignmentId"`
	RequesterFeedback string `json:"RequesterFeedback"`
}

func (h *Handler) rejectAssignment(c echo.Context, requester *model.Requester) error {
	var req rejectAssignmentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.tasks.RejectAssignment(c.Request().Context(), requester,
		req.AssignmentID, req.RequesterFeedback)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type sendBonusRequest struct {
	WorkerID           string `json:"WorkerId"`
	BonusAmount        string `json:"BonusAmount"`
	AssignmentID       string `json:"AssignmentId"`
	Reason             string `json:"Reason"`
	UniqueRequestToken string `json:"UniqueRequestToken"`
}

func (h *Handler) sendBonus(c echo.Context, requester *model.Requester) error {
	var req sendBonusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.BonusAmount)
	if err != nil {
		return apierr.Validation("BonusAmount is not a valid decimal amount")
	}
	_, err = h.accounts.SendBonus(c.Request().Context(), requester,
		req.WorkerID, req.AssignmentID, amount, req.Reason, req.UniqueRequestToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type listBonusPaymentsRequest struct {
	pageRequest
	HITID        string `json:"HITId"`
	AssignmentID string `json:"AssignmentId"`
}

func (h *Handler) listBonusPayments(c echo.Context, requester *model.Requester) error {
	var req listBonusPaymentsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	bonuses, err := h.accounts.ListBonusPayments(c.Request().Context(), requester,
		req.HITID, req.AssignmentID, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	out := make([]BonusPaymentDTO, 0, len(bonuses))
	for i := range bonuses {
		b := &bonuses[i]
		out = append(out, newBonusPayment(b, b.Worker.ExternalID, b.Assignment.ExternalID))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":    len(out),
		"NextToken":     nextTokenFor(window, len(out)),
		"BonusPayments": out,
	})
}

type createQualificationTypeRequest struct {
	Name                    string `json:"Name"`
	Keywords                string `json:"Keywords"`
	Description             string `json:"Description"`
	QualificationTypeStatus string `json:"QualificationTypeStatus"`
	RetryDelayInSeconds     *int64 `json:"RetryDelayInSeconds"`
	Test                    string `json:"Test"`
	AnswerKey               string `json:"AnswerKey"`
	TestDurationInSeconds   *int64 `json:"TestDurationInSeconds"`
	AutoGranted             bool   `json:"AutoGranted"`
	AutoGrantedValue        *int   `json:"AutoGrantedValue"`
}

func (h *Handler) createQualificationType(c echo.Context, requester *model.Requester) error {
	var req createQualificationTypeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	qual, err := h.quals.CreateQualificationType(c.Request().Context(), requester,
		services.CreateQualTypeParams{
			Name:            req.Name,
			Description:     req.Description,
			Keywords:        req.Keywords,
			Status:          req.QualificationTypeStatus,
			RetryDelaySec:   req.RetryDelayInSeconds,
			Test:            req.Test,
			AnswerKey:       req.AnswerKey,
			TestDurationSec: req.TestDurationInSeconds,
			AutoGranted:     req.AutoGranted,
			AutoGrantValue:  req.AutoGrantedValue,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"QualificationType": newQualificationType(qual, true),
	})
}

type qualTypeIDRequest struct {
	QualificationTypeID string `json:"QualificationTypeId"`
}

func (h *Handler) getQualificationType(c echo.Context, requester *model.Requester) error {
	var req qualTypeIDRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	qual, err := h.quals.GetQualificationType(c.Request().Context(), req.QualificationTypeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"QualificationType": newQualificationType(qual, qual.RequesterID == requester.ID),
	})
}

type updateQualificationTypeRequest struct {
	QualificationTypeID     string  `json:"QualificationTypeId"`
	Description             *string `json:"Description"`
	QualificationTypeStatus *string `json:"QualificationTypeStatus"`
	Test                    *string `json:"Test"`
	AnswerKey               *string `json:"AnswerKey"`
	TestDurationInSeconds   *int64  `json:"TestDurationInSeconds"`
	RetryDelayInSeconds     *int64  `json:"RetryDelayInSeconds"`
	AutoGranted             *bool   `json:"AutoGranted"`
	AutoGrantedValue        *int    `json:"AutoGrantedValue"`
}

func (h *Handler) updateQualificationType(c echo.Context, requester *model.Requester) error {
	var req updateQualificationTypeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	qual, err := h.quals.UpdateQualificationType(c.Request().Context(), requester,
		req.QualificationTypeID, services.UpdateQualTypeParams{
			Description:     req.Description,
			Status:          req.QualificationTypeStatus,
			Test:            req.Test,
			AnswerKey:       req.AnswerKey,
			TestDurationSec: req.TestDurationInSeconds,
			RetryDelaySec:   req.RetryDelayInSeconds,
			AutoGranted:     req.AutoGranted,
			AutoGrantValue:  req.AutoGrantedValue,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"QualificationType": newQualificationType(qual, true),
	})
}

func (h *Handler) deleteQualificationType(c echo.Context, requester *model.Requester) error {
	var req qualTypeIDRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.quals.DeleteQualificationType(c.Request().Context(), requester, req.QualificationTypeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type listQualificationTypesRequest struct {
	pageRequest
	Query               string `json:"Query"`
	MustBeRequestable   bool   `json:"MustBeRequestable"`
	MustBeOwnedByCaller bool   `json:"MustBeOwnedByCaller"`
}

func (h *Handler) listQualificationTypes(c echo.Context, requester *model.Requester) error {
	var req listQualificationTypesRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	filter := repository.QualTypeFilter{
		MustBeRequestable: req.MustBeRequestable,
		Query:             req.Query,
	}
	if req.MustBeOwnedByCaller {
		filter.OwnedBy = requester.ID
	}
	quals, err := h.quals.ListQualificationTypes(c.Request().Context(), filter,
		window.Offset, window.Limit)
	if err != nil {
		return err
	}
	out := make([]QualificationTypeDTO, 0, len(quals))
	for i := range quals {
		q := &quals[i]
		out = append(out, newQualificationType(q, q.RequesterID == requester.ID))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":         len(out),
		"NextToken":          nextTokenFor(window, len(out)),
		"QualificationTypes": out,
	})
}

type listQualificationRequestsRequest struct {
	pageRequest
	QualificationTypeID string `json:"QualificationTypeId"`
}

func (h *Handler) listQualificationRequests(c echo.Context, requester *model.Requester) error {
	var req listQualificationRequestsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	requests, err := h.quals.ListQualificationRequests(c.Request().Context(), requester,
		req.QualificationTypeID, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	out := make([]QualificationRequestDTO, 0, len(requests))
	for i := range requests {
		r := &requests[i]
		out = append(out, newQualificationRequest(r,
			r.Qualification.ExternalID, r.Worker.ExternalID, r.Qualification.Test))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":            len(out),
		"NextToken":             nextTokenFor(window, len(out)),
		"QualificationRequests": out,
	})
}

type acceptQualificationRequestRequest struct {
	QualificationRequestID string `json:"QualificationRequestId"`
	IntegerValue           *int   `json:"IntegerValue"`
}

func (h *Handler) acceptQualificationRequest(c echo.Context, requester *model.Requester) error {
	var req acceptQualificationRequestRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	_, err := h.quals.AcceptQualificationRequest(c.Request().Context(), requester,
		req.QualificationRequestID, req.IntegerValue)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type rejectQualificationRequestRequest struct {
	QualificationRequestID string `json:"QualificationRequestId"`
	Reason                 string `json:"Reason"`
}

func (h *Handler) rejectQualificationRequest(c echo.Context, requester *model.Requester) error {
	var req rejectQualificationRequestRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.quals.RejectQualificationRequest(c.Request().Context(), requester,
		req.QualificationRequestID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type associateQualificationRequest struct {
	QualificationTypeID string `json:"QualificationTypeId"`
	WorkerID            string `json:"WorkerId"`
	IntegerValue        *int   `json:"IntegerValue"`
}

func (h *Handler) associateQualification(c echo.Context, requester *model.Requester) error {
	var req associateQualificationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	value := 1
	if req.IntegerValue != nil {
		value = *req.IntegerValue
	}
	_, err := h.quals.AssociateQualification(c.Request().Context(), requester,
		req.QualificationTypeID, req.WorkerID, value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type disassociateQualificationRequest struct {
	WorkerID            string `json:"WorkerId"`
	QualificationTypeID string `json:"QualificationTypeId"`
	Reason              string `json:"Reason"`
}

func (h *Handler) disassociateQualification(c echo.Context, requester *model.Requester) error {
	var req disassociateQualificationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.quals.DisassociateQualification(c.Request().Context(), requester,
		req.QualificationTypeID, req.WorkerID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type getQualificationScoreRequest struct {
	QualificationTypeID string `json:"QualificationTypeId"`
	WorkerID            string `json:"WorkerId"`
}

func (h *Handler) getQualificationScore(c echo.Context, requester *model.Requester) error {
	var req getQualificationScoreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	grant, qual, err := h.quals.GetQualificationScore(c.Request().Context(), requester,
		req.QualificationTypeID, req.WorkerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"Qualification": newQualification(grant, qual.ExternalID, req.WorkerID),
	})
}

type listWorkersWithQualRequest struct {
	pageRequest
	QualificationTypeID string `json:"QualificationTypeId"`
	Status              string `json:"Status"`
}

func (h *Handler) listWorkersWithQualificationType(c echo.Context, requester *model.Requester) error {
	var req listWorkersWithQualRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	grants, err := h.quals.ListWorkersWithQualification(c.Request().Context(), requester,
		req.QualificationTypeID, req.Status, window.Offset, window.Limit)
	if err != nil {
		return err
	}
	out := make([]QualificationDTO, 0, len(grants))
	for i := range grants {
		g := &grants[i]
		out = append(out, newQualification(g, g.Qualification.ExternalID, g.Worker.ExternalID))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":     len(out),
		"NextToken":      nextTokenFor(window, len(out)),
		"Qualifications": out,
	})
}

type workerBlockRequest struct {
	WorkerID string `json:"WorkerId"`
	Reason   string `json:"Reason"`
}

func (h *Handler) createWorkerBlock(c echo.Context, requester *model.Requester) error {
	var req workerBlockRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.WorkerID == "" {
		return apierr.MissingArgument("WorkerId")
	}
	if req.Reason == "" {
		return apierr.MissingArgument("Reason")
	}
	err := h.accounts.BlockWorker(c.Request().Context(), requester, req.WorkerID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

func (h *Handler) deleteWorkerBlock(c echo.Context, requester *model.Requester) error {
	var req workerBlockRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.WorkerID == "" {
		return apierr.MissingArgument("WorkerId")
	}
	err := h.accounts.UnblockWorker(c.Request().Context(), requester, req.WorkerID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

type listWorkerBlocksRequest struct {
	pageRequest
}

func (h *Handler) listWorkerBlocks(c echo.Context, requester *model.Requester) error {
	var req listWorkerBlocksRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	window, err := req.window()
	if err != nil {
		return err
	}
	blocks, err := h.accounts.ListWorkerBlocks(c.Request().Context(), requester,
		window.Offset, window.Limit)
	if err != nil {
		return err
	}
	out := make([]WorkerBlockDTO, 0, len(blocks))
	for i := range blocks {
		out = append(out, WorkerBlockDTO{
			WorkerID: blocks[i].Worker.ExternalID,
			Reason:   blocks[i].Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"NumResults":   len(out),
		"NextToken":    nextTokenFor(window, len(out)),
		"WorkerBlocks": out,
	})
}
