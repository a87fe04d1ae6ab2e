// Package http exposes the emulated requester API and the worker-side
// REST surface over echo.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/pagination"
	repository "github.com/callendorph/mturkemu/internal/repositories"
	"github.com/callendorph/mturkemu/internal/services"
)

// targetPrefix is the service name clients put in front of every
// operation in the X-Amz-Target header.
const targetPrefix = "MTurkRequesterServiceV20170117"

// workerHeader carries the acting worker's id on the worker-side API,
// standing in for the session auth the real marketplace UI has.
const workerHeader = "X-Emu-Worker-Id"

// accessKeyHeader is the shortcut auth header accepted alongside a full
// SigV4 Authorization credential. Signatures are never verified; only
// the access key is used to resolve the caller.
const accessKeyHeader = "X-Emu-Access-Key"

var errUnknownOperation = apierr.New(
	"The requested operation is not recognized",
	"AWS.MechanicalTurk.InvalidAction",
	http.StatusBadRequest,
)

var errUnauthorized = apierr.New(
	"The request credentials could not be resolved to a requester",
	"AWS.MechanicalTurk.AuthenticationFailed",
	http.StatusUnauthorized,
)

type opFunc func(c echo.Context, requester *model.Requester) error

type Handler struct {
	accounts  *services.AccountService
	quals     *services.QualService
	tasks     *services.TaskService
	taskTypes *services.TaskTypeService

	accountRepo *repository.AccountRepository

	ops map[string]opFunc
}

func NewHandler(
	accounts *services.AccountService,
	quals *services.QualService,
	tasks *services.TaskService,
	taskTypes *services.TaskTypeService,
	accountRepo *repository.AccountRepository,
) *Handler {
	h := &Handler{
		accounts:    accounts,
		quals:       quals,
		tasks:       tasks,
		taskTypes:   taskTypes,
		accountRepo: accountRepo,
	}
	h.ops = map[string]opFunc{
		"GetAccountBalance": h.getAccountBalance,

		"CreateHITType":                     h.createHITType,
		"CreateHIT":                         h.createHIT,
		"CreateHITWithHITType":              h.createHITWithHITType,
		"GetHIT":                            h.getHIT,
		"DeleteHIT":                         h.deleteHIT,
		"ListHITs":                          h.listHITs,
		"ListReviewableHITs":                h.listReviewableHITs,
		"ListHITsForQualificationType":      h.listHITsForQualificationType,
		"UpdateExpirationForHIT":            h.updateExpirationForHIT,
		"UpdateHITReviewStatus":             h.updateHITReviewStatus,
		"UpdateHITTypeOfHIT":                h.updateHITTypeOfHIT,
		"CreateAdditionalAssignmentsForHIT": h.createAdditionalAssignments,

		"GetAssignment":         h.getAssignment,
		"ListAssignmentsForHIT": h.listAssignmentsForHIT,
		"ApproveAssignment":     h.approveAssignment,
		"RejectAssignment":      h.rejectAssignment,

		"SendBonus":         h.sendBonus,
		"ListBonusPayments": h.listBonusPayments,

		"CreateQualificationType":             h.createQualificationType,
		"GetQualificationType":                h.getQualificationType,
		"UpdateQualificationType":             h.updateQualificationType,
		"DeleteQualificationType":             h.deleteQualificationType,
		"ListQualificationTypes":              h.listQualificationTypes,
		"ListQualificationRequests":           h.listQualificationRequests,
		"AcceptQualificationRequest":          h.acceptQualificationRequest,
		"RejectQualificationRequest":          h.rejectQualificationRequest,
		"AssociateQualificationWithWorker":    h.associateQualification,
		"DisassociateQualificationFromWorker": h.disassociateQualification,
		"GetQualificationScore":               h.getQualificationScore,
		"ListWorkersWithQualificationType":    h.listWorkersWithQualificationType,

		"CreateWorkerBlock": h.createWorkerBlock,
		"DeleteWorkerBlock": h.deleteWorkerBlock,
		"ListWorkerBlocks":  h.listWorkerBlocks,
	}
	return h
}

// Dispatch routes a requester API call by its X-Amz-Target header.
func (h *Handler) Dispatch(c echo.Context) error {
	op, ok := operationName(c.Request().Header.Get("X-Amz-Target"))
	if !ok {
		return writeError(c, errUnknownOperation)
	}
	fn, ok := h.ops[op]
	if !ok {
		return writeError(c, errUnknownOperation)
	}
	requester, err := h.requester(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := fn(c, requester); err != nil {
		return writeError(c, err)
	}
	return nil
}

func operationName(target string) (string, bool) {
	service, op, found := strings.Cut(target, ".")
	if !found || service != targetPrefix || op == "" {
		return "", false
	}
	return op, true
}

// requester resolves the caller from the emulator access-key header or
// a SigV4 Authorization credential scope.
func (h *Handler) requester(c echo.Context) (*model.Requester, error) {
	accessKey := c.Request().Header.Get(accessKeyHeader)
	if accessKey == "" {
		accessKey = credentialAccessKey(c.Request().Header.Get("Authorization"))
	}
	if accessKey == "" {
		return nil, errUnauthorized
	}
	requester, err := h.accountRepo.FindRequesterByAccessKey(c.Request().Context(), accessKey)
	if err != nil {
		return nil, errUnauthorized
	}
	return requester, nil
}

// credentialAccessKey extracts the access key from
// "AWS4-HMAC-SHA256 Credential=AKID/20260828/us-east-1/...".
func credentialAccessKey(authorization string) string {
	_, after, found := strings.Cut(authorization, "Credential=")
	if !found {
		return ""
	}
	cred, _, _ := strings.Cut(after, ",")
	key, _, _ := strings.Cut(cred, "/")
	return strings.TrimSpace(key)
}

// worker resolves the acting worker on the worker-side API.
func (h *Handler) worker(c echo.Context) (*model.Worker, error) {
	id := c.Request().Header.Get(workerHeader)
	if id == "" {
		return nil, apierr.New(
			"A worker id is required for this endpoint",
			"AWS.MechanicalTurk.AuthenticationFailed",
			http.StatusUnauthorized,
		)
	}
	return h.accountRepo.FindWorkerByExternalID(c.Request().Context(), id)
}

// bindJSON decodes a request body regardless of the content type
// clients send (application/x-amz-json-1.1 included). An empty body
// binds the zero value.
func bindJSON(c echo.Context, v any) error {
	err := json.NewDecoder(c.Request().Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierr.Validation("request body is not valid JSON: " + err.Error())
}

type pageRequest struct {
	MaxResults int    `json:"MaxResults"`
	NextToken  string `json:"NextToken"`
}

func (p pageRequest) window() (pagination.Params, error) {
	return pagination.Parse(p.MaxResults, p.NextToken)
}

// nextTokenFor returns the continuation token for the page after this
// one, or "" when the page came back short.
func nextTokenFor(window pagination.Params, count int) string {
	if count < window.Limit {
		return ""
	}
	return pagination.NextToken(window.Offset + count)
}
