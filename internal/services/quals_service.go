package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/questions"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

// QualService runs the qualification lifecycle: type management, the
// per-(worker, qualification) request/grant state machine, test scoring,
// and the deferred disposal cascade. Every mutating operation executes
// inside one transaction so reads-then-writes on a pair are not lost to
// a concurrent caller.
type QualService struct {
	db        *gorm.DB
	quals     *repository.QualRepository
	tasks     *repository.TaskRepository
	accounts  *repository.AccountRepository
	validator *questions.Validator
	now       Clock
}

func NewQualService(
	db *gorm.DB,
	quals *repository.QualRepository,
	tasks *repository.TaskRepository,
	accounts *repository.AccountRepository,
	validator *questions.Validator,
	now Clock,
) *QualService {
	return &QualService{
		db:        db,
		quals:     quals,
		tasks:     tasks,
		accounts:  accounts,
		validator: validator,
		now:       now,
	}
}

type CreateQualTypeParams struct {
	Name            string
	Description     string
	Keywords        string
	Status          string
	Requestable     *bool
	RetryDelaySec   *int64
	Test            string
	AnswerKey       string
	TestDurationSec *int64
	AutoGranted     bool
	AutoGrantValue  *int
}

func (s *QualService) CreateQualificationType(
	ctx context.Context,
	requester *model.Requester,
	p CreateQualTypeParams,
) (*model.Qualification, error) {
	if p.Name == "" {
		return nil, apierr.MissingArgument("Name")
	}
	if p.Description == "" {
		return nil, apierr.MissingArgument("Description")
	}
	status, err := parseQualStatus(p.Status)
	if err != nil {
		return nil, err
	}
	if err := s.checkTestConfig(p.Test, p.AnswerKey, p.TestDurationSec, p.AutoGranted); err != nil {
		return nil, err
	}

	qual := &model.Qualification{
		RequesterID: requester.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      status,
		Requestable: true,
		AutoGrant:   p.AutoGranted,
	}
	if p.Requestable != nil {
		qual.Requestable = *p.Requestable
	}
	if p.AutoGranted {
		qual.AutoGrantValue = 1
		if p.AutoGrantValue != nil {
			qual.AutoGrantValue = *p.AutoGrantValue
		}
	}
	if p.RetryDelaySec != nil {
		qual.RetryActive = true
		qual.RetryDelaySec = *p.RetryDelaySec
	}
	if p.Test != "" {
		qual.Test = p.Test
		qual.TestDurationSec = *p.TestDurationSec
		qual.AnswerKey = p.AnswerKey
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		inUse, err := repo.NameInUse(ctx, requester.ID, p.Name)
		if err != nil {
			return err
		}
		if inUse {
			return apierr.ErrQualTypeAlreadyExists
		}
		tags, err := resolveKeywords(ctx, s.tasks.Tx(tx), p.Keywords)
		if err != nil {
			return err
		}
		qual.Keywords = tags
		return repo.Create(ctx, qual)
	})
	if err != nil {
		return nil, err
	}
	log.Info("qualification type created",
		"qualification", qual.ExternalID, "requester", requester.ExternalID)
	return qual, nil
}

// checkTestConfig enforces the structural rules on a qualification's exam
// material: a test must carry a duration, auto-grant and tests are
// mutually exclusive, and an answer key is meaningless without a test.
func (s *QualService) checkTestConfig(test, answerKey string, durationSec *int64, autoGranted bool) error {
	if test == "" {
		if answerKey != "" {
			return apierr.Validation("AnswerKey requires a Test")
		}
		return nil
	}
	if autoGranted {
		return apierr.Validation("a qualification type cannot both auto-grant and require a test")
	}
	if durationSec == nil || *durationSec <= 0 {
		return apierr.MissingArgument("TestDurationInSeconds")
	}
	if err := s.validator.ValidateTest(test); err != nil {
		return err
	}
	if answerKey != "" {
		return s.validator.ValidateAnswerKey(answerKey)
	}
	return nil
}

func parseQualStatus(s string) (model.QualStatus, error) {
	switch s {
	case "", string(model.QualActive):
		return model.QualActive, nil
	case string(model.QualInactive):
		return model.QualInactive, nil
	}
	return "", apierr.Validation("QualificationTypeStatus must be Active or Inactive")
}

// GetQualificationType resolves a type in any lifecycle state still in
// storage; a fully disposed type is gone and reads as DoesNotExist.
func (s *QualService) GetQualificationType(ctx context.Context, extID string) (*model.Qualification, error) {
	return s.quals.FindByExternalID(ctx, extID)
}

type UpdateQualTypeParams struct {
	Description     *string
	Status          *string
	Requestable     *bool
	RetryDelaySec   *int64
	Test            *string
	AnswerKey       *string
	TestDurationSec *int64
	AutoGranted     *bool
	AutoGrantValue  *int
}

func (s *QualService) UpdateQualificationType(
	ctx context.Context,
	requester *model.Requester,
	extID string,
	p UpdateQualTypeParams,
) (*model.Qualification, error) {
	var qual *model.Qualification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		var err error
		qual, err = repo.FindByExternalID(ctx, extID)
		if err != nil {
			return err
		}
		if qual.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		if qual.Dispose {
			return apierr.DoesNotExist("QualificationType")
		}

		if p.Description != nil {
			qual.Description = *p.Description
		}
		if p.Status != nil {
			status, err := parseQualStatus(*p.Status)
			if err != nil {
				return err
			}
			qual.Status = status
		}
		if p.Requestable != nil {
			qual.Requestable = *p.Requestable
		}
		if p.RetryDelaySec != nil {
			qual.RetryActive = true
			qual.RetryDelaySec = *p.RetryDelaySec
		}
		if p.AutoGranted != nil {
			qual.AutoGrant = *p.AutoGranted
		}
		if p.AutoGrantValue != nil {
			qual.AutoGrantValue = *p.AutoGrantValue
		}

		test := qual.Test
		answerKey := qual.AnswerKey
		durationSec := qual.TestDurationSec
		if p.Test != nil {
			test = *p.Test
		}
		if p.AnswerKey != nil {
			answerKey = *p.AnswerKey
		}
		if p.TestDurationSec != nil {
			durationSec = *p.TestDurationSec
		}
		if err := s.checkTestConfig(test, answerKey, &durationSec, qual.AutoGrant); err != nil {
			return err
		}
		qual.Test = test
		qual.AnswerKey = answerKey
		if test == "" {
			qual.TestDurationSec = 0
		} else {
			qual.TestDurationSec = durationSec
		}

		return repo.Save(ctx, qual)
	})
	if err != nil {
		return nil, err
	}
	return qual, nil
}

// DeleteQualificationType disposes a type immediately when no live task
// references it, removing its grants with it. While referencing tasks
// remain it parks the type in Disposing instead; the cascade in
// FinishDisposal completes the removal later, leaving grants behind.
func (s *QualService) DeleteQualificationType(
	ctx context.Context,
	requester *model.Requester,
	extID string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		qual, err := repo.FindByExternalID(ctx, extID)
		if err != nil {
			return err
		}
		if qual.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		refs, err := repo.ReferencingTaskCount(ctx, qual.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			qual.Status = model.QualDisposing
			qual.Dispose = true
			qual.Requestable = false
			log.Info("qualification type disposal deferred",
				"qualification", qual.ExternalID, "referencing_tasks", refs)
			return repo.Save(ctx, qual)
		}
		log.Info("qualification type disposed", "qualification", qual.ExternalID)
		return repo.HardDelete(ctx, qual, true)
	})
}

// FinishDisposal completes the disposal of any listed qualification that
// is marked Disposing and no longer referenced by a live task. It runs
// inside the caller's transaction, after a task deletion. Grants survive
// this path.
func (s *QualService) FinishDisposal(ctx context.Context, tx *gorm.DB, qualIDs []uint) error {
	repo := s.quals.Tx(tx)
	for _, id := range qualIDs {
		qual, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if qual == nil || !qual.Dispose {
			continue
		}
		refs, err := repo.ReferencingTaskCount(ctx, qual.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			continue
		}
		log.Info("qualification type disposal completed", "qualification", qual.ExternalID)
		if err := repo.HardDelete(ctx, qual, false); err != nil {
			return err
		}
	}
	return nil
}

// RequestQualification runs the worker-side request flow: admission
// checks against grants and prior requests, then immediate processing.
// The returned grant is non-nil only for auto-granted types; a nil grant
// with an Idle request means an exam is waiting.
func (s *QualService) RequestQualification(
	ctx context.Context,
	worker *model.Worker,
	qualExtID string,
) (*model.QualificationRequest, *model.QualificationGrant, error) {
	var (
		req   *model.QualificationRequest
		grant *model.QualificationGrant
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		qual, err := repo.FindByExternalID(ctx, qualExtID)
		if err != nil {
			return err
		}
		if !qual.Requestable {
			return apierr.ErrQualNotRequestable
		}
		if !qual.IsActive() {
			return apierr.ErrQualNotActive
		}
		req, err = s.createRequest(ctx, repo, worker, qual)
		if err != nil {
			return err
		}
		grant, err = s.processRequest(ctx, repo, qual, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return req, grant, nil
}

// createRequest admits or refuses a new request for the pair. Grant
// history is checked before request history: an active grant always wins,
// and a revoked grant on a no-retry type is a permanent block.
func (s *QualService) createRequest(
	ctx context.Context,
	repo *repository.QualRepository,
	worker *model.Worker,
	qual *model.Qualification,
) (*model.QualificationRequest, error) {
	grant, err := repo.AnyGrant(ctx, worker.ID, qual.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if grant != nil {
		if grant.Active {
			return nil, apierr.ErrHasActiveGrant
		}
		if !qual.RetryActive {
			return nil, apierr.ErrPermanentGrantBlock
		}
	}

	rejected, err := repo.LatestRejectedRequest(ctx, worker.ID, qual.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if rejected != nil {
		if !qual.RetryActive {
			return nil, apierr.ErrPermanentDenial
		}
		next := rejected.LastRequest.Add(qual.RetryDelay())
		if s.now().Before(next) {
			return nil, apierr.TemporaryDenial(next)
		}
		// The retry window has elapsed: the same request row goes back
		// through the state machine.
		rejected.State = model.RequestIdle
		rejected.Answer = ""
		rejected.Reason = ""
		rejected.Submitted = nil
		rejected.LastRequest = s.now()
		if err := repo.SaveRequest(ctx, rejected); err != nil {
			return nil, err
		}
		return rejected, nil
	}

	active, err := repo.ActiveRequest(ctx, worker.ID, qual.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if active != nil {
		if active.IsIdle() && qual.HasTest() {
			// Re-entering the exam flow is idempotent.
			return active, nil
		}
		return nil, apierr.ErrHasActiveRequest
	}

	req := &model.QualificationRequest{
		WorkerID:        worker.ID,
		QualificationID: qual.ID,
		State:           model.RequestIdle,
		LastRequest:     s.now(),
	}
	if err := repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// processRequest advances a freshly admitted request: auto-grant types
// grant immediately, test-bearing types hold the request Idle until the
// exam comes in, everything else waits on the requester as Pending.
func (s *QualService) processRequest(
	ctx context.Context,
	repo *repository.QualRepository,
	qual *model.Qualification,
	req *model.QualificationRequest,
) (*model.QualificationGrant, error) {
	if qual.AutoGrant {
		grant, err := s.upsertGrant(ctx, repo, req.WorkerID, qual,
			qual.AutoGrantValue, qual.AutoGrantLocale, "auto-granted")
		if err != nil {
			return nil, err
		}
		req.State = model.RequestApproved
		if err := repo.SaveRequest(ctx, req); err != nil {
			return nil, err
		}
		return grant, nil
	}
	if qual.HasTest() {
		return nil, nil
	}
	req.State = model.RequestPending
	return nil, repo.SaveRequest(ctx, req)
}

// upsertGrant keeps the single-row-per-pair invariant: an existing grant
// (active or revoked) is refreshed and reactivated, otherwise a new row
// is created.
func (s *QualService) upsertGrant(
	ctx context.Context,
	repo *repository.QualRepository,
	workerID uint,
	qual *model.Qualification,
	value int,
	locale model.Locale,
	reason string,
) (*model.QualificationGrant, error) {
	grant, err := repo.AnyGrant(ctx, workerID, qual.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if grant == nil {
		grant = &model.QualificationGrant{
			WorkerID:        workerID,
			QualificationID: qual.ID,
		}
	}
	grant.Value = value
	grant.Locale = locale
	grant.Active = true
	grant.Granted = s.now()
	grant.Reason = reason
	if grant.ID == 0 {
		err = repo.CreateGrant(ctx, grant)
	} else {
		err = repo.SaveGrant(ctx, grant)
	}
	if err != nil {
		return nil, err
	}
	log.Info("qualification granted",
		"qualification", qual.ExternalID, "value", value)
	return grant, nil
}

// SubmitTestAnswers scores a worker's exam submission. A scoring failure
// is a data condition, not an error: the request is Rejected but the
// submitted answer and timestamp are persisted either way.
func (s *QualService) SubmitTestAnswers(
	ctx context.Context,
	worker *model.Worker,
	reqExtID string,
	sub questions.Submission,
) (*model.QualificationRequest, *model.QualificationGrant, error) {
	var (
		req   *model.QualificationRequest
		grant *model.QualificationGrant
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		var err error
		req, err = repo.FindRequestByExternalID(ctx, reqExtID)
		if err != nil {
			return err
		}
		if req.WorkerID != worker.ID {
			return apierr.ErrPermissionDenied
		}
		qual := &req.Qualification
		if !qual.IsActive() {
			return apierr.ErrQualNotActive
		}
		if !qual.HasTest() {
			return apierr.ErrQualHasNoTest
		}
		if !req.IsIdle() {
			return apierr.ErrQualRequestInvalidState
		}

		form, err := s.validator.ParseForm(qual.Test)
		if err != nil {
			return err
		}
		if msgs := form.Validate(sub); len(msgs) > 0 {
			return apierr.Validation(msgs...)
		}
		encoded, err := questions.EncodeAnswers(form, sub)
		if err != nil {
			return err
		}
		now := s.now()
		req.Answer = encoded
		req.Submitted = &now

		if qual.AnswerKey == "" {
			req.State = model.RequestPending
			return repo.SaveRequest(ctx, req)
		}

		key, err := questions.ParseAnswerKey(qual.AnswerKey)
		if err != nil {
			return err
		}
		value, scoreErr := key.Score(sub)
		if scoreErr != nil {
			log.Warn("qualification test scoring failed",
				"request", req.ExternalID, "err", scoreErr)
			req.State = model.RequestRejected
			req.Reason = scoreErr.Error()
			return repo.SaveRequest(ctx, req)
		}
		grant, err = s.upsertGrant(ctx, repo, worker.ID, qual,
			value, model.Locale{}, "qualification test passed")
		if err != nil {
			return err
		}
		req.State = model.RequestApproved
		return repo.SaveRequest(ctx, req)
	})
	if err != nil {
		return nil, nil, err
	}
	return req, grant, nil
}

// AcceptQualificationRequest is the requester's manual approval of a
// Pending request. The grant value defaults to 1 when not supplied.
func (s *QualService) AcceptQualificationRequest(
	ctx context.Context,
	requester *model.Requester,
	reqExtID string,
	value *int,
) (*model.QualificationGrant, error) {
	var grant *model.QualificationGrant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		req, err := repo.FindRequestByExternalID(ctx, reqExtID)
		if err != nil {
			return err
		}
		if req.Qualification.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		if !req.IsPending() {
			return apierr.ErrQualRequestInvalidState
		}
		granted := 1
		if value != nil {
			granted = *value
		}
		grant, err = s.upsertGrant(ctx, repo, req.WorkerID, &req.Qualification,
			granted, model.Locale{}, "request accepted")
		if err != nil {
			return err
		}
		req.State = model.RequestApproved
		return repo.SaveRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *QualService) RejectQualificationRequest(
	ctx context.Context,
	requester *model.Requester,
	reqExtID string,
	reason string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		req, err := repo.FindRequestByExternalID(ctx, reqExtID)
		if err != nil {
			return err
		}
		if req.Qualification.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		if !req.IsPending() {
			return apierr.ErrQualRequestInvalidState
		}
		req.State = model.RequestRejected
		req.Reason = reason
		req.LastRequest = s.now()
		return repo.SaveRequest(ctx, req)
	})
}

// AssociateQualification grants a qualification directly, outside the
// request flow. An existing grant for the pair is refreshed in place.
func (s *QualService) AssociateQualification(
	ctx context.Context,
	requester *model.Requester,
	qualExtID, workerExtID string,
	value int,
) (*model.QualificationGrant, error) {
	var grant *model.QualificationGrant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		qual, err := repo.FindByExternalID(ctx, qualExtID)
		if err != nil {
			return err
		}
		if qual.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		worker, err := s.accounts.Tx(tx).FindWorkerByExternalID(ctx, workerExtID)
		if err != nil {
			return err
		}
		grant, err = s.upsertGrant(ctx, repo, worker.ID, qual,
			value, model.Locale{}, "associated by requester")
		return err
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// AssociateLocaleQualification grants a locale-valued qualification
// directly, the same way AssociateQualification grants integer values.
func (s *QualService) AssociateLocaleQualification(
	ctx context.Context,
	requester *model.Requester,
	qualExtID, workerExtID string,
	locale model.Locale,
) (*model.QualificationGrant, error) {
	var grant *model.QualificationGrant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		qual, err := repo.FindByExternalID(ctx, qualExtID)
		if err != nil {
			return err
		}
		if qual.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		worker, err := s.accounts.Tx(tx).FindWorkerByExternalID(ctx, workerExtID)
		if err != nil {
			return err
		}
		grant, err = s.upsertGrant(ctx, repo, worker.ID, qual,
			0, locale, "associated by requester")
		return err
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// DisassociateQualification revokes the worker's active grant, keeping
// the row for history. A missing active grant is a documented no-op.
func (s *QualService) DisassociateQualification(
	ctx context.Context,
	requester *model.Requester,
	qualExtID, workerExtID string,
	reason string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.quals.Tx(tx)
		qual, err := repo.FindByExternalID(ctx, qualExtID)
		if err != nil {
			return err
		}
		if qual.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		worker, err := s.accounts.Tx(tx).FindWorkerByExternalID(ctx, workerExtID)
		if err != nil {
			return err
		}
		grant, err := repo.ActiveGrant(ctx, worker.ID, qual.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		grant.Active = false
		grant.Reason = reason
		log.Info("qualification revoked",
			"qualification", qual.ExternalID, "worker", worker.ExternalID)
		return repo.SaveGrant(ctx, grant)
	})
}

// GetQualificationScore returns the worker's active grant for a type the
// caller owns.
func (s *QualService) GetQualificationScore(
	ctx context.Context,
	requester *model.Requester,
	qualExtID, workerExtID string,
) (*model.QualificationGrant, *model.Qualification, error) {
	qual, err := s.quals.FindByExternalID(ctx, qualExtID)
	if err != nil {
		return nil, nil, err
	}
	if qual.RequesterID != requester.ID {
		return nil, nil, apierr.ErrPermissionDenied
	}
	worker, err := s.accounts.FindWorkerByExternalID(ctx, workerExtID)
	if err != nil {
		return nil, nil, err
	}
	grant, err := s.quals.ActiveGrant(ctx, worker.ID, qual.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apierr.DoesNotExist("Qualification")
	}
	if err != nil {
		return nil, nil, err
	}
	return grant, qual, nil
}

func (s *QualService) ListQualificationTypes(
	ctx context.Context,
	filter repository.QualTypeFilter,
	offset, limit int,
) ([]model.Qualification, error) {
	return s.quals.ListQualTypes(ctx, filter, offset, limit)
}

// ListQualificationRequests lists requests awaiting a decision across
// the requester's types, or for one type when qualExtID is non-empty.
func (s *QualService) ListQualificationRequests(
	ctx context.Context,
	requester *model.Requester,
	qualExtID string,
	offset, limit int,
) ([]model.QualificationRequest, error) {
	var qualID uint
	if qualExtID != "" {
		qual, err := s.quals.FindByExternalID(ctx, qualExtID)
		if err != nil {
			return nil, err
		}
		if qual.RequesterID != requester.ID {
			return nil, apierr.ErrPermissionDenied
		}
		qualID = qual.ID
	}
	return s.quals.ListRequests(ctx, requester.ID, qualID, offset, limit)
}

// ListWorkersWithQualification lists grants on a type the caller owns,
// filtered by status ("Granted", "Revoked" or empty for both).
func (s *QualService) ListWorkersWithQualification(
	ctx context.Context,
	requester *model.Requester,
	qualExtID, status string,
	offset, limit int,
) ([]model.QualificationGrant, error) {
	qual, err := s.quals.FindByExternalID(ctx, qualExtID)
	if err != nil {
		return nil, err
	}
	if qual.RequesterID != requester.ID {
		return nil, apierr.ErrPermissionDenied
	}
	return s.quals.ListGrantsForQual(ctx, qual.ID, status, offset, limit)
}

func (s *QualService) ListWorkerGrants(
	ctx context.Context,
	worker *model.Worker,
	offset, limit int,
) ([]model.QualificationGrant, error) {
	return s.quals.ListGrantsForWorker(ctx, worker.ID, offset, limit)
}

func (s *QualService) ListWorkerRequests(
	ctx context.Context,
	worker *model.Worker,
	offset, limit int,
) ([]model.QualificationRequest, error) {
	return s.quals.ListRequestsForWorker(ctx, worker.ID, offset, limit)
}
