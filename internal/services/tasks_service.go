package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/questions"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

const (
	// Feedback strings on assignment decisions are capped like the
	// emulated service caps them.
	maxFeedbackLen = 1024

	minExpirationIncrement = 60 * time.Second
	maxExpirationIncrement = 31536000 * time.Second
)

// TaskService runs the task and assignment lifecycle. Task status is a
// derived value: after every assignment mutation the counts are
// recomputed and the task moved to the status they imply. Expiry is
// evaluated lazily during those recomputations, never by a timer.
type TaskService struct {
	db        *gorm.DB
	tasks     *repository.TaskRepository
	quals     *repository.QualRepository
	accounts  *repository.AccountRepository
	qualSvc   *QualService
	validator *questions.Validator
	now       Clock
}

func NewTaskService(
	db *gorm.DB,
	tasks *repository.TaskRepository,
	quals *repository.QualRepository,
	accounts *repository.AccountRepository,
	qualSvc *QualService,
	validator *questions.Validator,
	now Clock,
) *TaskService {
	return &TaskService{
		db:        db,
		tasks:     tasks,
		quals:     quals,
		accounts:  accounts,
		qualSvc:   qualSvc,
		validator: validator,
		now:       now,
	}
}

type CreateTaskParams struct {
	LifetimeSec    int64
	MaxAssignments int
	Question       string
	Annotation     string
	UniqueToken    string
}

// CreateTask publishes a task of an existing task type. A replayed
// unique token fails the call instead of creating a twin.
func (s *TaskService) CreateTask(
	ctx context.Context,
	requester *model.Requester,
	tt *model.TaskType,
	p CreateTaskParams,
) (*model.Task, error) {
	if p.LifetimeSec <= 0 {
		return nil, apierr.MissingArgument("LifetimeInSeconds")
	}
	if p.Question == "" {
		return nil, apierr.MissingArgument("Question")
	}
	if _, err := s.validator.ValidateQuestion(p.Question); err != nil {
		return nil, err
	}
	maxAssignments := p.MaxAssignments
	if maxAssignments <= 0 {
		maxAssignments = 1
	}

	task := &model.Task{
		RequesterID:    requester.ID,
		TaskTypeID:     tt.ID,
		Status:         model.TaskAssignable,
		ReviewStatus:   model.ReviewStatusNotReviewed,
		MaxAssignments: maxAssignments,
		Expires:        s.now().Add(time.Duration(p.LifetimeSec) * time.Second),
		Question:       p.Question,
		Annotation:     p.Annotation,
		UniqueToken:    p.UniqueToken,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		if p.UniqueToken != "" {
			inUse, err := repo.UniqueTokenInUse(ctx, p.UniqueToken)
			if err != nil {
				return err
			}
			if inUse {
				return apierr.ErrDuplicateRequest
			}
		}
		return repo.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	task.TaskType = *tt
	log.Info("task created", "task", task.ExternalID,
		"task_type", tt.ExternalID, "max_assignments", maxAssignments)
	return task, nil
}

// GetTask returns a task with its derived assignment counts. An elapsed
// expiry is folded in here, so a stale Assignable task reads (and is
// stored) as Reviewable.
func (s *TaskService) GetTask(ctx context.Context, extID string) (*model.Task, model.AssignmentStats, error) {
	var (
		task  *model.Task
		stats model.AssignmentStats
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		var err error
		task, err = repo.FindTaskByExternalID(ctx, extID)
		if err != nil {
			return err
		}
		stats, err = repo.AssignmentStats(ctx, task)
		if err != nil {
			return err
		}
		if s.expired(task) &&
			(task.Status == model.TaskAssignable || task.Status == model.TaskUnassignable) {
			task.Status = model.TaskReviewable
			return repo.SaveTask(ctx, task)
		}
		return nil
	})
	if err != nil {
		return nil, model.AssignmentStats{}, err
	}
	return task, stats, nil
}

// AcceptAssignment is the worker taking a slot on a task. The admission
// checks run in a fixed order: the worker's own prior assignment, then
// qualification prerequisites, then task availability, then blocks.
func (s *TaskService) AcceptAssignment(
	ctx context.Context,
	worker *model.Worker,
	taskExtID string,
) (*model.Assignment, error) {
	var assignment *model.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}

		prior, err := repo.FindAssignmentForPair(ctx, task.ID, worker.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if prior != nil {
			if prior.IsAccepted() {
				return apierr.ErrAssignmentAlreadyAccepted
			}
			return apierr.ErrAlreadyHasAssignment
		}

		ok, err := s.meetsPrerequisites(ctx, tx, worker, task)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrPrerequisitesNotMet
		}

		if task.Status != model.TaskAssignable || s.expired(task) {
			return apierr.ErrTaskNotAvailable
		}
		stats, err := repo.AssignmentStats(ctx, task)
		if err != nil {
			return err
		}
		if stats.Available <= 0 {
			return apierr.ErrTaskNotAvailable
		}

		blocked, err := s.accounts.Tx(tx).HasActiveBlock(ctx, worker.ID, task.RequesterID)
		if err != nil {
			return err
		}
		if blocked {
			return apierr.ErrWorkerBlocked
		}

		now := s.now()
		deadline := now.Add(task.TaskType.AssignmentDuration())
		assignment = &model.Assignment{
			TaskID:   task.ID,
			WorkerID: worker.ID,
			Status:   model.AssignmentAccepted,
			Accepted: &now,
			Deadline: &deadline,
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
		assignment.Task = *task
		return s.recomputeStatus(ctx, repo, task)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// meetsPrerequisites evaluates every requirement of the task's type
// against the worker's active grants.
func (s *TaskService) meetsPrerequisites(
	ctx context.Context,
	tx *gorm.DB,
	worker *model.Worker,
	task *model.Task,
) (bool, error) {
	if len(task.TaskType.Requirements) == 0 {
		return true, nil
	}
	grants, err := s.quals.Tx(tx).ActiveGrantsForWorker(ctx, worker.ID)
	if err != nil {
		return false, err
	}
	for i := range task.TaskType.Requirements {
		req := &task.TaskType.Requirements[i]
		ok, err := EvaluateRequirement(req, grants[req.QualificationID])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ReturnAssignment gives an accepted slot back. The row is kept but
// disposed, and the worker's return counter goes up.
func (s *TaskService) ReturnAssignment(
	ctx context.Context,
	worker *model.Worker,
	taskExtID string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}
		assignment, err := repo.FindAssignmentForPair(ctx, task.ID, worker.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.DoesNotExist("Assignment")
		}
		if err != nil {
			return err
		}
		if !assignment.IsAccepted() {
			return apierr.DoesNotExist("Assignment")
		}
		assignment.Dispose = true
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}
		worker.ReturnedCount++
		if err := s.accounts.Tx(tx).SaveWorker(ctx, worker); err != nil {
			return err
		}
		return s.recomputeStatus(ctx, repo, task)
	})
}

// SubmitAssignment records the worker's answer and moves the assignment
// to Submitted. Question-form answers are validated against the form;
// other question kinds take the submission as-is.
func (s *TaskService) SubmitAssignment(
	ctx context.Context,
	worker *model.Worker,
	assignmentExtID string,
	sub questions.Submission,
) (*model.Assignment, error) {
	var assignment *model.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		var err error
		assignment, err = repo.FindAssignmentByExternalID(ctx, assignmentExtID)
		if err != nil {
			return err
		}
		if assignment.WorkerID != worker.ID {
			return apierr.ErrPermissionDenied
		}
		if !assignment.IsAccepted() {
			return apierr.ErrAssignmentInvalidState
		}
		task := &assignment.Task

		var form *questions.Form
		if kind, err := s.validator.Classify(task.Question); err == nil && kind == questions.KindQuestionForm {
			form, err = s.validator.ParseForm(task.Question)
			if err != nil {
				return err
			}
			if msgs := form.Validate(sub); len(msgs) > 0 {
				return apierr.Validation(msgs...)
			}
		}
		encoded, err := questions.EncodeAnswers(form, sub)
		if err != nil {
			return err
		}

		now := s.now()
		autoApprove := now.Add(task.TaskType.AutoApproveDelay())
		assignment.Answer = encoded
		assignment.Status = model.AssignmentSubmitted
		assignment.Submitted = &now
		assignment.AutoApprove = &autoApprove
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}
		return s.recomputeStatus(ctx, repo, task)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// ApproveAssignment decides a submitted assignment in the worker's
// favor. A rejected assignment can be approved only with
// overrideRejection, which is the one reversible decision.
func (s *TaskService) ApproveAssignment(
	ctx context.Context,
	requester *model.Requester,
	assignmentExtID string,
	feedback string,
	overrideRejection bool,
) error {
	if len(feedback) > maxFeedbackLen {
		return apierr.ContentTooLarge("RequesterFeedback")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		assignment, err := repo.FindAssignmentByExternalID(ctx, assignmentExtID)
		if err != nil {
			return err
		}
		if assignment.Task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		switch {
		case assignment.IsAccepted():
			return apierr.ErrAssignmentNotSubmitted
		case assignment.IsApproved():
			return apierr.ErrAssignmentAlreadyApproved
		case assignment.IsRejected() && !overrideRejection:
			return apierr.ErrAssignmentAlreadyRejected
		}

		now := s.now()
		assignment.Status = model.AssignmentApproved
		assignment.Approved = &now
		assignment.Feedback = feedback
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}
		return s.recomputeStatus(ctx, repo, &assignment.Task)
	})
}

func (s *TaskService) RejectAssignment(
	ctx context.Context,
	requester *model.Requester,
	assignmentExtID string,
	feedback string,
) error {
	if feedback == "" {
		return apierr.MissingArgument("RequesterFeedback")
	}
	if len(feedback) > maxFeedbackLen {
		return apierr.ContentTooLarge("RequesterFeedback")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		assignment, err := repo.FindAssignmentByExternalID(ctx, assignmentExtID)
		if err != nil {
			return err
		}
		if assignment.Task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		if assignment.IsApproved() {
			return apierr.ErrAssignmentAlreadyApproved
		}
		if !assignment.IsSubmitted() {
			return apierr.ErrAssignmentNotSubmitted
		}

		now := s.now()
		assignment.Status = model.AssignmentRejected
		assignment.Rejected = &now
		assignment.Feedback = feedback
		if err := repo.SaveAssignment(ctx, assignment); err != nil {
			return err
		}
		return s.recomputeStatus(ctx, repo, &assignment.Task)
	})
}

// DeleteTask disposes a task once review is over and every assignment is
// decided, then lets any Disposing qualification referenced by the
// task's type finish its own disposal.
func (s *TaskService) DeleteTask(
	ctx context.Context,
	requester *model.Requester,
	taskExtID string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}
		if task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		if !task.IsReviewable() && !task.IsReviewing() {
			return apierr.ErrTaskNotDeletable
		}
		stats, err := repo.AssignmentStats(ctx, task)
		if err != nil {
			return err
		}
		if stats.Completed != task.MaxAssignments {
			return apierr.ErrTaskNotDeletable
		}

		task.Status = model.TaskDisposed
		task.Dispose = true
		if err := repo.SaveTask(ctx, task); err != nil {
			return err
		}
		log.Info("task disposed", "task", task.ExternalID)

		qualIDs := make([]uint, 0, len(task.TaskType.Requirements))
		for _, req := range task.TaskType.Requirements {
			qualIDs = append(qualIDs, req.QualificationID)
		}
		return s.qualSvc.FinishDisposal(ctx, tx, qualIDs)
	})
}

// UpdateExpiration moves a task's expiry. A time at or before now is the
// early-expiry short circuit: the task goes straight to Reviewable.
// Otherwise the extension must grow the current expiry by between one
// minute and one year.
func (s *TaskService) UpdateExpiration(
	ctx context.Context,
	requester *model.Requester,
	taskExtID string,
	newExpiry time.Time,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}
		if task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}

		now := s.now()
		if !newExpiry.After(now) {
			task.Expires = newExpiry
			if task.Status != model.TaskReviewing && task.Status != model.TaskDisposed {
				task.Status = model.TaskReviewable
			}
			return repo.SaveTask(ctx, task)
		}

		delta := newExpiry.Sub(task.Expires)
		if delta < minExpirationIncrement || delta > maxExpirationIncrement {
			return apierr.ErrInvalidExpirationIncrement
		}
		task.Expires = newExpiry
		return repo.SaveTask(ctx, task)
	})
}

// CreateAdditionalAssignments raises the assignment ceiling. An increase
// may not cross from below ten to ten or more in one call; this mirrors
// the emulated service exactly.
func (s *TaskService) CreateAdditionalAssignments(
	ctx context.Context,
	requester *model.Requester,
	taskExtID string,
	delta int,
	uniqueToken string,
) error {
	if delta <= 0 {
		return apierr.Validation("NumberOfAdditionalAssignments must be positive")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}
		if task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		if uniqueToken != "" {
			if uniqueToken == task.UniqueToken {
				return apierr.ErrDuplicateRequest
			}
			task.UniqueToken = uniqueToken
		}
		if task.MaxAssignments < 10 && task.MaxAssignments+delta >= 10 {
			return apierr.ErrInvalidAssignmentIncrease
		}
		task.MaxAssignments += delta

		stats, err := repo.AssignmentStats(ctx, task)
		if err != nil {
			return err
		}
		if stats.Available > 0 && !s.expired(task) &&
			task.Status != model.TaskReviewing && task.Status != model.TaskDisposed {
			task.Status = model.TaskAssignable
		}
		return repo.SaveTask(ctx, task)
	})
}

// UpdateTaskType switches a live task onto another of the requester's
// task types.
func (s *TaskService) UpdateTaskType(
	ctx context.Context,
	requester *model.Requester,
	taskExtID, taskTypeExtID string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}
		if task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		tt, err := repo.FindTaskTypeByExternalID(ctx, requester.ID, taskTypeExtID)
		if err != nil {
			return err
		}
		task.TaskTypeID = tt.ID
		return repo.SaveTask(ctx, task)
	})
}

// UpdateReviewStatus toggles a task between Reviewable and Reviewing.
// A task not in the state the direction expects is left alone, matching
// the emulated service's tolerance.
func (s *TaskService) UpdateReviewStatus(
	ctx context.Context,
	requester *model.Requester,
	taskExtID string,
	revert bool,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)
		task, err := repo.FindTaskByExternalID(ctx, taskExtID)
		if err != nil {
			return err
		}
		if task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		switch {
		case revert && task.IsReviewing():
			task.Status = model.TaskReviewable
		case !revert && task.IsReviewable():
			task.Status = model.TaskReviewing
		default:
			return nil
		}
		return repo.SaveTask(ctx, task)
	})
}

func (s *TaskService) GetAssignment(
	ctx context.Context,
	requester *model.Requester,
	assignmentExtID string,
) (*model.Assignment, error) {
	assignment, err := s.tasks.FindAssignmentByExternalID(ctx, assignmentExtID)
	if err != nil {
		return nil, err
	}
	if assignment.Task.RequesterID != requester.ID {
		return nil, apierr.ErrPermissionDenied
	}
	return assignment, nil
}

// AssignmentStats derives the pending/available/completed counts for a
// task that has already been loaded.
func (s *TaskService) AssignmentStats(
	ctx context.Context,
	task *model.Task,
) (model.AssignmentStats, error) {
	return s.tasks.AssignmentStats(ctx, task)
}

func (s *TaskService) ListTasks(
	ctx context.Context,
	requester *model.Requester,
	offset, limit int,
) ([]model.Task, error) {
	return s.tasks.ListTasks(ctx, requester.ID, offset, limit)
}

// ListReviewableTasks lists the requester's tasks sitting in Reviewable
// or Reviewing, optionally narrowed to one task type.
func (s *TaskService) ListReviewableTasks(
	ctx context.Context,
	requester *model.Requester,
	taskTypeExtID string,
	status model.TaskStatus,
	offset, limit int,
) ([]model.Task, error) {
	if status != model.TaskReviewable && status != model.TaskReviewing {
		return nil, apierr.Validation("Status must be Reviewable or Reviewing")
	}
	var taskTypeID uint
	if taskTypeExtID != "" {
		tt, err := s.tasks.FindTaskTypeByExternalID(ctx, requester.ID, taskTypeExtID)
		if err != nil {
			return nil, err
		}
		taskTypeID = tt.ID
	}
	return s.tasks.ListReviewableTasks(ctx, requester.ID, taskTypeID, status, offset, limit)
}

func (s *TaskService) ListTasksForQualification(
	ctx context.Context,
	qualExtID string,
	offset, limit int,
) ([]model.Task, error) {
	qual, err := s.quals.FindByExternalID(ctx, qualExtID)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListTasksForQualification(ctx, qual.ID, offset, limit)
}

// ListAssignmentsForTask lists a task's assignments in the given
// statuses; an empty filter means every status.
func (s *TaskService) ListAssignmentsForTask(
	ctx context.Context,
	requester *model.Requester,
	taskExtID string,
	statuses []model.AssignmentStatus,
	offset, limit int,
) ([]model.Assignment, error) {
	task, err := s.tasks.FindTaskByExternalID(ctx, taskExtID)
	if err != nil {
		return nil, err
	}
	if task.RequesterID != requester.ID {
		return nil, apierr.ErrPermissionDenied
	}
	if len(statuses) == 0 {
		statuses = []model.AssignmentStatus{
			model.AssignmentAccepted, model.AssignmentSubmitted,
			model.AssignmentApproved, model.AssignmentRejected,
		}
	}
	return s.tasks.ListAssignmentsForTask(ctx, task.ID, statuses, offset, limit)
}

// ListAssignableTaskTypes backs the worker browse view: task types with
// at least one open, unexpired task.
func (s *TaskService) ListAssignableTaskTypes(
	ctx context.Context,
	offset, limit int,
) ([]model.TaskType, error) {
	return s.tasks.ListAssignableTaskTypes(ctx, s.now(), offset, limit)
}

func (s *TaskService) ListAssignableTasksOfType(
	ctx context.Context,
	taskTypeExtID string,
	offset, limit int,
) ([]model.Task, error) {
	tt, err := s.tasks.FindAnyTaskTypeByExternalID(ctx, taskTypeExtID)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListAssignableTasksOfType(ctx, tt.ID, s.now(), offset, limit)
}

func (s *TaskService) expired(task *model.Task) bool {
	return !task.Expires.After(s.now())
}

// recomputeStatus rederives task status from the assignment counts:
// slots free means Assignable, slots full with work outstanding means
// Unassignable, everything turned in or decided means Reviewable. A task
// already under review or disposed is left alone.
func (s *TaskService) recomputeStatus(
	ctx context.Context,
	repo *repository.TaskRepository,
	task *model.Task,
) error {
	switch task.Status {
	case model.TaskAssignable, model.TaskUnassignable:
	default:
		return nil
	}

	if s.expired(task) {
		task.Status = model.TaskReviewable
		return repo.SaveTask(ctx, task)
	}
	stats, err := repo.AssignmentStats(ctx, task)
	if err != nil {
		return err
	}
	switch {
	case stats.Available > 0:
		task.Status = model.TaskAssignable
	case stats.Pending > 0:
		task.Status = model.TaskUnassignable
	default:
		task.Status = model.TaskReviewable
	}
	return repo.SaveTask(ctx, task)
}
