package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Tx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

// FindOrCreateKeyword resolves a normalized keyword to its tag row,
// creating the tag on first use.
func (r *TaskRepository) FindOrCreateKeyword(ctx context.Context, value string) (*model.KeywordTag, bool, error) {
	var tag model.KeywordTag
	err := r.db.WithContext(ctx).First(&tag, "value = ?", value).Error
	if err == nil {
		return &tag, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	tag = model.KeywordTag{Value: value}
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, false, err
	}
	return &tag, true, nil
}

// FindKeyword returns the tag for a value, or gorm.ErrRecordNotFound.
func (r *TaskRepository) FindKeyword(ctx context.Context, value string) (*model.KeywordTag, error) {
	var tag model.KeywordTag
	if err := r.db.WithContext(ctx).First(&tag, "value = ?", value).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindRequirement locates the requirement row exactly matching every
// field, or gorm.ErrRecordNotFound. Requirements are immutable and
// deduplicated by this value identity.
func (r *TaskRepository) FindRequirement(ctx context.Context, req *model.QualificationRequirement) (*model.QualificationRequirement, error) {
	var found model.QualificationRequirement
	err := r.db.WithContext(ctx).
		Where("qualification_id = ? AND comparator = ? AND int_values = ? AND locale_values = ? AND required_to_preview = ?",
			req.QualificationID, req.Comparator, req.IntValues, req.LocaleValues, req.RequiredToPreview).
		First(&found).Error
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *TaskRepository) CreateRequirement(ctx context.Context, req *model.QualificationRequirement) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *TaskRepository) CreateTaskType(ctx context.Context, tt *model.TaskType) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tt).Error; err != nil {
			return err
		}
		return setExternalID(tx, tt, "tasktype", tt.ID, &tt.ExternalID)
	})
}

func (r *TaskRepository) FindTaskTypeByExternalID(ctx context.Context, requesterID uint, id string) (*model.TaskType, error) {
	var tt model.TaskType
	err := r.db.WithContext(ctx).
		Preload("Keywords").
		Preload("Requirements").
		Preload("Requirements.Qualification").
		First(&tt, "requester_id = ? AND external_id = ?", requesterID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("HITType")
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// FindAnyTaskTypeByExternalID resolves a task type without owner
// scoping, for the worker-facing browse views.
func (r *TaskRepository) FindAnyTaskTypeByExternalID(ctx context.Context, id string) (*model.TaskType, error) {
	var tt model.TaskType
	err := r.db.WithContext(ctx).
		Preload("Keywords").
		Preload("Requirements").
		Preload("Requirements.Qualification").
		First(&tt, "external_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("HITType")
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// CandidateTaskTypes lists a requester's task types matching the scalar
// parameters that sqlite can compare directly. Reward and set equality
// are checked by the caller.
func (r *TaskRepository) CandidateTaskTypes(ctx context.Context, requesterID uint, title, description string, assignmentDurationSec, autoApproveDelaySec int64) ([]model.TaskType, error) {
	var tts []model.TaskType
	err := r.db.WithContext(ctx).
		Preload("Keywords").
		Preload("Requirements").
		Where("requester_id = ? AND title = ? AND description = ? AND assignment_duration_sec = ? AND auto_approve_delay_sec = ?",
			requesterID, title, description, assignmentDurationSec, autoApproveDelaySec).
		Find(&tts).Error
	return tts, err
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return setExternalID(tx, task, "task", task.ID, &task.ExternalID)
	})
}

func (r *TaskRepository) FindTaskByExternalID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("TaskType").
		Preload("TaskType.Keywords").
		Preload("TaskType.Requirements").
		Preload("TaskType.Requirements.Qualification").
		First(&task, "external_id = ? AND dispose = ?", id, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("HIT")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) SaveTask(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) UniqueTokenInUse(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("unique_token = ?", token).
		Count(&count).Error
	return count > 0, err
}

// FindAssignmentForPair returns the single non-disposed assignment for a
// (task, worker) pair, or gorm.ErrRecordNotFound.
func (r *TaskRepository) FindAssignmentForPair(ctx context.Context, taskID, workerID uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		First(&assignment, "task_id = ? AND worker_id = ? AND dispose = ?",
			taskID, workerID, false).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *TaskRepository) FindAssignmentByExternalID(ctx context.Context, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Task.TaskType").
		Preload("Worker").
		First(&assignment, "external_id = ? AND dispose = ?", id, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("Assignment")
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *TaskRepository) CreateAssignment(ctx context.Context, assignment *model.Assignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}
		return setExternalID(tx, assignment, "assignment", assignment.ID, &assignment.ExternalID)
	})
}

func (r *TaskRepository) SaveAssignment(ctx context.Context, assignment *model.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

// AssignmentStats derives the availability counts for a task from its
// non-disposed assignments.
func (r *TaskRepository) AssignmentStats(ctx context.Context, task *model.Task) (model.AssignmentStats, error) {
	type row struct {
		Status model.AssignmentStatus
		N      int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Assignment{}).
		Select("status, count(*) as n").
		Where("task_id = ? AND dispose = ?", task.ID, false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return model.AssignmentStats{}, err
	}

	stats := model.AssignmentStats{}
	for _, r := range rows {
		switch r.Status {
		case model.AssignmentAccepted:
			stats.Pending += r.N
		case model.AssignmentSubmitted:
			stats.Submitted += r.N
		case model.AssignmentApproved, model.AssignmentRejected:
			stats.Completed += r.N
		}
	}
	stats.Available = task.MaxAssignments - (stats.Pending + stats.Submitted + stats.Completed)
	if stats.Available < 0 {
		stats.Available = 0
	}
	return stats, nil
}

func (r *TaskRepository) ListTasks(ctx context.Context, requesterID uint, offset, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("TaskType").
		Preload("TaskType.Keywords").
		Preload("TaskType.Requirements").
		Preload("TaskType.Requirements.Qualification").
		Where("requester_id = ? AND dispose = ?", requesterID, false).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// ListReviewableTasks lists a requester's tasks in the given review
// lifecycle status, optionally narrowed to one task type.
func (r *TaskRepository) ListReviewableTasks(ctx context.Context, requesterID uint, taskTypeID uint, status model.TaskStatus, offset, limit int) ([]model.Task, error) {
	q := r.db.WithContext(ctx).
		Preload("TaskType").
		Preload("TaskType.Keywords").
		Preload("TaskType.Requirements").
		Preload("TaskType.Requirements.Qualification").
		Where("requester_id = ? AND dispose = ? AND status = ?", requesterID, false, status)
	if taskTypeID != 0 {
		q = q.Where("task_type_id = ?", taskTypeID)
	}

	var tasks []model.Task
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&tasks).Error
	return tasks, err
}

// ListTasksForQualification lists non-disposed tasks whose task type
// requires the qualification.
func (r *TaskRepository) ListTasksForQualification(ctx context.Context, qualID uint, offset, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("TaskType").
		Preload("TaskType.Keywords").
		Preload("TaskType.Requirements").
		Preload("TaskType.Requirements.Qualification").
		Joins("JOIN tasktype_requirements tr ON tr.task_type_id = tasks.task_type_id").
		Joins("JOIN qualification_requirements qr ON qr.id = tr.qualification_requirement_id").
		Where("qr.qualification_id = ? AND tasks.dispose = ?", qualID, false).
		Order("tasks.created_at desc").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) ListAssignmentsForTask(ctx context.Context, taskID uint, statuses []model.AssignmentStatus, offset, limit int) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Where("task_id = ? AND dispose = ? AND status IN ?", taskID, false, statuses).
		Order("accepted desc").
		Offset(offset).Limit(limit).
		Find(&assignments).Error
	return assignments, err
}

// ListAssignableTaskTypes lists the task types that currently have at
// least one assignable, unexpired task, for the worker-facing browse
// view.
func (r *TaskRepository) ListAssignableTaskTypes(ctx context.Context, nowArg any, offset, limit int) ([]model.TaskType, error) {
	sub := r.db.Model(&model.Task{}).
		Select("DISTINCT task_type_id").
		Where("status = ? AND dispose = ? AND expires > ?", model.TaskAssignable, false, nowArg)

	var tts []model.TaskType
	err := r.db.WithContext(ctx).
		Preload("Keywords").
		Preload("Requirements").
		Preload("Requirements.Qualification").
		Where("id IN (?)", sub).
		Offset(offset).Limit(limit).
		Find(&tts).Error
	return tts, err
}

// ListAssignableTasksOfType lists the open tasks of one task type,
// oldest expiry first.
func (r *TaskRepository) ListAssignableTasksOfType(ctx context.Context, taskTypeID uint, nowArg any, offset, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("TaskType").
		Preload("TaskType.Keywords").
		Preload("TaskType.Requirements").
		Preload("TaskType.Requirements.Qualification").
		Where("task_type_id = ? AND status = ? AND dispose = ? AND expires > ?",
			taskTypeID, model.TaskAssignable, false, nowArg).
		Order("expires asc").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	return tasks, err
}
