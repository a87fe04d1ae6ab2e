package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

// TaskTypeService finds or creates task type templates. Reuse requires
// full equality: identical scalar parameters plus set-equal keywords and
// set-equal requirement rows. Requirement rows are themselves
// deduplicated by exact value, so set equality compares row identity.
type TaskTypeService struct {
	db    *gorm.DB
	tasks *repository.TaskRepository
	quals *repository.QualRepository
}

func NewTaskTypeService(db *gorm.DB, tasks *repository.TaskRepository, quals *repository.QualRepository) *TaskTypeService {
	return &TaskTypeService{db: db, tasks: tasks, quals: quals}
}

type RequirementParams struct {
	QualificationExtID string
	Comparator         string
	IntValues          []int
	Locales            []model.Locale
	RequiredToPreview  bool
}

type TaskTypeParams struct {
	AssignmentDurationSec int64
	AutoApproveDelaySec   int64
	Reward                decimal.Decimal
	Title                 string
	Description           string
	Keywords              string
	Requirements          []RequirementParams
}

// FindOrCreate returns the requester's existing task type matching the
// parameters exactly, or creates one. The second result reports whether
// a new type was created.
func (s *TaskTypeService) FindOrCreate(
	ctx context.Context,
	requester *model.Requester,
	p TaskTypeParams,
) (*model.TaskType, bool, error) {
	if p.Title == "" {
		return nil, false, apierr.MissingArgument("Title")
	}
	if p.AssignmentDurationSec <= 0 {
		return nil, false, apierr.MissingArgument("AssignmentDurationInSeconds")
	}
	if p.Reward.IsNegative() {
		return nil, false, apierr.Validation("Reward must not be negative")
	}
	for _, rp := range p.Requirements {
		if !model.ValidComparator(rp.Comparator) {
			return nil, false, apierr.Validation("unknown comparator " + rp.Comparator)
		}
	}

	var (
		tt      *model.TaskType
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tasks.Tx(tx)

		reqs, err := s.resolveRequirements(ctx, tx, p.Requirements)
		if err != nil {
			return err
		}
		tags, err := resolveKeywords(ctx, repo, p.Keywords)
		if err != nil {
			return err
		}

		candidates, err := repo.CandidateTaskTypes(ctx, requester.ID,
			p.Title, p.Description, p.AssignmentDurationSec, p.AutoApproveDelaySec)
		if err != nil {
			return err
		}
		for i := range candidates {
			c := &candidates[i]
			if !c.Reward.Equal(p.Reward) {
				continue
			}
			if !sameKeywordSet(c.Keywords, tags) {
				continue
			}
			if !sameRequirementSet(c.Requirements, reqs) {
				continue
			}
			tt = c
			return nil
		}

		tt = &model.TaskType{
			RequesterID:           requester.ID,
			AssignmentDurationSec: p.AssignmentDurationSec,
			AutoApproveDelaySec:   p.AutoApproveDelaySec,
			Reward:                p.Reward,
			Title:                 p.Title,
			Description:           p.Description,
			Keywords:              tags,
			Requirements:          reqs,
		}
		created = true
		return repo.CreateTaskType(ctx, tt)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Info("task type created",
			"task_type", tt.ExternalID, "requester", requester.ExternalID)
	}
	return tt, created, nil
}

func (s *TaskTypeService) Get(
	ctx context.Context,
	requester *model.Requester,
	extID string,
) (*model.TaskType, error) {
	return s.tasks.FindTaskTypeByExternalID(ctx, requester.ID, extID)
}

// resolveRequirements maps requirement parameters onto stored rows,
// reusing an existing row on exact value match.
func (s *TaskTypeService) resolveRequirements(
	ctx context.Context,
	tx *gorm.DB,
	params []RequirementParams,
) ([]model.QualificationRequirement, error) {
	repo := s.tasks.Tx(tx)
	quals := s.quals.Tx(tx)
	out := make([]model.QualificationRequirement, 0, len(params))
	for _, rp := range params {
		qual, err := quals.FindByExternalID(ctx, rp.QualificationExtID)
		if err != nil {
			return nil, err
		}
		if qual.Dispose {
			return nil, apierr.DoesNotExist("QualificationType")
		}
		want := &model.QualificationRequirement{
			QualificationID:   qual.ID,
			Comparator:        model.Comparator(rp.Comparator),
			IntValues:         model.EncodeIntValues(rp.IntValues),
			LocaleValues:      model.EncodeLocaleValues(rp.Locales),
			RequiredToPreview: rp.RequiredToPreview,
		}
		existing, err := repo.FindRequirement(ctx, want)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil {
			out = append(out, *existing)
			continue
		}
		if err := repo.CreateRequirement(ctx, want); err != nil {
			return nil, err
		}
		out = append(out, *want)
	}
	return out, nil
}

func sameKeywordSet(a, b []model.KeywordTag) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[uint]bool, len(a))
	for _, t := range a {
		ids[t.ID] = true
	}
	for _, t := range b {
		if !ids[t.ID] {
			return false
		}
	}
	return true
}

func sameRequirementSet(a, b []model.QualificationRequirement) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[uint]bool, len(a))
	for _, r := range a {
		ids[r.ID] = true
	}
	for _, r := range b {
		if !ids[r.ID] {
			return false
		}
	}
	return true
}
