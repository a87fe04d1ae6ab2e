package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
)

type QualRepository struct {
	db *gorm.DB
}

func NewQualRepository(db *gorm.DB) *QualRepository {
	return &QualRepository{db: db}
}

func (r *QualRepository) Tx(tx *gorm.DB) *QualRepository {
	return &QualRepository{db: tx}
}

func (r *QualRepository) Create(ctx context.Context, qual *model.Qualification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(qual).Error; err != nil {
			return err
		}
		return setExternalID(tx, qual, "qualification", qual.ID, &qual.ExternalID)
	})
}

// FindByExternalID resolves a qualification in any lifecycle state still
// present in storage; fully disposed rows are hard-deleted and therefore
// miss here.
func (r *QualRepository) FindByExternalID(ctx context.Context, id string) (*model.Qualification, error) {
	var qual model.Qualification
	err := r.db.WithContext(ctx).Preload("Keywords").
		First(&qual, "external_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("QualificationType")
	}
	if err != nil {
		return nil, err
	}
	return &qual, nil
}

// FindByID resolves a qualification by primary key, returning nil when
// the row no longer exists.
func (r *QualRepository) FindByID(ctx context.Context, id uint) (*model.Qualification, error) {
	var qual model.Qualification
	err := r.db.WithContext(ctx).First(&qual, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &qual, nil
}

// FindByName looks up a requester's live qualification type by name,
// returning nil when none exists.
func (r *QualRepository) FindByName(ctx context.Context, requesterID uint, name string) (*model.Qualification, error) {
	var qual model.Qualification
	err := r.db.WithContext(ctx).
		Preload("Keywords").
		First(&qual, "requester_id = ? AND name = ? AND dispose = ?", requesterID, name, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &qual, nil
}

func (r *QualRepository) NameInUse(ctx context.Context, requesterID uint, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Qualification{}).
		Where("requester_id = ? AND name = ? AND dispose = ?", requesterID, name, false).
		Count(&count).Error
	return count > 0, err
}

func (r *QualRepository) Save(ctx context.Context, qual *model.Qualification) error {
	return r.db.WithContext(ctx).Save(qual).Error
}

// HardDelete removes the qualification row. Grants are removed only when
// withGrants is set: immediate disposal takes them along, while the
// deferred Disposing cascade leaves history behind.
func (r *QualRepository) HardDelete(ctx context.Context, qual *model.Qualification, withGrants bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if withGrants {
			if err := tx.Where("qualification_id = ?", qual.ID).
				Delete(&model.QualificationGrant{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("qualification_id = ?", qual.ID).
			Delete(&model.QualificationRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(qual).Error
	})
}

// ReferencingTaskCount counts non-disposed tasks whose task type carries a
// requirement on this qualification.
func (r *QualRepository) ReferencingTaskCount(ctx context.Context, qualID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Joins("JOIN tasktype_requirements tr ON tr.task_type_id = tasks.task_type_id").
		Joins("JOIN qualification_requirements qr ON qr.id = tr.qualification_requirement_id").
		Where("qr.qualification_id = ? AND tasks.dispose = ?", qualID, false).
		Count(&count).Error
	return count, err
}

func (r *QualRepository) ActiveGrant(ctx context.Context, workerID, qualID uint) (*model.QualificationGrant, error) {
	var grant model.QualificationGrant
	err := r.db.WithContext(ctx).
		First(&grant, "worker_id = ? AND qualification_id = ? AND active = ?",
			workerID, qualID, true).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// AnyGrant returns the single grant row for a pair regardless of its
// active flag, or gorm.ErrRecordNotFound.
func (r *QualRepository) AnyGrant(ctx context.Context, workerID, qualID uint) (*model.QualificationGrant, error) {
	var grant model.QualificationGrant
	err := r.db.WithContext(ctx).
		First(&grant, "worker_id = ? AND qualification_id = ?", workerID, qualID).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *QualRepository) RevokedGrantExists(ctx context.Context, workerID, qualID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.QualificationGrant{}).
		Where("worker_id = ? AND qualification_id = ? AND active = ?", workerID, qualID, false).
		Count(&count).Error
	return count > 0, err
}

func (r *QualRepository) CreateGrant(ctx context.Context, grant *model.QualificationGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *QualRepository) SaveGrant(ctx context.Context, grant *model.QualificationGrant) error {
	return r.db.WithContext(ctx).Save(grant).Error
}

// ActiveGrantsForWorker preloads the worker's active grants keyed by
// qualification id, for requirement evaluation.
func (r *QualRepository) ActiveGrantsForWorker(ctx context.Context, workerID uint) (map[uint]*model.QualificationGrant, error) {
	var grants []model.QualificationGrant
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND active = ?", workerID, true).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*model.QualificationGrant, len(grants))
	for i := range grants {
		out[grants[i].QualificationID] = &grants[i]
	}
	return out, nil
}

// LatestRejectedRequest returns the most recent rejected request for a
// pair, or gorm.ErrRecordNotFound.
func (r *QualRepository) LatestRejectedRequest(ctx context.Context, workerID, qualID uint) (*model.QualificationRequest, error) {
	var req model.QualificationRequest
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND qualification_id = ? AND state = ?",
			workerID, qualID, model.RequestRejected).
		Order("last_request desc").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ActiveRequest returns the pair's non-rejected request, or
// gorm.ErrRecordNotFound. At most one such row exists at a time.
func (r *QualRepository) ActiveRequest(ctx context.Context, workerID, qualID uint) (*model.QualificationRequest, error) {
	var req model.QualificationRequest
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND qualification_id = ? AND state <> ?",
			workerID, qualID, model.RequestRejected).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *QualRepository) CreateRequest(ctx context.Context, req *model.QualificationRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return setExternalID(tx, req, "qualificationrequest", req.ID, &req.ExternalID)
	})
}

func (r *QualRepository) FindRequestByExternalID(ctx context.Context, id string) (*model.QualificationRequest, error) {
	var req model.QualificationRequest
	err := r.db.WithContext(ctx).
		Preload("Qualification").
		Preload("Worker").
		First(&req, "external_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("QualificationRequest")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *QualRepository) SaveRequest(ctx context.Context, req *model.QualificationRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// QualTypeFilter narrows ListQualTypes.
type QualTypeFilter struct {
	MustBeRequestable bool
	OwnedBy           uint // requester id, zero for any owner
	Query             string
}

func (r *QualRepository) ListQualTypes(ctx context.Context, filter QualTypeFilter, offset, limit int) ([]model.Qualification, error) {
	q := r.db.WithContext(ctx).Model(&model.Qualification{}).
		Preload("Keywords").
		Where("dispose = ?", false)
	if filter.MustBeRequestable {
		q = q.Where("requestable = ?", true)
	}
	if filter.OwnedBy != 0 {
		q = q.Where("requester_id = ?", filter.OwnedBy)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var quals []model.Qualification
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&quals).Error
	return quals, err
}

// ListRequests lists pending-decision requests over a requester's
// qualifications, or over one qualification when qualID is non-zero.
func (r *QualRepository) ListRequests(ctx context.Context, requesterID, qualID uint, offset, limit int) ([]model.QualificationRequest, error) {
	q := r.db.WithContext(ctx).Model(&model.QualificationRequest{}).
		Preload("Qualification").
		Preload("Worker").
		Joins("JOIN qualifications ON qualifications.id = qualification_requests.qualification_id")
	if qualID != 0 {
		q = q.Where("qualification_requests.qualification_id = ?", qualID)
	} else {
		q = q.Where("qualifications.requester_id = ?", requesterID)
	}

	var reqs []model.QualificationRequest
	err := q.Order("qualification_requests.last_request desc").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *QualRepository) ListRequestsForWorker(ctx context.Context, workerID uint, offset, limit int) ([]model.QualificationRequest, error) {
	var reqs []model.QualificationRequest
	err := r.db.WithContext(ctx).
		Preload("Qualification").
		Where("worker_id = ?", workerID).
		Order("last_request desc").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

// GrantFilter selects grants by status: "Granted", "Revoked" or empty for
// both.
func (r *QualRepository) ListGrantsForQual(ctx context.Context, qualID uint, status string, offset, limit int) ([]model.QualificationGrant, error) {
	q := r.db.WithContext(ctx).Model(&model.QualificationGrant{}).
		Preload("Worker").
		Preload("Qualification").
		Where("qualification_id = ?", qualID)
	switch status {
	case "Granted":
		q = q.Where("active = ?", true)
	case "Revoked":
		q = q.Where("active = ?", false)
	}

	var grants []model.QualificationGrant
	err := q.Order("granted desc").Offset(offset).Limit(limit).Find(&grants).Error
	return grants, err
}

func (r *QualRepository) ListGrantsForWorker(ctx context.Context, workerID uint, offset, limit int) ([]model.QualificationGrant, error) {
	var grants []model.QualificationGrant
	err := r.db.WithContext(ctx).
		Preload("Qualification").
		Where("worker_id = ?", workerID).
		Order("granted desc").
		Offset(offset).Limit(limit).
		Find(&grants).Error
	return grants, err
}
