package repository

import (
	"context"

	"gorm.io/gorm"

	model "github.com/callendorph/mturkemu/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Tx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) CreateBonus(ctx context.Context, bonus *model.BonusPayment) error {
	return r.db.WithContext(ctx).Create(bonus).Error
}

// BonusTokenInUse reports whether a bonus with the same unique token was
// already booked for the (worker, assignment) pair.
func (r *PaymentRepository) BonusTokenInUse(ctx context.Context, workerID, assignmentID uint, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.BonusPayment{}).
		Where("worker_id = ? AND assignment_id = ? AND unique_token = ?",
			workerID, assignmentID, token).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentRepository) ListBonusesForTask(ctx context.Context, taskID uint, offset, limit int) ([]model.BonusPayment, error) {
	var bonuses []model.BonusPayment
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Preload("Assignment").
		Joins("JOIN assignments ON assignments.id = bonus_payments.assignment_id").
		Where("assignments.task_id = ?", taskID).
		Order("bonus_payments.created_at desc").
		Offset(offset).Limit(limit).
		Find(&bonuses).Error
	return bonuses, err
}

func (r *PaymentRepository) ListBonusesForAssignment(ctx context.Context, assignmentID uint, offset, limit int) ([]model.BonusPayment, error) {
	var bonuses []model.BonusPayment
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Preload("Assignment").
		Where("assignment_id = ?", assignmentID).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&bonuses).Error
	return bonuses, err
}
