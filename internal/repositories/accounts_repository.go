package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	"github.com/callendorph/mturkemu/internal/ids"
	model "github.com/callendorph/mturkemu/internal/models"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Tx returns a copy bound to an open transaction.
func (r *AccountRepository) Tx(tx *gorm.DB) *AccountRepository {
	return &AccountRepository{db: tx}
}

// CreateAccount creates an account with its worker and requester roles
// and one active credential, all in a single transaction. External ids
// are assigned before the transaction commits so no reader ever observes
// an empty id.
func (r *AccountRepository) CreateAccount(
	ctx context.Context,
	username, email, name string,
	balance decimal.Decimal,
) (*model.Account, *model.Worker, *model.Requester, *model.Credential, error) {
	account := &model.Account{Username: username, Email: email}
	worker := &model.Worker{Active: true}
	requester := &model.Requester{Name: name, Active: true, Balance: balance}
	credential := &model.Credential{
		AccessKey: newAccessKey(),
		SecretKey: newSecretKey(),
		Active:    true,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}

		worker.AccountID = account.ID
		if err := tx.Create(worker).Error; err != nil {
			return err
		}
		if err := setExternalID(tx, worker, "worker", worker.ID, &worker.ExternalID); err != nil {
			return err
		}

		requester.AccountID = account.ID
		if err := tx.Create(requester).Error; err != nil {
			return err
		}
		if err := setExternalID(tx, requester, "requester", requester.ID, &requester.ExternalID); err != nil {
			return err
		}

		credential.RequesterID = requester.ID
		return tx.Create(credential).Error
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return account, worker, requester, credential, nil
}

// FindRequesterByUsername resolves a login name to its requester role,
// returning nil when no such account exists.
func (r *AccountRepository) FindRequesterByUsername(ctx context.Context, username string) (*model.Requester, error) {
	var requester model.Requester
	err := r.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = requesters.account_id").
		Where("accounts.username = ?", username).
		First(&requester).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &requester, nil
}

func (r *AccountRepository) FindWorkerByExternalID(ctx context.Context, id string) (*model.Worker, error) {
	var worker model.Worker
	err := r.db.WithContext(ctx).First(&worker, "external_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("Worker")
	}
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *AccountRepository) FindRequesterByExternalID(ctx context.Context, id string) (*model.Requester, error) {
	var requester model.Requester
	err := r.db.WithContext(ctx).First(&requester, "external_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.DoesNotExist("Requester")
	}
	if err != nil {
		return nil, err
	}
	return &requester, nil
}

// FindRequesterByAccessKey resolves the acting requester from an active
// credential's access key.
func (r *AccountRepository) FindRequesterByAccessKey(ctx context.Context, accessKey string) (*model.Requester, error) {
	var credential model.Credential
	err := r.db.WithContext(ctx).
		First(&credential, "access_key = ? AND active = ?", accessKey, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.ErrPermissionDenied
	}
	if err != nil {
		return nil, err
	}

	var requester model.Requester
	if err := r.db.WithContext(ctx).First(&requester, credential.RequesterID).Error; err != nil {
		return nil, err
	}
	return &requester, nil
}

func (r *AccountRepository) SaveWorker(ctx context.Context, worker *model.Worker) error {
	return r.db.WithContext(ctx).Save(worker).Error
}

func (r *AccountRepository) SaveRequester(ctx context.Context, requester *model.Requester) error {
	return r.db.WithContext(ctx).Save(requester).Error
}

// FindBlock returns the block row for a (worker, requester) pair whether
// active or not, or gorm.ErrRecordNotFound.
func (r *AccountRepository) FindBlock(ctx context.Context, workerID, requesterID uint) (*model.WorkerBlock, error) {
	var block model.WorkerBlock
	err := r.db.WithContext(ctx).
		First(&block, "worker_id = ? AND requester_id = ?", workerID, requesterID).Error
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *AccountRepository) HasActiveBlock(ctx context.Context, workerID, requesterID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WorkerBlock{}).
		Where("worker_id = ? AND requester_id = ? AND active = ?", workerID, requesterID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *AccountRepository) CreateBlock(ctx context.Context, block *model.WorkerBlock) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *AccountRepository) SaveBlock(ctx context.Context, block *model.WorkerBlock) error {
	return r.db.WithContext(ctx).Save(block).Error
}

func (r *AccountRepository) ListActiveBlocks(ctx context.Context, requesterID uint, offset, limit int) ([]model.WorkerBlock, error) {
	var blocks []model.WorkerBlock
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Where("requester_id = ? AND active = ?", requesterID, true).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&blocks).Error
	return blocks, err
}

// setExternalID assigns the derived external id right after the first
// insert, inside the creating transaction.
func setExternalID(tx *gorm.DB, entity any, kind string, seq uint, dest *string) error {
	ext := ids.Generate(kind, seq)
	if err := tx.Model(entity).Update("external_id", ext).Error; err != nil {
		return err
	}
	*dest = ext
	return nil
}

func newAccessKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "AK" + raw[:18]
}

func newSecretKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
