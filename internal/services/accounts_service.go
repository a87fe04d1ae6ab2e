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

// AccountService covers the emulated service's money and access
// surfaces: requester balances, bonus payments, and worker blocks.
type AccountService struct {
	db       *gorm.DB
	accounts *repository.AccountRepository
	tasks    *repository.TaskRepository
	payments *repository.PaymentRepository
}

func NewAccountService(
	db *gorm.DB,
	accounts *repository.AccountRepository,
	tasks *repository.TaskRepository,
	payments *repository.PaymentRepository,
) *AccountService {
	return &AccountService{
		db:       db,
		accounts: accounts,
		tasks:    tasks,
		payments: payments,
	}
}

// CreateAccount provisions a login with its worker and requester roles
// and an initial balance. Used by the seed command and the signup
// endpoint.
func (s *AccountService) CreateAccount(
	ctx context.Context,
	username, email, name string,
	balance decimal.Decimal,
) (*model.Worker, *model.Requester, *model.Credential, error) {
	if username == "" {
		return nil, nil, nil, apierr.MissingArgument("Username")
	}
	_, worker, requester, credential, err := s.accounts.CreateAccount(ctx, username, email, name, balance)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("account created", "username", username,
		"worker", worker.ExternalID, "requester", requester.ExternalID)
	return worker, requester, credential, nil
}

func (s *AccountService) Balance(ctx context.Context, requester *model.Requester) decimal.Decimal {
	return requester.Balance
}

// SendBonus pays a worker a bonus for an assignment, debiting the
// requester's balance. A replayed unique token for the same
// (worker, assignment) pair is refused rather than paid twice.
func (s *AccountService) SendBonus(
	ctx context.Context,
	requester *model.Requester,
	workerExtID, assignmentExtID string,
	amount decimal.Decimal,
	reason, uniqueToken string,
) (*model.BonusPayment, error) {
	if reason == "" {
		return nil, apierr.MissingArgument("Reason")
	}
	if !amount.IsPositive() {
		return nil, apierr.Validation("BonusAmount must be positive")
	}

	var bonus *model.BonusPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.Tx(tx)
		payments := s.payments.Tx(tx)

		assignment, err := s.tasks.Tx(tx).FindAssignmentByExternalID(ctx, assignmentExtID)
		if err != nil {
			return err
		}
		if assignment.Task.RequesterID != requester.ID {
			return apierr.ErrPermissionDenied
		}
		worker, err := accounts.FindWorkerByExternalID(ctx, workerExtID)
		if err != nil {
			return err
		}
		if assignment.WorkerID != worker.ID {
			return apierr.Validation("the assignment does not belong to this worker")
		}

		if uniqueToken != "" {
			inUse, err := payments.BonusTokenInUse(ctx, worker.ID, assignment.ID, uniqueToken)
			if err != nil {
				return err
			}
			if inUse {
				return apierr.ErrDuplicateRequest
			}
		}

		if requester.Balance.LessThan(amount) {
			return apierr.ErrInsufficientFunds
		}
		requester.Balance = requester.Balance.Sub(amount)
		if err := accounts.SaveRequester(ctx, requester); err != nil {
			return err
		}

		bonus = &model.BonusPayment{
			WorkerID:     worker.ID,
			AssignmentID: assignment.ID,
			Amount:       amount,
			Reason:       reason,
			UniqueToken:  uniqueToken,
		}
		return payments.CreateBonus(ctx, bonus)
	})
	if err != nil {
		return nil, err
	}
	log.Info("bonus paid", "assignment", assignmentExtID,
		"worker", workerExtID, "amount", amount.String())
	return bonus, nil
}

// ListBonusPayments lists the bonuses paid for one task or one
// assignment. Exactly one of the two selectors must be supplied.
func (s *AccountService) ListBonusPayments(
	ctx context.Context,
	requester *model.Requester,
	taskExtID, assignmentExtID string,
	offset, limit int,
) ([]model.BonusPayment, error) {
	if (taskExtID == "") == (assignmentExtID == "") {
		return nil, apierr.Validation("provide either HITId or AssignmentId, not both")
	}
	if assignmentExtID != "" {
		assignment, err := s.tasks.FindAssignmentByExternalID(ctx, assignmentExtID)
		if err != nil {
			return nil, err
		}
		if assignment.Task.RequesterID != requester.ID {
			return nil, apierr.ErrPermissionDenied
		}
		return s.payments.ListBonusesForAssignment(ctx, assignment.ID, offset, limit)
	}
	task, err := s.tasks.FindTaskByExternalID(ctx, taskExtID)
	if err != nil {
		return nil, err
	}
	if task.RequesterID != requester.ID {
		return nil, apierr.ErrPermissionDenied
	}
	return s.payments.ListBonusesForTask(ctx, task.ID, offset, limit)
}

// BlockWorker activates a block on the pair, reusing the historical row
// when one exists.
func (s *AccountService) BlockWorker(
	ctx context.Context,
	requester *model.Requester,
	workerExtID, reason string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.Tx(tx)
		worker, err := accounts.FindWorkerByExternalID(ctx, workerExtID)
		if err != nil {
			return err
		}
		block, err := accounts.FindBlock(ctx, worker.ID, requester.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if block == nil {
			block = &model.WorkerBlock{
				WorkerID:    worker.ID,
				RequesterID: requester.ID,
			}
			block.Active = true
			block.Reason = reason
			return accounts.CreateBlock(ctx, block)
		}
		block.Active = true
		block.Reason = reason
		return accounts.SaveBlock(ctx, block)
	})
}

// UnblockWorker deactivates the pair's block. A missing block is a
// documented no-op.
func (s *AccountService) UnblockWorker(
	ctx context.Context,
	requester *model.Requester,
	workerExtID, reason string,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.Tx(tx)
		worker, err := accounts.FindWorkerByExternalID(ctx, workerExtID)
		if err != nil {
			return err
		}
		block, err := accounts.FindBlock(ctx, worker.ID, requester.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		block.Active = false
		block.Reason = reason
		return accounts.SaveBlock(ctx, block)
	})
}

func (s *AccountService) ListWorkerBlocks(
	ctx context.Context,
	requester *model.Requester,
	offset, limit int,
) ([]model.WorkerBlock, error) {
	return s.accounts.ListActiveBlocks(ctx, requester.ID, offset, limit)
}
