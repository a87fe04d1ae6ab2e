package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/questions"
)

func TestCreateTask_UniqueTokenDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "owner")
	tt := env.createTaskType(t, requester)

	params := CreateTaskParams{
		LifetimeSec: 3600,
		Question:    externalQuestion,
		UniqueToken: "token-1",
	}
	_, err := env.tasks.CreateTask(context.Background(), requester, tt, params)
	require.NoError(t, err)

	_, err = env.tasks.CreateTask(context.Background(), requester, tt, params)
	assert.ErrorIs(t, err, apierr.ErrDuplicateRequest)
}

func TestAcceptAssignment_CapacityAndStatus(t *testing.T) {
	env := newTestEnv(t)
	w1, _ := env.createAccount(t, "w1")
	w2, _ := env.createAccount(t, "w2")
	w3, _ := env.createAccount(t, "w3")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 2)

	a1, err := env.tasks.AcceptAssignment(context.Background(), w1, task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentAccepted, a1.Status)
	require.NotNil(t, a1.Deadline)
	assert.Equal(t, env.clock.Now().Add(time.Hour), *a1.Deadline)

	// First slot taken, one remains.
	got, stats, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskAssignable, got.Status)
	assert.Equal(t, 1, stats.Available)

	_, err = env.tasks.AcceptAssignment(context.Background(), w2, task.ExternalID)
	require.NoError(t, err)

	got, stats, err = env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskUnassignable, got.Status)
	assert.Zero(t, stats.Available)

	_, err = env.tasks.AcceptAssignment(context.Background(), w3, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrTaskNotAvailable)

	// A worker cannot hold the same task twice.
	_, err = env.tasks.AcceptAssignment(context.Background(), w1, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrAssignmentAlreadyAccepted)
}

func TestReturnAssignment_FreesSlot(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	first, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)

	require.NoError(t, env.tasks.ReturnAssignment(context.Background(), worker, task.ExternalID))

	got, _, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskAssignable, got.Status)

	reloaded, err := env.accountRepo.FindWorkerByExternalID(context.Background(), worker.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ReturnedCount)

	// The returned assignment is disposed, so the worker may try again.
	second, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// A worker with no accepted assignment has nothing to return.
	bystander, _ := env.createAccount(t, "bystander")
	err = env.tasks.ReturnAssignment(context.Background(), bystander, task.ExternalID)
	assert.Error(t, err)
}

func TestApproveReject_DecisionMatrix(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	assignment, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)

	// Approving before submission is refused.
	err = env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "", false)
	assert.ErrorIs(t, err, apierr.ErrAssignmentNotSubmitted)

	submitted, err := env.tasks.SubmitAssignment(context.Background(), worker,
		assignment.ExternalID, questions.Submission{"field": {"value"}})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentSubmitted, submitted.Status)
	require.NotNil(t, submitted.AutoApprove)

	// Oversized feedback is refused before any state change.
	err = env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, strings.Repeat("x", 1025), false)
	assert.Error(t, err)

	// Rejection requires feedback.
	err = env.tasks.RejectAssignment(context.Background(), requester, assignment.ExternalID, "")
	assert.Error(t, err)

	require.NoError(t, env.tasks.RejectAssignment(context.Background(), requester,
		assignment.ExternalID, "does not follow instructions"))

	// A plain approve after rejection is refused; override flips it.
	err = env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "", false)
	assert.ErrorIs(t, err, apierr.ErrAssignmentAlreadyRejected)

	require.NoError(t, env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "second look", true))

	// Decisions are final once approved.
	err = env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "", false)
	assert.ErrorIs(t, err, apierr.ErrAssignmentAlreadyApproved)
	err = env.tasks.RejectAssignment(context.Background(), requester,
		assignment.ExternalID, "no")
	assert.ErrorIs(t, err, apierr.ErrAssignmentAlreadyApproved)
}

func TestAcceptAssignment_Prerequisites(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Accuracy", Description: "d"})
	require.NoError(t, err)

	tt := env.createTaskType(t, requester, RequirementParams{
		QualificationExtID: qual.ExternalID,
		Comparator:         string(model.CmpGreaterThanOrEqualTo),
		IntValues:          []int{50},
	})
	task := env.createTask(t, requester, tt, 1)

	_, err = env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrPrerequisitesNotMet)

	_, err = env.quals.AssociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, 40)
	require.NoError(t, err)
	_, err = env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrPrerequisitesNotMet)

	_, err = env.quals.AssociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, 60)
	require.NoError(t, err)
	_, err = env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	assert.NoError(t, err)
}

func TestAcceptAssignment_BlockedWorker(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	require.NoError(t, env.accounts.BlockWorker(context.Background(), requester,
		worker.ExternalID, "spam"))

	_, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrWorkerBlocked)

	require.NoError(t, env.accounts.UnblockWorker(context.Background(), requester,
		worker.ExternalID, "appeal"))

	_, err = env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	assert.NoError(t, err)
}

func TestTaskExpiry_FoldsIntoReviewable(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	env.clock.Advance(2 * time.Hour)

	got, _, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskReviewable, got.Status)

	_, err = env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrTaskNotAvailable)
}

func TestUpdateExpiration(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	// Below the minimum increment.
	err := env.tasks.UpdateExpiration(context.Background(), requester, task.ExternalID,
		task.Expires.Add(30*time.Second))
	assert.ErrorIs(t, err, apierr.ErrInvalidExpirationIncrement)

	// Beyond a year.
	err = env.tasks.UpdateExpiration(context.Background(), requester, task.ExternalID,
		task.Expires.Add(366*24*time.Hour))
	assert.ErrorIs(t, err, apierr.ErrInvalidExpirationIncrement)

	require.NoError(t, env.tasks.UpdateExpiration(context.Background(), requester,
		task.ExternalID, task.Expires.Add(2*time.Hour)))

	// A past time is the early-expiry short circuit.
	require.NoError(t, env.tasks.UpdateExpiration(context.Background(), requester,
		task.ExternalID, env.clock.Now().Add(-time.Minute)))
	got, _, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskReviewable, got.Status)
}

func TestCreateAdditionalAssignments(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	assignment, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)
	_, err = env.tasks.SubmitAssignment(context.Background(), worker, assignment.ExternalID,
		questions.Submission{"f": {"v"}})
	require.NoError(t, err)
	require.NoError(t, env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "", false))

	got, _, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskReviewable, got.Status)

	// Capacity added to an unexpired task reopens it.
	require.NoError(t, env.tasks.CreateAdditionalAssignments(context.Background(), requester,
		task.ExternalID, 1, "add-1"))
	got, stats, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskAssignable, got.Status)
	assert.Equal(t, 1, stats.Available)

	// Replaying the unique token is refused.
	err = env.tasks.CreateAdditionalAssignments(context.Background(), requester,
		task.ExternalID, 1, "add-1")
	assert.ErrorIs(t, err, apierr.ErrDuplicateRequest)
}

func TestCreateAdditionalAssignments_TenCrossing(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "owner")
	tt := env.createTaskType(t, requester)

	small := env.createTask(t, requester, tt, 5)
	err := env.tasks.CreateAdditionalAssignments(context.Background(), requester,
		small.ExternalID, 5, "")
	assert.ErrorIs(t, err, apierr.ErrInvalidAssignmentIncrease)

	// Staying below ten is fine.
	require.NoError(t, env.tasks.CreateAdditionalAssignments(context.Background(), requester,
		small.ExternalID, 4, ""))

	// Starting at ten or more there is no ceiling to cross.
	big := env.createTask(t, requester, tt, 10)
	assert.NoError(t, env.tasks.CreateAdditionalAssignments(context.Background(), requester,
		big.ExternalID, 5, ""))
}

func TestDeleteTask_RequiresAllCompleted(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 2)

	// Assignable tasks cannot be deleted.
	err := env.tasks.DeleteTask(context.Background(), requester, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrTaskNotDeletable)

	assignment, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)
	_, err = env.tasks.SubmitAssignment(context.Background(), worker, assignment.ExternalID,
		questions.Submission{"f": {"v"}})
	require.NoError(t, err)
	require.NoError(t, env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "", false))

	// Expire the second slot away and fold the status in. One of two
	// demanded assignments completed still blocks deletion.
	env.clock.Advance(2 * time.Hour)
	got, _, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	require.Equal(t, model.TaskReviewable, got.Status)

	err = env.tasks.DeleteTask(context.Background(), requester, task.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrTaskNotDeletable)
}

func TestUpdateReviewStatus_Toggle(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "owner")
	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)

	// Move to Reviewable by expiring.
	require.NoError(t, env.tasks.UpdateExpiration(context.Background(), requester,
		task.ExternalID, env.clock.Now().Add(-time.Minute)))

	require.NoError(t, env.tasks.UpdateReviewStatus(context.Background(), requester,
		task.ExternalID, false))
	got, _, err := env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskReviewing, got.Status)

	require.NoError(t, env.tasks.UpdateReviewStatus(context.Background(), requester,
		task.ExternalID, true))
	got, _, err = env.tasks.GetTask(context.Background(), task.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskReviewable, got.Status)
}

func TestSendBonus(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	tt := env.createTaskType(t, requester)
	task := env.createTask(t, requester, tt, 1)
	assignment, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)
	_, err = env.tasks.SubmitAssignment(context.Background(), worker, assignment.ExternalID,
		questions.Submission{"f": {"v"}})
	require.NoError(t, err)

	amount := decimal.RequireFromString("2.50")
	_, err = env.accounts.SendBonus(context.Background(), requester, worker.ExternalID,
		assignment.ExternalID, amount, "great work", "bonus-1")
	require.NoError(t, err)

	// The requester's balance reflects the spend.
	reloaded, err := env.accountRepo.FindRequesterByExternalID(context.Background(),
		requester.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "97.50", reloaded.Balance.StringFixed(2))

	// Token replay is refused.
	_, err = env.accounts.SendBonus(context.Background(), requester, worker.ExternalID,
		assignment.ExternalID, amount, "great work", "bonus-1")
	assert.ErrorIs(t, err, apierr.ErrDuplicateRequest)

	// Spending beyond the balance is refused.
	_, err = env.accounts.SendBonus(context.Background(), requester, worker.ExternalID,
		assignment.ExternalID, decimal.RequireFromString("1000.00"), "too much", "")
	assert.ErrorIs(t, err, apierr.ErrInsufficientFunds)

	bonuses, err := env.accounts.ListBonusPayments(context.Background(), requester,
		task.ExternalID, "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, bonuses, 1)
}
