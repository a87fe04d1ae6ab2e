package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	env := newTestEnv(t)

	worker, requester, credential, err := env.accounts.CreateAccount(
		context.Background(), "alice", "alice@example.com", "Alice",
		decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	assert.NotEmpty(t, worker.ExternalID)
	assert.NotEmpty(t, requester.ExternalID)
	assert.NotEmpty(t, credential.AccessKey)
	assert.NotEmpty(t, credential.SecretKey)
	assert.Equal(t, "50.00", requester.Balance.StringFixed(2))

	_, _, _, err = env.accounts.CreateAccount(
		context.Background(), "", "x@example.com", "X", decimal.Zero)
	assert.Error(t, err)
}

func TestWorkerBlocks(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")
	_, stranger := env.createAccount(t, "stranger")

	require.NoError(t, env.accounts.BlockWorker(context.Background(), requester,
		worker.ExternalID, "low quality"))

	blocks, err := env.accounts.ListWorkerBlocks(context.Background(), requester, 0, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "low quality", blocks[0].Reason)

	// Blocks are scoped to the requester who placed them.
	blocks, err = env.accounts.ListWorkerBlocks(context.Background(), stranger, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	// Re-blocking reuses the row rather than piling up duplicates.
	require.NoError(t, env.accounts.BlockWorker(context.Background(), requester,
		worker.ExternalID, "still low quality"))
	blocks, err = env.accounts.ListWorkerBlocks(context.Background(), requester, 0, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "still low quality", blocks[0].Reason)

	require.NoError(t, env.accounts.UnblockWorker(context.Background(), requester,
		worker.ExternalID, "appeal accepted"))
	blocks, err = env.accounts.ListWorkerBlocks(context.Background(), requester, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	// Unblocking a worker who was never blocked is a quiet no-op.
	assert.NoError(t, env.accounts.UnblockWorker(context.Background(), requester,
		worker.ExternalID, ""))
}

func TestListBonusPayments_SelectorRules(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "owner")

	_, err := env.accounts.ListBonusPayments(context.Background(), requester, "", "", 0, 10)
	assert.Error(t, err)

	_, err = env.accounts.ListBonusPayments(context.Background(), requester, "hit", "asgn", 0, 10)
	assert.Error(t, err)
}
