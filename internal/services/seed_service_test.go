package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/callendorph/mturkemu/internal/models"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

func TestSeedAccount(t *testing.T) {
	env := newTestEnv(t)
	seed := NewSeedService(env.accounts, env.quals, env.accountRepo, env.qualRepo)

	worker, requester, credential, err := seed.SeedAccount(context.Background(), SeedParams{
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "Alice",
		Balance:  decimal.RequireFromString("25.00"),
		Country:  "DE",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, credential.AccessKey)
	assert.Equal(t, "25.00", requester.Balance.StringFixed(2))

	// The worker starts with the three system qualifications.
	grants, err := env.quals.ListWorkerGrants(context.Background(), worker, 0, 10)
	require.NoError(t, err)
	require.Len(t, grants, 3)

	byName := map[string]model.QualificationGrant{}
	for _, g := range grants {
		byName[g.Qualification.Name] = g
	}
	require.Contains(t, byName, QualNameLocale)
	require.Contains(t, byName, QualNamePercentApproved)
	require.Contains(t, byName, QualNameNumberApproved)
	assert.Equal(t, "DE", byName[QualNameLocale].Locale.Country)
	assert.Equal(t, 100, byName[QualNamePercentApproved].Value)
	assert.Equal(t, 0, byName[QualNameNumberApproved].Value)

	// A second seed reuses the system owner and its types.
	worker2, _, _, err := seed.SeedAccount(context.Background(), SeedParams{
		Username: "bob",
		Balance:  decimal.Zero,
	})
	require.NoError(t, err)
	grants2, err := env.quals.ListWorkerGrants(context.Background(), worker2, 0, 10)
	require.NoError(t, err)
	require.Len(t, grants2, 3)
	for _, g := range grants2 {
		if g.Qualification.Name == QualNameLocale {
			assert.Equal(t, "US", g.Locale.Country)
		}
	}

	types, err := env.qualRepo.ListQualTypes(context.Background(), repository.QualTypeFilter{}, 0, 100)
	require.NoError(t, err)
	names := map[string]int{}
	for _, q := range types {
		names[q.Name]++
	}
	assert.Equal(t, 1, names[QualNameLocale])
	assert.Equal(t, 1, names[QualNamePercentApproved])
	assert.Equal(t, 1, names[QualNameNumberApproved])
}
