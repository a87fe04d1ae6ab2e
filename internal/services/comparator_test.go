package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/callendorph/mturkemu/internal/models"
)

func intReq(cmp model.Comparator, vals ...int) *model.QualificationRequirement {
	return &model.QualificationRequirement{
		Comparator: cmp,
		IntValues:  model.EncodeIntValues(vals),
	}
}

func localeReq(cmp model.Comparator, locales ...model.Locale) *model.QualificationRequirement {
	return &model.QualificationRequirement{
		Comparator:   cmp,
		LocaleValues: model.EncodeLocaleValues(locales),
	}
}

func grantWith(value int) *model.QualificationGrant {
	return &model.QualificationGrant{Value: value, Active: true}
}

func TestEvaluateRequirement_NilGrant(t *testing.T) {
	ok, err := EvaluateRequirement(intReq(model.CmpDoesNotExist), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, cmp := range []model.Comparator{
		model.CmpExists, model.CmpGreaterThan, model.CmpEqualTo, model.CmpIn,
	} {
		ok, err := EvaluateRequirement(intReq(cmp, 5), nil)
		require.NoError(t, err)
		assert.False(t, ok, "comparator %s should fail without a grant", cmp)
	}
}

func TestEvaluateRequirement_Ordered(t *testing.T) {
	cases := []struct {
		cmp    model.Comparator
		value  int
		expect bool
	}{
		{model.CmpLessThan, 4, true},
		{model.CmpLessThan, 5, false},
		{model.CmpLessThanOrEqualTo, 5, true},
		{model.CmpLessThanOrEqualTo, 6, false},
		{model.CmpGreaterThan, 6, true},
		{model.CmpGreaterThan, 5, false},
		{model.CmpGreaterThanOrEqualTo, 5, true},
		{model.CmpGreaterThanOrEqualTo, 4, false},
	}
	for _, tc := range cases {
		ok, err := EvaluateRequirement(intReq(tc.cmp, 5), grantWith(tc.value))
		require.NoError(t, err)
		assert.Equal(t, tc.expect, ok, "%s with value %d", tc.cmp, tc.value)
	}
}

func TestEvaluateRequirement_OrderedWithoutValues(t *testing.T) {
	_, err := EvaluateRequirement(intReq(model.CmpGreaterThan), grantWith(5))
	assert.Error(t, err)
}

func TestEvaluateRequirement_EqualityAndMembership(t *testing.T) {
	ok, err := EvaluateRequirement(intReq(model.CmpEqualTo, 7), grantWith(7))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateRequirement(intReq(model.CmpNotEqualTo, 7), grantWith(7))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvaluateRequirement(intReq(model.CmpIn, 1, 2, 3), grantWith(2))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateRequirement(intReq(model.CmpNotIn, 1, 2, 3), grantWith(4))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRequirement_Locales(t *testing.T) {
	us := model.Locale{Country: "US"}
	usWA := model.Locale{Country: "US", Subdivision: "WA"}
	gb := model.Locale{Country: "GB"}

	grant := &model.QualificationGrant{Active: true, Locale: usWA}

	// A country-only requirement covers every subdivision.
	ok, err := EvaluateRequirement(localeReq(model.CmpEqualTo, us), grant)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateRequirement(localeReq(model.CmpEqualTo, gb), grant)
	require.NoError(t, err)
	assert.False(t, ok)

	// Subdivision requirements match exactly.
	ok, err = EvaluateRequirement(localeReq(model.CmpIn, gb, usWA), grant)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateRequirement(localeReq(model.CmpNotIn, gb), grant)
	require.NoError(t, err)
	assert.True(t, ok)
}
