package services

import (
	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
)

// EvaluateRequirement decides whether a worker's grant satisfies a
// qualification requirement. A nil grant fails every comparator except
// DoesNotExist, which is the only comparator satisfied by absence.
func EvaluateRequirement(req *model.QualificationRequirement, grant *model.QualificationGrant) (bool, error) {
	if grant == nil {
		return req.Comparator == model.CmpDoesNotExist, nil
	}

	ints := req.IntList()
	locales := req.LocaleList()

	switch req.Comparator {
	case model.CmpExists:
		return true, nil
	case model.CmpDoesNotExist:
		return false, nil

	case model.CmpLessThan, model.CmpLessThanOrEqualTo,
		model.CmpGreaterThan, model.CmpGreaterThanOrEqualTo:
		if len(ints) == 0 {
			return false, apierr.ErrInvalidRequirement
		}
		return compareOrdered(req.Comparator, grant.Value, ints[0]), nil

	case model.CmpEqualTo, model.CmpNotEqualTo:
		equal, err := equalTo(grant, ints, locales)
		if err != nil {
			return false, err
		}
		if req.Comparator == model.CmpNotEqualTo {
			return !equal, nil
		}
		return equal, nil

	case model.CmpIn, model.CmpNotIn:
		member, err := inSet(grant, ints, locales)
		if err != nil {
			return false, err
		}
		if req.Comparator == model.CmpNotIn {
			return !member, nil
		}
		return member, nil
	}

	return false, apierr.ErrInvalidRequirement
}

func compareOrdered(cmp model.Comparator, value, configured int) bool {
	switch cmp {
	case model.CmpLessThan:
		return value < configured
	case model.CmpLessThanOrEqualTo:
		return value <= configured
	case model.CmpGreaterThan:
		return value > configured
	case model.CmpGreaterThanOrEqualTo:
		return value >= configured
	}
	return false
}

func equalTo(grant *model.QualificationGrant, ints []int, locales []model.Locale) (bool, error) {
	if len(ints) > 0 {
		return grant.Value == ints[0], nil
	}
	if len(locales) > 0 {
		return localeMatches(grant.Locale, locales[0]), nil
	}
	return false, apierr.ErrInvalidRequirement
}

func inSet(grant *model.QualificationGrant, ints []int, locales []model.Locale) (bool, error) {
	if len(ints) > 0 {
		for _, v := range ints {
			if grant.Value == v {
				return true, nil
			}
		}
		return false, nil
	}
	if len(locales) > 0 {
		for _, l := range locales {
			if localeMatches(grant.Locale, l) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, apierr.ErrInvalidRequirement
}

// localeMatches treats a configured country-only locale as covering every
// subdivision of that country.
func localeMatches(granted, configured model.Locale) bool {
	if granted.Country != configured.Country {
		return false
	}
	if configured.Subdivision == "" {
		return true
	}
	return granted.Subdivision == configured.Subdivision
}
