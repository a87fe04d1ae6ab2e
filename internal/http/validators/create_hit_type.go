package validators

import (
	apierr "github.com/callendorph/mturkemu/internal/errors"
)

// ValidateCreateHITType checks the fields every HIT type needs before
// the service layer parses the reward amount.
func ValidateCreateHITType(title, description, reward string, assignmentDurationSec int64) error {
	if title == "" {
		return apierr.MissingArgument("Title")
	}
	if description == "" {
		return apierr.MissingArgument("Description")
	}
	if reward == "" {
		return apierr.MissingArgument("Reward")
	}
	if assignmentDurationSec <= 0 {
		return apierr.MissingArgument("AssignmentDurationInSeconds")
	}
	return nil
}
