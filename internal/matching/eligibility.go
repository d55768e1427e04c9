package matching

import (
	"fmt"
	"time"

	"bloodlink/internal/blood"
	"bloodlink/internal/geo"
	"bloodlink/pkg/types"
)

// IsEligible reports whether a donor can be offered as a candidate at the given
// time. Missing or unknown data always counts against the donor.
func IsEligible(donor *types.Donor, at time.Time) bool {
	return checkDonor(donor, at) == nil
}

// Explain returns nil when donor could serve request at the given time and
// radius, otherwise a *types.NotEligibleError naming the first failed check.
// A non-positive radius skips the distance check.
func Explain(donor *types.Donor, request *types.EmergencyRequest, maxRadiusKm float64, at time.Time) error {
	if err := checkDonor(donor, at); err != nil {
		return err
	}

	if request == nil || !request.Status.Open() || at.After(request.ExpiresAt) {
		return notEligible(donor, types.ReasonRequestClosed, "")
	}

	if !blood.CanDonateTo(donor.BloodType, request.BloodType) {
		return notEligible(donor, types.ReasonIncompatibleType, fmt.Sprintf("%s cannot donate to %s", donor.BloodType, request.BloodType))
	}

	loc, _ := donor.Location()
	distance, err := geo.Between(request.Location(), loc)
	if err != nil {
		return err
	}

	if maxRadiusKm > 0 && !(distance <= maxRadiusKm) {
		return notEligible(donor, types.ReasonOutOfRange, fmt.Sprintf("%.1f km away, limit %.1f km", distance, maxRadiusKm))
	}

	return nil
}

func checkDonor(donor *types.Donor, at time.Time) error {
	if donor == nil {
		return notEligible(nil, types.ReasonMissing, "")
	}

	if donor.Verification != types.VerificationVerified {
		return notEligible(donor, types.ReasonNotVerified, string(donor.Verification))
	}

	if donor.Availability != types.AvailabilityAvailable {
		return notEligible(donor, types.ReasonNotAvailable, string(donor.Availability))
	}

	if donor.NextEligibleAt != nil && at.Before(*donor.NextEligibleAt) {
		return notEligible(donor, types.ReasonCoolingDown, "until "+donor.NextEligibleAt.UTC().Format(time.RFC3339))
	}

	loc, ok := donor.Location()
	if !ok || geo.ValidateCoordinate(loc.Latitude, loc.Longitude) != nil {
		return notEligible(donor, types.ReasonNoLocation, "")
	}

	return nil
}

func notEligible(donor *types.Donor, reason types.NotEligibleReason, detail string) error {
	e := &types.NotEligibleError{Reason: reason, Detail: detail}
	if donor != nil {
		e.DonorID = donor.ID
	}
	return e
}
