// Package progression updates a donor's cumulative statistics after a
// completed donation.
package progression

import (
	"fmt"
	"time"

	"bloodlink/pkg/types"
)

const (
	// Cooldown is the minimum gap between two donations by the same donor.
	Cooldown = 56 * 24 * time.Hour

	// MlPerLife is the volume counted as one life saved.
	MlPerLife = 150

	silverThreshold = 10
	goldThreshold   = 20
)

// BadgeFor derives the badge tier from a donation count. Platinum is never
// awarded.
func BadgeFor(totalDonations int) types.Badge {
	switch {
	case totalDonations >= goldThreshold:
		return types.BadgeGold
	case totalDonations >= silverThreshold:
		return types.BadgeSilver
	default:
		return types.BadgeBronze
	}
}

func NextEligibleAt(lastDonation time.Time) time.Time {
	return lastDonation.Add(Cooldown)
}

// RecordDonation returns donor with one more completed donation applied. The
// input is passed by value and never modified.
func RecordDonation(donor types.Donor, volumeMl int, donatedAt time.Time) (types.Donor, error) {
	if volumeMl <= 0 {
		return donor, fmt.Errorf("%d ml: %w", volumeMl, types.ErrInvalidDonationVolume)
	}

	donatedAt = donatedAt.UTC()
	next := NextEligibleAt(donatedAt)

	donor.TotalDonations++
	donor.VolumeDonatedMl += volumeMl
	donor.LivesSaved += volumeMl / MlPerLife
	donor.LastDonationAt = &donatedAt
	donor.NextEligibleAt = &next
	donor.Badge = BadgeFor(donor.TotalDonations)

	return donor, nil
}
