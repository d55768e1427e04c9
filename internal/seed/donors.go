package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink/internal/progression"
	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type fakeDonorSeed struct {
	ID             string
	UserID         string
	Name           string
	BloodType      types.BloodType
	Latitude       float64
	Longitude      float64
	Availability   types.Availability
	Verification   types.Verification
	TotalDonations int
	DaysSinceLast  int
}

// Spread around Lagos so a request at Lagos Island General sees a mix of
// near, far, ineligible and incompatible donors.
var fakeDonors = []fakeDonorSeed{
	{ID: "seed-donor-0001", UserID: "seed-user-0001", Name: "Adaeze Okafor", BloodType: types.BloodTypeONeg, Latitude: 6.4550, Longitude: 3.3941, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified, TotalDonations: 12, DaysSinceLast: 90},
	{ID: "seed-donor-0002", UserID: "seed-user-0002", Name: "Tunde Bakare", BloodType: types.BloodTypeOPos, Latitude: 6.5244, Longitude: 3.3792, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified, TotalDonations: 3, DaysSinceLast: 70},
	{ID: "seed-donor-0003", UserID: "seed-user-0003", Name: "Chiamaka Eze", BloodType: types.BloodTypeAPos, Latitude: 6.6018, Longitude: 3.3515, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified, TotalDonations: 22, DaysSinceLast: 120},
	{ID: "seed-donor-0004", UserID: "seed-user-0004", Name: "Ibrahim Musa", BloodType: types.BloodTypeBNeg, Latitude: 6.4654, Longitude: 3.4064, Availability: types.AvailabilityBusy, Verification: types.VerificationVerified, TotalDonations: 5, DaysSinceLast: 200},
	{ID: "seed-donor-0005", UserID: "seed-user-0005", Name: "Funke Adeyemi", BloodType: types.BloodTypeABPos, Latitude: 6.4281, Longitude: 3.4219, Availability: types.AvailabilityAvailable, Verification: types.VerificationPending},
	{ID: "seed-donor-0006", UserID: "seed-user-0006", Name: "Emeka Nwosu", BloodType: types.BloodTypeONeg, Latitude: 6.5965, Longitude: 3.3421, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified, TotalDonations: 9, DaysSinceLast: 20},
	{ID: "seed-donor-0007", UserID: "seed-user-0007", Name: "Zainab Bello", BloodType: types.BloodTypeANeg, Latitude: 7.3775, Longitude: 3.9470, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified, TotalDonations: 1, DaysSinceLast: 365},
	{ID: "seed-donor-0008", UserID: "seed-user-0008", Name: "Kelechi Obi", BloodType: types.BloodTypeBPos, Latitude: 6.5355, Longitude: 3.3087, Availability: types.AvailabilityTemporarilyUnavailable, Verification: types.VerificationVerified, TotalDonations: 14, DaysSinceLast: 60},
	{ID: "seed-donor-0009", UserID: "seed-user-0009", Name: "Ngozi Umeh", BloodType: types.BloodTypeABNeg, Latitude: 6.4474, Longitude: 3.4723, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified},
	{ID: "seed-donor-0010", UserID: "seed-user-0010", Name: "Segun Alabi", BloodType: types.BloodTypeOPos, Availability: types.AvailabilityAvailable, Verification: types.VerificationVerified, TotalDonations: 2, DaysSinceLast: 400},
}

// SeedDonors inserts the demo population. Donors that already exist are left
// alone, so the command can be rerun.
func SeedDonors(ctx context.Context, logger *logrus.Logger, s store.RecordStore, now time.Time) (int, error) {
	seeded := 0
	for _, fake := range fakeDonors {
		_, err := s.Donor(ctx, fake.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrRecordNotFound) {
			return seeded, fmt.Errorf("failed to fetch seed donor %s: %w", fake.ID, err)
		}

		donor := fake.donor(now)
		if err := s.CreateDonor(ctx, donor); err != nil {
			return seeded, fmt.Errorf("failed to create seed donor %s: %w", fake.ID, err)
		}

		seeded++
		logger.WithField("donor_id", donor.ID).WithField("blood_type", donor.BloodType).Debug("seeded donor")
	}

	return seeded, nil
}

func (f fakeDonorSeed) donor(now time.Time) *types.Donor {
	donor := &types.Donor{
		ID:             f.ID,
		UserID:         f.UserID,
		Name:           f.Name,
		BloodType:      f.BloodType,
		Availability:   f.Availability,
		Verification:   f.Verification,
		TotalDonations: f.TotalDonations,
		Badge:          progression.BadgeFor(f.TotalDonations),
	}

	if f.Latitude != 0 || f.Longitude != 0 {
		donor.SetLocation(types.GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude})
	}

	if f.TotalDonations > 0 {
		donor.VolumeDonatedMl = f.TotalDonations * 450
		donor.LivesSaved = donor.VolumeDonatedMl / progression.MlPerLife

		last := now.UTC().AddDate(0, 0, -f.DaysSinceLast)
		donor.LastDonationAt = utils.TimePtr(last)
		donor.NextEligibleAt = utils.TimePtr(progression.NextEligibleAt(last))
	}

	return donor
}
