package types

import "time"

type Availability string

const (
	AvailabilityAvailable              Availability = "available"
	AvailabilityUnavailable            Availability = "unavailable"
	AvailabilityBusy                   Availability = "busy"
	AvailabilityTemporarilyUnavailable Availability = "temporarily_unavailable"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityUnavailable, AvailabilityBusy, AvailabilityTemporarilyUnavailable:
		return true
	}
	return false
}

type Verification string

const (
	VerificationUnverified Verification = "unverified"
	VerificationPending    Verification = "pending"
	VerificationVerified   Verification = "verified"
	VerificationRejected   Verification = "rejected"
)

func (v Verification) Valid() bool {
	switch v {
	case VerificationUnverified, VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

type Badge string

const (
	BadgeBronze Badge = "bronze"
	BadgeSilver Badge = "silver"
	BadgeGold   Badge = "gold"
	// BadgePlatinum is part of the profile vocabulary but no progression rule awards it.
	BadgePlatinum Badge = "platinum"
)

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Donor struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`

	BloodType BloodType `db:"blood_type" json:"blood_type"`
	Latitude  *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64  `db:"longitude" json:"longitude,omitempty"`

	Availability Availability `db:"availability" json:"availability"`
	Verification Verification `db:"verification" json:"verification"`

	TotalDonations  int        `db:"total_donations" json:"total_donations"`
	VolumeDonatedMl int        `db:"volume_donated_ml" json:"volume_donated_ml"`
	LivesSaved      int        `db:"lives_saved" json:"lives_saved"`
	LastDonationAt  *time.Time `db:"last_donation_at" json:"last_donation_at,omitempty"`
	NextEligibleAt  *time.Time `db:"next_eligible_at" json:"next_eligible_at,omitempty"`
	Badge           Badge      `db:"badge" json:"badge"`

	// Version is bumped on every update and guards concurrent writers.
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location reports the donor's point, or false when either coordinate is missing.
func (d *Donor) Location() (GeoPoint, bool) {
	if d == nil || d.Latitude == nil || d.Longitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Latitude: *d.Latitude, Longitude: *d.Longitude}, true
}

func (d *Donor) SetLocation(p GeoPoint) {
	lat, lon := p.Latitude, p.Longitude
	d.Latitude = &lat
	d.Longitude = &lon
}
