package types

import (
	"fmt"
	"time"
)

type Urgency string

const (
	UrgencyNormal          Urgency = "normal"
	UrgencyUrgent          Urgency = "urgent"
	UrgencyCritical        Urgency = "critical"
	UrgencyLifeThreatening Urgency = "life_threatening"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyCritical, UrgencyLifeThreatening:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestStatusActive      RequestStatus = "active"
	RequestStatusMatching    RequestStatus = "matching"
	RequestStatusDonorsFound RequestStatus = "donors_found"
	RequestStatusFulfilled   RequestStatus = "fulfilled"
	RequestStatusCancelled   RequestStatus = "cancelled"
	RequestStatusExpired     RequestStatus = "expired"
)

// Terminal reports whether no further transitions are possible from s.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusFulfilled, RequestStatusCancelled, RequestStatusExpired:
		return true
	}
	return false
}

// Open is the set of statuses a request can still be matched or expired from.
func (s RequestStatus) Open() bool {
	switch s {
	case RequestStatusActive, RequestStatusMatching, RequestStatusDonorsFound:
		return true
	}
	return false
}

func (s RequestStatus) Label() string {
	switch s {
	case RequestStatusActive:
		return "active"
	case RequestStatusMatching:
		return "being matched"
	case RequestStatusDonorsFound:
		return "matched with donors"
	case RequestStatusFulfilled:
		return "already fulfilled"
	case RequestStatusCancelled:
		return "cancelled"
	case RequestStatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("in unknown status %q", string(s))
	}
}

type EmergencyRequest struct {
	ID           string `db:"id" json:"id"`
	RequesterID  string `db:"requester_id" json:"requester_id"`
	PatientName  string `db:"patient_name" json:"patient_name"`
	HospitalName string `db:"hospital_name" json:"hospital_name"`

	BloodType   BloodType `db:"blood_type" json:"blood_type"`
	UnitsNeeded int       `db:"units_needed" json:"units_needed"`
	Urgency     Urgency   `db:"urgency" json:"urgency"`
	Latitude    float64   `db:"latitude" json:"latitude"`
	Longitude   float64   `db:"longitude" json:"longitude"`

	Status          RequestStatus `db:"status" json:"status"`
	MatchedDonorIDs []string      `db:"matched_donor_ids" json:"matched_donor_ids"`
	CancelReason    *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`

	FulfilledBy       *string    `db:"fulfilled_by" json:"fulfilled_by,omitempty"`
	FulfilledVolumeMl *int       `db:"fulfilled_volume_ml" json:"fulfilled_volume_ml,omitempty"`
	FulfilledAt       *time.Time `db:"fulfilled_at" json:"fulfilled_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (r *EmergencyRequest) Location() GeoPoint {
	return GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Clone returns a copy that shares no slices with r.
func (r *EmergencyRequest) Clone() *EmergencyRequest {
	if r == nil {
		return nil
	}
	out := *r
	if r.MatchedDonorIDs != nil {
		out.MatchedDonorIDs = append([]string(nil), r.MatchedDonorIDs...)
	}
	return &out
}
