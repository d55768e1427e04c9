package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate     = errors.New("invalid coordinate")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrDonorNotEligible      = errors.New("donor not eligible")
	ErrRecordNotFound        = errors.New("record not found")
	ErrInvalidDonationVolume = errors.New("donation volume must be positive")

	ErrDonorNotFound   = fmt.Errorf("donor: %w", ErrRecordNotFound)
	ErrRequestNotFound = fmt.Errorf("emergency request: %w", ErrRecordNotFound)

	// ErrStatusConflict is returned by a store when a compare-and-swap on a
	// request's status loses against a concurrent writer.
	ErrStatusConflict = errors.New("request status changed concurrently")
	// ErrDonorConflict is the donor counterpart, raised when the stored
	// version moved on since the donor was read.
	ErrDonorConflict  = errors.New("donor changed concurrently")
	ErrNoCandidates   = errors.New("no candidate donors supplied")
	ErrInvalidRequest = errors.New("invalid emergency request")
	ErrInvalidDonor   = errors.New("invalid donor")
)

type InvalidTransitionError struct {
	From      RequestStatus
	Attempted RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move request from %s to %s", e.From, e.Attempted)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// UserMessage is the text shown to whoever attempted the change.
func (e *InvalidTransitionError) UserMessage() string {
	return fmt.Sprintf("this request is %s", e.From.Label())
}

type NotEligibleReason string

const (
	ReasonMissing          NotEligibleReason = "missing"
	ReasonNotVerified      NotEligibleReason = "not_verified"
	ReasonNotAvailable     NotEligibleReason = "not_available"
	ReasonCoolingDown      NotEligibleReason = "cooling_down"
	ReasonNoLocation       NotEligibleReason = "no_location"
	ReasonIncompatibleType NotEligibleReason = "incompatible_blood_type"
	ReasonOutOfRange       NotEligibleReason = "out_of_range"
	ReasonRequestClosed    NotEligibleReason = "request_closed"
)

type NotEligibleError struct {
	DonorID string
	Reason  NotEligibleReason
	Detail  string
}

func (e *NotEligibleError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("donor %s not eligible: %s", e.DonorID, e.Reason)
	}
	return fmt.Sprintf("donor %s not eligible: %s (%s)", e.DonorID, e.Reason, e.Detail)
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrDonorNotEligible
}
