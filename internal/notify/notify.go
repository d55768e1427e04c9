// Package notify turns lifecycle events into notification intents. Delivery
// (push, email, sms) is handled by whatever consumes the notifications
// collection.
package notify

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}

// StoreNotifier persists intents through the record store.
type StoreNotifier struct {
	store store.RecordStore
	now   func() time.Time
}

func NewStoreNotifier(s store.RecordStore) *StoreNotifier {
	return &StoreNotifier{store: s, now: time.Now}
}

// Notify drops intents without a recipient.
func (n *StoreNotifier) Notify(ctx context.Context, note types.Notification) error {
	if note.UserID == "" {
		return nil
	}

	if note.ID == "" {
		note.ID = utils.NanoID()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = n.now().UTC()
	}

	return utils.ErrorWrapOrNil(n.store.CreateNotification(ctx, &note), "failed to create notification")
}

func StatusChanged(req *types.EmergencyRequest) types.Notification {
	return types.Notification{
		UserID:          req.RequesterID,
		Kind:            types.NotificationKindStatusChange,
		Title:           "Request update",
		Message:         fmt.Sprintf("Your %s request at %s is now %s.", req.BloodType, req.HospitalName, req.Status.Label()),
		RelatedEntityID: req.ID,
	}
}

func DonorMatched(req *types.EmergencyRequest, donor *types.Donor) types.Notification {
	return types.Notification{
		UserID:          donor.UserID,
		Kind:            types.NotificationKindDonorMatch,
		Title:           "Urgent: your blood type is needed",
		Message:         fmt.Sprintf("%s needs %d unit(s) of %s.", req.HospitalName, req.UnitsNeeded, req.BloodType),
		RelatedEntityID: req.ID,
	}
}

func Fulfilled(req *types.EmergencyRequest) types.Notification {
	return types.Notification{
		UserID:          req.RequesterID,
		Kind:            types.NotificationKindFulfilled,
		Title:           "Request fulfilled",
		Message:         fmt.Sprintf("Your %s request at %s has been fulfilled.", req.BloodType, req.HospitalName),
		RelatedEntityID: req.ID,
	}
}

func DonationThanks(req *types.EmergencyRequest, donor *types.Donor) types.Notification {
	return types.Notification{
		UserID:          donor.UserID,
		Kind:            types.NotificationKindFulfilled,
		Title:           "Thank you for donating",
		Message:         fmt.Sprintf("You have now donated %d time(s) and helped save an estimated %d lives.", donor.TotalDonations, donor.LivesSaved),
		RelatedEntityID: req.ID,
	}
}

func Cancelled(req *types.EmergencyRequest, userID string) types.Notification {
	message := fmt.Sprintf("The %s request at %s was cancelled.", req.BloodType, req.HospitalName)
	if req.CancelReason != nil {
		message += " Reason: " + *req.CancelReason
	}

	return types.Notification{
		UserID:          userID,
		Kind:            types.NotificationKindCancelled,
		Title:           "Request cancelled",
		Message:         message,
		RelatedEntityID: req.ID,
	}
}

func Expired(req *types.EmergencyRequest) types.Notification {
	return types.Notification{
		UserID:          req.RequesterID,
		Kind:            types.NotificationKindExpired,
		Title:           "Request expired",
		Message:         fmt.Sprintf("Your %s request at %s expired before it was fulfilled.", req.BloodType, req.HospitalName),
		RelatedEntityID: req.ID,
	}
}
