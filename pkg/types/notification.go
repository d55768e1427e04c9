package types

import "time"

type NotificationKind string

const (
	NotificationKindStatusChange NotificationKind = "status_change"
	NotificationKindDonorMatch   NotificationKind = "donor_match"
	NotificationKindFulfilled    NotificationKind = "fulfilled"
	NotificationKindCancelled    NotificationKind = "cancelled"
	NotificationKindExpired      NotificationKind = "expired"
)

// Notification is an intent record. Delivery (push, email) belongs to whoever
// consumes the notifications collection.
type Notification struct {
	ID              string           `db:"id" json:"id"`
	UserID          string           `db:"user_id" json:"user_id"`
	Kind            NotificationKind `db:"kind" json:"kind"`
	Title           string           `db:"title" json:"title"`
	Message         string           `db:"message" json:"message"`
	RelatedEntityID string           `db:"related_entity_id" json:"related_entity_id"`
	Read            bool             `db:"read" json:"read"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}
