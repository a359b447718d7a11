package models

import "time"

type NotificationKind string

const (
	NotifyEscrowUpdate NotificationKind = "escrow_update"
	NotifyPayment      NotificationKind = "payment"
	NotifyChat         NotificationKind = "chat"
	NotifySystem       NotificationKind = "system"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int32            `json:"user_id"`
	EscrowID  int32            `json:"escrow_id,omitempty"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
