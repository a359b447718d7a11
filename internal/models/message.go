package models

import "time"

// Message is one chat entry between the parties of an escrow.
type Message struct {
	ID        int64     `json:"id"`
	EscrowID  int32     `json:"escrow_id"`
	SenderID  int32     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
