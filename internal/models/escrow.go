package models

import "time"

type EscrowStatus string

const (
	StatusPending   EscrowStatus = "pending"
	StatusAccepted  EscrowStatus = "accepted"
	StatusFunded    EscrowStatus = "funded"
	StatusDelivered EscrowStatus = "delivered"
	StatusCompleted EscrowStatus = "completed"
	StatusPaidOut   EscrowStatus = "paid_out"
	StatusCancelled EscrowStatus = "cancelled"
	StatusDisputed  EscrowStatus = "disputed"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	// RoleSystem drives transitions not owned by either party (payout).
	RoleSystem Role = "system"
)

// Payment holds the fee breakdown stamped on an escrow at creation and the
// gateway outcome once the buyer has paid. Amounts are minor units.
type Payment struct {
	Amount         int64      `json:"amount"`
	BuyerFee       int64      `json:"buyer_fee"`
	BuyerPays      int64      `json:"buyer_pays"`
	SellerFee      int64      `json:"seller_fee"`
	SellerReceives int64      `json:"seller_receives"`
	PlatformFee    int64      `json:"platform_fee"`
	Method         string     `json:"method,omitempty"`
	Reference      string     `json:"reference,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

type Dispute struct {
	IsDisputed bool       `json:"is_disputed"`
	Reason     string     `json:"reason,omitempty"`
	RaisedBy   int32      `json:"raised_by,omitempty"`
	RaisedAt   *time.Time `json:"raised_at,omitempty"`
}

type TimelineEntry struct {
	Status    EscrowStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

type Escrow struct {
	ID          int32           `json:"id"`
	Reference   string          `json:"reference"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Status      EscrowStatus    `json:"status"`
	BuyerID     int32           `json:"buyer_id"`
	SellerID    int32           `json:"seller_id"`
	Payment     *Payment        `json:"payment,omitempty"`
	Dispute     *Dispute        `json:"dispute,omitempty"`
	Timeline    []TimelineEntry `json:"timeline,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RoleOf resolves which side of the escrow the user is on. Second return is
// false when the user is not a party.
func (e *Escrow) RoleOf(userID int32) (Role, bool) {
	switch userID {
	case e.BuyerID:
		return RoleBuyer, true
	case e.SellerID:
		return RoleSeller, true
	}
	return "", false
}
