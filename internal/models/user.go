package models

import "time"

type KYCTier string

const (
	TierBasic    KYCTier = "basic"
	TierAdvanced KYCTier = "advanced"
	TierPremium  KYCTier = "premium"
)

// EscrowLimit is the maximum single-escrow amount (minor units) the tier may
// open. Unknown tiers fall back to the basic limit.
func (t KYCTier) EscrowLimit() int64 {
	switch t {
	case TierAdvanced:
		return 500_000
	case TierPremium:
		return 5_000_000
	default:
		return 50_000
	}
}

func (t KYCTier) Valid() bool {
	switch t {
	case TierBasic, TierAdvanced, TierPremium:
		return true
	}
	return false
}

type User struct {
	ID           int32     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	KYCTier      KYCTier   `json:"kyc_tier"`
	CreatedAt    time.Time `json:"created_at"`
}
