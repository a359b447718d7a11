package lifecycle

// FeeSchedule computes the per-side platform cut for an escrow. Rates are in
// basis points; amounts are minor units. All rounding is half-up.
type FeeSchedule struct {
	BuyerBPS  int64
	SellerBPS int64
}

// DefaultFeeSchedule is the platform default: 2% buyer side, 3% seller side.
var DefaultFeeSchedule = FeeSchedule{BuyerBPS: 200, SellerBPS: 300}

// FeeBreakdown is the full money picture for one escrow, minor units.
type FeeBreakdown struct {
	Amount         int64 `json:"amount"`
	BuyerFee       int64 `json:"buyer_fee"`
	BuyerPays      int64 `json:"buyer_pays"`
	SellerFee      int64 `json:"seller_fee"`
	SellerReceives int64 `json:"seller_receives"`
	PlatformFee    int64 `json:"platform_fee"`
}

// feeOf applies bps to amount with half-up rounding, in integer math only.
func feeOf(amount, bps int64) int64 {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*bps + 5_000) / 10_000
}

func (s FeeSchedule) BuyerFee(amount int64) int64 {
	return feeOf(amount, s.BuyerBPS)
}

func (s FeeSchedule) BuyerPays(amount int64) int64 {
	return amount + s.BuyerFee(amount)
}

func (s FeeSchedule) SellerFee(amount int64) int64 {
	return feeOf(amount, s.SellerBPS)
}

// Quote returns the complete breakdown for an escrow amount.
func (s FeeSchedule) Quote(amount int64) FeeBreakdown {
	buyerFee := s.BuyerFee(amount)
	sellerFee := s.SellerFee(amount)
	return FeeBreakdown{
		Amount:         amount,
		BuyerFee:       buyerFee,
		BuyerPays:      amount + buyerFee,
		SellerFee:      sellerFee,
		SellerReceives: amount - sellerFee,
		PlatformFee:    buyerFee + sellerFee,
	}
}
