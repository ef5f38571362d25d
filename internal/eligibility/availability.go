package eligibility

import "github.com/fairyhunter13/love-coupon-system/internal/model"

// State is the derived availability of a coupon.
type State string

const (
	// StateCreated is an unredeemed coupon addressed to its own creator.
	StateCreated State = "created"
	// StateAvailable is an unredeemed coupon addressed to the creator's partner.
	StateAvailable State = "available"
	// StateRedeemed is terminal.
	StateRedeemed State = "redeemed"
)

// StateOf derives the coupon's state from the coupon and the redeemed set alone,
// so creator and recipient always see the same value.
func StateOf(c model.Coupon, redeemed IDSet) State {
	switch {
	case redeemed.Has(c.ID):
		return StateRedeemed
	case c.ForPartner != c.CreatedBy:
		return StateAvailable
	default:
		return StateCreated
	}
}

// Available filters coupons addressed to recipientID down to those in StateAvailable.
func Available(coupons []model.Coupon, redeemed IDSet, recipientID string) []model.Coupon {
	out := make([]model.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.ForPartner == recipientID && StateOf(c, redeemed) == StateAvailable {
			out = append(out, c)
		}
	}
	return out
}
