package eligibility

import "github.com/fairyhunter13/love-coupon-system/internal/model"

// DefaultCreationQuota is the number of outstanding coupons a partner must have
// created before they may redeem one.
const DefaultCreationQuota = 4

// IDSet is a set of coupon ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// RedeemedSet collects the coupon ids of the given redemptions.
func RedeemedSet(redemptions []model.Redemption) IDSet {
	set := make(IDSet, len(redemptions))
	for _, r := range redemptions {
		set[r.CouponID] = struct{}{}
	}
	return set
}

// UnredeemedCount counts the coupons whose id is not in redeemed.
func UnredeemedCount(coupons []model.Coupon, redeemed IDSet) int {
	n := 0
	for _, c := range coupons {
		if !redeemed.Has(c.ID) {
			n++
		}
	}
	return n
}

// QuotaGate denies redemption until the actor has enough unredeemed coupons
// of their own outstanding for their partner.
type QuotaGate struct {
	Quota int
}

// Evaluate checks the actor's created coupons against the global redeemed set.
// Coupons not created by actorID are ignored.
func (g QuotaGate) Evaluate(actorID string, created []model.Coupon, redeemed IDSet) Verdict {
	outstanding := 0
	for _, c := range created {
		if c.CreatedBy == actorID && !redeemed.Has(c.ID) {
			outstanding++
		}
	}
	if outstanding < g.Quota {
		return Verdict{
			Reason:  ReasonInsufficientQuota,
			Deficit: g.Quota - outstanding,
		}
	}
	return Allow()
}
