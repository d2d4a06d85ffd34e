package events

// Topic constants for domain events emitted by the storefront core.
const (
	TopicOrderCreated      = "order.created"
	TopicCouponApplied     = "coupon.applied"
	TopicCouponRedeemed    = "coupon.redeemed"
	TopicCouponRaceLost    = "coupon.race_lost"
	TopicInventoryAdjusted = "inventory.adjusted"
)

// DefaultTopics returns the canonical list of topics downstream consumers
// can subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicCouponApplied,
		TopicCouponRedeemed,
		TopicCouponRaceLost,
		TopicInventoryAdjusted,
	}
}
