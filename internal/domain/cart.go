package domain

// Service charge parameters applied to a non-empty cart at submission time.
// The charge is a percentage of the subtotal with a hard minimum, so even a
// one-unit stake incurs the floor.
const (
	ServiceChargePercent = 10
	ServiceChargeFloor   = 5
)

// CartItem is one staged stake. It exists only on the client until the cart
// is submitted as a single batch.
type CartItem struct {
	ID         string
	Category   GameCategory
	RoundID    string
	Selections []string
	Stake      int64 // whole currency units, always positive
}

// Clone returns a copy that does not share the selections slice.
func (i CartItem) Clone() CartItem {
	out := i
	out.Selections = append([]string(nil), i.Selections...)
	return out
}

// CartTotals is derived from the cart's items and never stored.
type CartTotals struct {
	Items           int
	Subtotal        int64
	ServiceCharge   int64
	GrandTotal      int64
	PotentialPayout float64 // informational only, not a payout guarantee
}

// ServiceChargeFor computes the charge for a non-empty cart's subtotal:
// ceil(subtotal * 10%) with a floor of 5 units. The empty cart carries no
// charge; callers handle that case.
func ServiceChargeFor(subtotal int64) int64 {
	charge := (subtotal*ServiceChargePercent + 99) / 100
	if charge < ServiceChargeFloor {
		charge = ServiceChargeFloor
	}
	return charge
}
