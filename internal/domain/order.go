package domain

import "time"

// StakeOrder is one staged stake in the wire shape the submission gateway
// accepts.
type StakeOrder struct {
	ItemID     string       `json:"itemId"`
	RoundID    string       `json:"roundId"`
	Category   GameCategory `json:"gameCategory"`
	Selections []string     `json:"selectedOptions"`
	Stake      int64        `json:"stakeAmount"`
}

// Submission is the snapshot of a cart handed to the gateway as one atomic
// request. The core never splits it into multiple calls.
type Submission struct {
	Orders        []StakeOrder `json:"orders"`
	Subtotal      int64        `json:"subtotal"`
	ServiceCharge int64        `json:"serviceCharge"`
	GrandTotal    int64        `json:"grandTotal"`
}

// SubmissionReceipt records one accepted submission. It is journaled locally
// so the user has a history of their own orders.
type SubmissionReceipt struct {
	ID            string
	OrderIDs      []string // authority-assigned order ids
	Orders        []StakeOrder
	Subtotal      int64
	ServiceCharge int64
	GrandTotal    int64
	CreatedAt     time.Time
}

// OrderActivity is the informational payload of an order:placed event: some
// other participant staked on a round we observe.
type OrderActivity struct {
	OrderID    string
	RoundID    string
	Category   GameCategory
	Selections []string
	Stake      int64
}

// TimerTick is a countdown tick for a round. Advisory, UI-only: a tick
// reaching zero never drives a status transition.
type TimerTick struct {
	RoundID  string
	TimeLeft time.Duration
}
