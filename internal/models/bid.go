package models

import "time"

// BidStatus is the lifecycle state of a contractor's bid
type BidStatus string

const (
	BidStatusSubmitted BidStatus = "submitted"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
)

var validBidStatuses = map[BidStatus]bool{
	BidStatusSubmitted: true,
	BidStatusAccepted:  true,
	BidStatusRejected:  true,
}

// IsValid returns true if the status is a known bid status
func (s BidStatus) IsValid() bool {
	return validBidStatuses[s]
}

// IsFinal reports whether the bid can no longer be acted on. Accepted
// and rejected bids are immutable.
func (s BidStatus) IsFinal() bool {
	return s == BidStatusAccepted || s == BidStatusRejected
}

// Bid is a contractor's priced offer against a tender. One bid per
// contractor per tender; at most one bid per tender ever reaches
// accepted, and accepting it rejects all siblings atomically.
type Bid struct {
	ID           string    `json:"id"`
	TenderID     string    `json:"tender_id"`
	ContractorID string    `json:"contractor_id"`
	Amount       float64   `json:"amount"`
	Details      string    `json:"details"`
	Timeline     string    `json:"timeline"`
	Status       BidStatus `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
