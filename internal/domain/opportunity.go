package domain

import "time"

// OpportunityKind discriminates the two detection paths.
type OpportunityKind string

const (
	OpportunityCrossVenue OpportunityKind = "cross_venue"
	OpportunityTriangular OpportunityKind = "triangular"
)

// ExecutionFill is the result of walking one orderbook side to fill a target
// base-currency quantity. Filled never exceeds the requested quantity or the
// depth actually present in the book; exhausting the book yields a partial
// fill, not an error.
type ExecutionFill struct {
	AvgPrice    float64 // volume-weighted average price achieved
	Filled      float64 // base quantity actually filled
	QuoteAmount float64 // total quote currency moved
}

// Opportunity is a priced arbitrage candidate. It is produced and consumed
// within a single evaluation cycle and never persisted.
type Opportunity struct {
	ID         string          `json:"id"`
	Kind       OpportunityKind `json:"kind"`
	Instrument Instrument      `json:"instrument,omitzero"`

	// Cross-venue fields.
	BuyVenue  string  `json:"buy_venue,omitempty"`
	SellVenue string  `json:"sell_venue,omitempty"`
	BuyPrice  float64 `json:"buy_price,omitempty"`  // VWAP of the buy legs
	SellPrice float64 `json:"sell_price,omitempty"` // VWAP of the sell legs

	// Triangular fields.
	Venue string `json:"venue,omitempty"`
	Path  string `json:"path,omitempty"`

	BaseAmount   float64 `json:"base_amount,omitempty"`  // base quantity moved (cross-venue)
	QuoteCost    float64 `json:"quote_cost"`             // fee-inclusive quote spent
	QuoteRevenue float64 `json:"quote_revenue"`          // fee-inclusive quote received
	StartAmount  float64 `json:"start_amount,omitempty"` // triangular cycle input
	FinalAmount  float64 `json:"final_amount,omitempty"` // triangular cycle output

	// Profit is revenue/cost - 1 (cross-venue) or final/start - 1
	// (triangular).
	Profit float64 `json:"profit"`

	DetectedAt time.Time `json:"detected_at"`
}

// Rejection reasons attached to OpportunityEvent records.
const (
	ReasonBelowThreshold    = "below_threshold"
	ReasonInsufficientFunds = "insufficient_funds"
)

// OpportunityEvent is the structured record emitted for every accepted or
// rejected opportunity, consumed by external recorders.
type OpportunityEvent struct {
	Opportunity Opportunity `json:"opportunity"`
	Accepted    bool        `json:"accepted"`
	Reason      string      `json:"reason,omitempty"`
	Threshold   float64     `json:"threshold"`
	Volatility  float64     `json:"volatility"`
	At          time.Time   `json:"at"`
}
