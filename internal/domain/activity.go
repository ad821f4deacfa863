package domain

// ActivityKind classifies what a settlement transaction did to the wallet.
type ActivityKind string

const (
	ActivityAcquisition ActivityKind = "acquisition"
	ActivityDisposal    ActivityKind = "disposal"
	ActivityOther       ActivityKind = "other"
)

// SettlementActivity is the effect of one confirmed wallet transaction on a
// tracked mint. It is recomputed from the raw transaction on every
// reconciliation pass and never persisted; only its effect on a Holding's
// cost basis is retained.
type SettlementActivity struct {
	Signature      string
	Mint           string
	Kind           ActivityKind
	CostPaid       float64 // SOL spent, human units
	AmountReceived float64 // raw token units received
	OccurredAt     int64   // block time, Unix seconds
}
