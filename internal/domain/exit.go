package domain

// Exit strategy identifiers recorded in the exit journal.
const (
	StrategyProtective   = "protective_exit"
	StrategyProfitTarget = "profit_target"
)

// ExitRecord is one row of the append-only exit journal: an executed exit, a
// failed swap attempt, or a holding skipped with a reason.
type ExitRecord struct {
	CycleSeq    int64   // decision cycle that produced the record
	Mint        string  // token mint
	Strategy    string  // StrategyProtective | StrategyProfitTarget | "" for skips
	AmountIn    float64 // token amount sold, UI units
	AmountOut   float64 // quoted SOL out at decision time
	PriceImpact float64 // quoted price impact percent
	CostBasis   float64 // known cost basis at decision time, 0 if unknown
	TxSignature string  // confirmed transaction signature, empty if not executed
	Reason      string  // why the holding was exited, skipped or failed
	ExecutedAt  int64   // Unix timestamp in milliseconds
}
