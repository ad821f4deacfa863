package venue

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/route"
	"solana-position-engine/internal/solana"
)

// Raydium V4 pool state layout. Only the fields the engine routes and
// prices with are decoded; the rest of the 752 bytes is ignored.
const (
	poolStateSize = 752

	offStatus       = 0
	offBaseDecimal  = 32
	offQuoteDecimal = 40
	offBaseVault    = 336
	offQuoteVault   = 368
	offBaseMint     = 400
	offQuoteMint    = 432
	offOpenOrders   = 496
	offMarketID     = 528

	poolStatusSwapEnabled = 6
)

// PoolDiscoverer finds the venue pool pairing a mint with wrapped SOL by
// scanning program accounts. Implements route.Discoverer.
type PoolDiscoverer struct {
	rpc       solana.RPCClient
	programID string
	logger    *log.Logger
}

// NewPoolDiscoverer creates a discoverer for the given AMM program.
func NewPoolDiscoverer(rpc solana.RPCClient, programID string, logger *log.Logger) *PoolDiscoverer {
	if logger == nil {
		logger = log.Default()
	}
	return &PoolDiscoverer{rpc: rpc, programID: programID, logger: logger}
}

// Discover scans for a pool whose base or quote mint matches, preferring the
// base-side match. Returns route.ErrNoRoute when no tradable pool exists.
func (d *PoolDiscoverer) Discover(ctx context.Context, mint string) (*domain.PoolRoute, error) {
	for _, offset := range []int{offBaseMint, offQuoteMint} {
		accounts, err := d.rpc.GetProgramAccounts(ctx, d.programID, []solana.AccountFilter{
			{DataSize: poolStateSize},
			{MemcmpOffset: offset, MemcmpBytes: mint},
		})
		if err != nil {
			return nil, fmt.Errorf("scan pools for %s: %w", mint, err)
		}

		for _, acc := range accounts {
			r, err := decodePoolState(acc.Pubkey, acc.Account.Data)
			if err != nil {
				d.logger.Printf("skipping pool %s: %v", acc.Pubkey, err)
				continue
			}
			if r.BaseMint != solana.WSOLMint && r.QuoteMint != solana.WSOLMint {
				continue
			}
			if tokenMint, _ := r.TokenSide(solana.WSOLMint); tokenMint != mint {
				// The filter matched the WSOL side; this pool prices a
				// different token.
				continue
			}
			r.Mint = mint
			r.ProgramID = d.programID
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", route.ErrNoRoute, mint)
}

// decodePoolState extracts routing fields from raw V4 pool account data.
func decodePoolState(pubkey string, data []byte) (*domain.PoolRoute, error) {
	if len(data) != poolStateSize {
		return nil, fmt.Errorf("pool state: expected %d bytes, got %d", poolStateSize, len(data))
	}

	status := binary.LittleEndian.Uint64(data[offStatus:])
	if status != poolStatusSwapEnabled {
		return nil, fmt.Errorf("pool state: swaps disabled (status %d)", status)
	}

	r := &domain.PoolRoute{
		PoolID:        pubkey,
		BaseDecimals:  int(binary.LittleEndian.Uint64(data[offBaseDecimal:])),
		QuoteDecimals: int(binary.LittleEndian.Uint64(data[offQuoteDecimal:])),
	}

	fields := []struct {
		dst    *string
		offset int
	}{
		{&r.BaseVault, offBaseVault},
		{&r.QuoteVault, offQuoteVault},
		{&r.BaseMint, offBaseMint},
		{&r.QuoteMint, offQuoteMint},
		{&r.OpenOrders, offOpenOrders},
		{&r.MarketID, offMarketID},
	}
	for _, f := range fields {
		addr, err := solana.EncodePubkey(data[f.offset : f.offset+solana.PubkeyLen])
		if err != nil {
			return nil, fmt.Errorf("pool state field at %d: %w", f.offset, err)
		}
		*f.dst = addr
	}

	// Vaults are token accounts owned by the pool authority PDA, so their
	// addresses are off-curve and are not curve-checked. The mints must be
	// valid curve points or the account bytes are garbage.
	if !solana.IsOnCurve(r.BaseMint) {
		return nil, fmt.Errorf("pool state base mint %s: not on curve", r.BaseMint)
	}
	if !solana.IsOnCurve(r.QuoteMint) {
		return nil, fmt.Errorf("pool state quote mint %s: not on curve", r.QuoteMint)
	}
	return r, nil
}

var _ route.Discoverer = (*PoolDiscoverer)(nil)
