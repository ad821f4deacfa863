// Package wallet reads confirmed account state and settlement history for a
// single custodial wallet. It is the engine's only view of on-chain balances;
// it never fabricates cost basis and never mutates anything.
package wallet

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/solana"
)

// DefaultSignatureLimit bounds one settlement-history page.
const DefaultSignatureLimit = 100

// MinTrackedAmount is the UI-unit floor below which a token account is
// treated as vacant rather than a holding.
const MinTrackedAmount = 1.0

// Reader reads wallet state through the Solana RPC collaborator.
type Reader struct {
	rpc            solana.RPCClient
	owner          string
	burnAddress    string // transactions mentioning it are excluded from history
	signatureLimit int
	logger         *log.Logger
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	RPC            solana.RPCClient
	Owner          string
	BurnAddress    string
	SignatureLimit int
	Logger         *log.Logger
}

// NewReader creates a wallet reader.
func NewReader(opts ReaderOptions) *Reader {
	limit := opts.SignatureLimit
	if limit == 0 {
		limit = DefaultSignatureLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reader{
		rpc:            opts.RPC,
		owner:          opts.Owner,
		burnAddress:    opts.BurnAddress,
		signatureLimit: limit,
		logger:         logger,
	}
}

// Owner returns the wallet address.
func (r *Reader) Owner() string {
	return r.owner
}

// Holdings returns one Holding per token account with a tracked balance.
// Frozen accounts and balances below MinTrackedAmount are excluded and
// counted in the returned stats.
func (r *Reader) Holdings(ctx context.Context) ([]domain.Holding, domain.AccountStats, error) {
	var stats domain.AccountStats

	accounts, err := r.rpc.GetTokenAccountsByOwner(ctx, r.owner)
	if err != nil {
		return nil, stats, fmt.Errorf("get token accounts: %w", err)
	}

	now := time.Now().UnixMilli()
	holdings := make([]domain.Holding, 0, len(accounts))
	for _, acc := range accounts {
		if acc.State == "frozen" {
			stats.Frozen++
			continue
		}
		if acc.Amount < MinTrackedAmount {
			stats.Vacant++
			continue
		}
		holdings = append(holdings, domain.Holding{
			Mint:           acc.Mint,
			TokenAccount:   acc.Pubkey,
			Amount:         acc.Amount,
			Decimals:       acc.Decimals,
			LastObservedAt: now,
		})
	}

	return holdings, stats, nil
}

// Balance returns the wallet's SOL balance in human units.
func (r *Reader) Balance(ctx context.Context) (float64, error) {
	lamports, err := r.rpc.GetBalance(ctx, r.owner)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return float64(lamports) / solana.LamportsPerSOL, nil
}

// NewSignatures returns confirmed signatures for the wallet newer than the
// cursor, newest first, excluding signatures that failed on-chain.
func (r *Reader) NewSignatures(ctx context.Context, until string) ([]string, error) {
	opts := &solana.SignaturesOpts{Limit: r.signatureLimit}
	if until != "" {
		opts.Until = until
	}

	infos, err := r.rpc.GetSignaturesForAddress(ctx, r.owner, opts)
	if err != nil {
		return nil, fmt.Errorf("get signatures: %w", err)
	}

	sigs := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Err != nil {
			continue
		}
		sigs = append(sigs, info.Signature)
	}
	return sigs, nil
}

// Transactions fetches parsed detail for each signature. Failed transactions,
// transactions mentioning the burn address, and signatures whose lookup or
// decode fails are skipped; one bad item never aborts the batch.
func (r *Reader) Transactions(ctx context.Context, signatures []string) []*solana.ParsedTransaction {
	txs := make([]*solana.ParsedTransaction, 0, len(signatures))
	for _, sig := range signatures {
		tx, err := r.rpc.GetParsedTransaction(ctx, sig)
		if err != nil {
			r.logger.Printf("skipping transaction %s: %v", sig, err)
			continue
		}
		if tx == nil || tx.Failed {
			continue
		}
		if r.burnAddress != "" && tx.Mentions(r.burnAddress) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}
