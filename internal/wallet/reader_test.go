package wallet

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-position-engine/internal/solana"
)

type fakeRPC struct {
	accounts    []solana.TokenAccount
	accountsErr error

	lamports uint64

	sigInfos []solana.SignatureInfo
	lastOpts *solana.SignaturesOpts

	txs    map[string]*solana.ParsedTransaction
	txErrs map[string]error
}

func (f *fakeRPC) GetTokenAccountsByOwner(context.Context, string) ([]solana.TokenAccount, error) {
	return f.accounts, f.accountsErr
}

func (f *fakeRPC) GetBalance(context.Context, string) (uint64, error) {
	return f.lamports, nil
}

func (f *fakeRPC) GetSignaturesForAddress(_ context.Context, _ string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	f.lastOpts = opts
	return f.sigInfos, nil
}

func (f *fakeRPC) GetParsedTransaction(_ context.Context, sig string) (*solana.ParsedTransaction, error) {
	if err, ok := f.txErrs[sig]; ok {
		return nil, err
	}
	return f.txs[sig], nil
}

func (f *fakeRPC) GetTokenAccountBalance(context.Context, string) (*solana.TokenAmount, error) {
	return nil, nil
}
func (f *fakeRPC) GetProgramAccounts(context.Context, string, []solana.AccountFilter) ([]solana.ProgramAccount, error) {
	return nil, nil
}
func (f *fakeRPC) SendTransaction(context.Context, string) (string, error) { return "", nil }
func (f *fakeRPC) GetSignatureStatuses(context.Context, []string) ([]*solana.SignatureStatus, error) {
	return nil, nil
}

func TestHoldings_FiltersFrozenAndVacant(t *testing.T) {
	rpc := &fakeRPC{accounts: []solana.TokenAccount{
		{Pubkey: "acc1", Mint: "mintA", State: "initialized", Amount: 1500, Decimals: 6},
		{Pubkey: "acc2", Mint: "mintB", State: "frozen", Amount: 9999, Decimals: 6},
		{Pubkey: "acc3", Mint: "mintC", State: "initialized", Amount: 0.5, Decimals: 9},
		{Pubkey: "acc4", Mint: "mintD", State: "initialized", Amount: 0, Decimals: 9},
	}}
	r := NewReader(ReaderOptions{RPC: rpc, Owner: "owner"})

	holdings, stats, err := r.Holdings(context.Background())
	require.NoError(t, err)

	require.Len(t, holdings, 1, "frozen and dust accounts are not holdings")
	assert.Equal(t, "mintA", holdings[0].Mint)
	assert.Equal(t, "acc1", holdings[0].TokenAccount)
	assert.Equal(t, 1500.0, holdings[0].Amount)
	assert.NotZero(t, holdings[0].LastObservedAt)

	assert.Equal(t, 1, stats.Frozen)
	assert.Equal(t, 2, stats.Vacant)
}

func TestHoldings_RPCFailure(t *testing.T) {
	rpc := &fakeRPC{accountsErr: fmt.Errorf("rpc down")}
	r := NewReader(ReaderOptions{RPC: rpc, Owner: "owner"})

	_, _, err := r.Holdings(context.Background())
	require.Error(t, err)
}

func TestBalance_ScalesLamports(t *testing.T) {
	rpc := &fakeRPC{lamports: 2_500_000_000}
	r := NewReader(ReaderOptions{RPC: rpc, Owner: "owner"})

	sol, err := r.Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.5, sol, 1e-12)
}

func TestNewSignatures_ExcludesFailed(t *testing.T) {
	rpc := &fakeRPC{sigInfos: []solana.SignatureInfo{
		{Signature: "sig3"},
		{Signature: "sig2", Err: map[string]any{"InstructionError": []any{}}},
		{Signature: "sig1"},
	}}
	r := NewReader(ReaderOptions{RPC: rpc, Owner: "owner", SignatureLimit: 25})

	sigs, err := r.NewSignatures(context.Background(), "cursor-sig")
	require.NoError(t, err)
	assert.Equal(t, []string{"sig3", "sig1"}, sigs, "failed signatures dropped, order kept")

	require.NotNil(t, rpc.lastOpts)
	assert.Equal(t, "cursor-sig", rpc.lastOpts.Until)
	assert.Equal(t, 25, rpc.lastOpts.Limit)
}

func TestNewSignatures_EmptyCursor(t *testing.T) {
	rpc := &fakeRPC{}
	r := NewReader(ReaderOptions{RPC: rpc, Owner: "owner"})

	_, err := r.NewSignatures(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rpc.lastOpts.Until)
	assert.Equal(t, DefaultSignatureLimit, rpc.lastOpts.Limit)
}

func TestTransactions_SkipsBadItems(t *testing.T) {
	burn := "1nc1nerator11111111111111111111111111111111"
	rpc := &fakeRPC{
		txs: map[string]*solana.ParsedTransaction{
			"good":   {Signature: "good"},
			"failed": {Signature: "failed", Failed: true},
			"burn":   {Signature: "burn", AccountKeys: []string{burn}},
		},
		txErrs: map[string]error{"broken": fmt.Errorf("decode error")},
	}
	r := NewReader(ReaderOptions{RPC: rpc, Owner: "owner", BurnAddress: burn})

	txs := r.Transactions(context.Background(), []string{"good", "failed", "burn", "broken", "missing"})

	require.Len(t, txs, 1, "failed, burn-mentioning, erroring and missing lookups are skipped")
	assert.Equal(t, "good", txs[0].Signature)
}
