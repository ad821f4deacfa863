package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the engine depends on.
type RPCClient interface {
	// GetTokenAccountsByOwner retrieves parsed SPL token accounts for an owner.
	GetTokenAccountsByOwner(ctx context.Context, owner string) ([]TokenAccount, error)

	// GetBalance retrieves the SOL balance of an account in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetParsedTransaction retrieves a transaction by signature with
	// jsonParsed instruction detail. Returns nil if not found.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)

	// GetProgramAccounts retrieves accounts owned by a program, filtered by
	// data size and memcmp filters.
	GetProgramAccounts(ctx context.Context, program string, filters []AccountFilter) ([]ProgramAccount, error)

	// GetTokenAccountBalance retrieves the balance of an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	// The result slice is positionally aligned with the input; unknown
	// signatures yield nil entries.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}
