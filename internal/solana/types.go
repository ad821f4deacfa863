package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature (exclusive)
	Limit  int    // Maximum number of signatures to return
}

// TokenAmount is the parsed token balance triple used across RPC responses.
type TokenAmount struct {
	Amount   string  `json:"amount"` // raw amount as decimal string
	Decimals int     `json:"decimals"`
	UIAmount float64 `json:"uiAmount"`
}

// TokenAccount is one parsed SPL token account from getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey   string
	Mint     string
	Owner    string
	State    string // "initialized" | "frozen"
	Decimals int
	Amount   float64 // UI units
}

// ParsedTransaction is a confirmed transaction with jsonParsed detail.
type ParsedTransaction struct {
	Signature         string
	Slot              int64
	BlockTime         int64 // Unix seconds, 0 if unknown
	Failed            bool
	AccountKeys       []string
	LogMessages       []string
	PostTokenBalances []TokenBalance
	Instructions      []ParsedInstruction // top-level message instructions
	InnerInstructions []ParsedInstruction // flattened inner instructions
}

// TokenBalance is one entry of meta.postTokenBalances.
type TokenBalance struct {
	AccountIndex int         `json:"accountIndex"`
	Mint         string      `json:"mint"`
	Owner        string      `json:"owner"`
	Amount       TokenAmount `json:"uiTokenAmount"`
}

// ParsedInstruction is a jsonParsed instruction. Only parsed SPL/system
// instructions carry Type/Info; raw instructions leave them empty.
type ParsedInstruction struct {
	ProgramID string
	Type      string // e.g. "transfer", "transferChecked"
	Info      InstructionInfo
}

// InstructionInfo carries the fields of parsed transfer-style instructions.
type InstructionInfo struct {
	Authority   string `json:"authority"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`   // raw units as decimal string
	Lamports    uint64 `json:"lamports"` // set for system transfers
	Mint        string `json:"mint"`     // set for transferChecked
}

// Mentions reports whether the transaction references the given address in
// its account keys or post token balances.
func (t *ParsedTransaction) Mentions(address string) bool {
	for _, k := range t.AccountKeys {
		if k == address {
			return true
		}
	}
	for _, b := range t.PostTokenBalances {
		if b.Mint == address || b.Owner == address {
			return true
		}
	}
	return false
}

// AccountInfo represents raw Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded account data
	Executable bool
}

// ProgramAccount is one result of getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// AccountFilter narrows getProgramAccounts results.
type AccountFilter struct {
	DataSize     int    // filter by exact account data length, 0 to skip
	MemcmpOffset int    // byte offset for the memcmp filter
	MemcmpBytes  string // base58-encoded bytes to match, empty to skip
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	ConfirmationStatus string      `json:"confirmationStatus"` // "processed" | "confirmed" | "finalized"
	Err                interface{} `json:"err"`
}

// Confirmed reports whether the transaction reached at least confirmed
// commitment without an error.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}
