package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
)

// ExitJournal implements storage.ExitJournal using ClickHouse. The journal is
// append-only on a MergeTree table; duplicates are impossible by construction
// because every record carries its own cycle sequence and timestamp.
type ExitJournal struct {
	conn *Conn
}

// NewExitJournal creates a new ClickHouse exit journal.
func NewExitJournal(conn *Conn) *ExitJournal {
	return &ExitJournal{conn: conn}
}

// Compile-time interface check.
var _ storage.ExitJournal = (*ExitJournal)(nil)

// Insert appends one record.
func (j *ExitJournal) Insert(ctx context.Context, rec *domain.ExitRecord) error {
	if rec == nil || rec.Mint == "" {
		return storage.ErrInvalidInput
	}

	err := j.conn.Exec(ctx, `
		INSERT INTO exit_journal (
			cycle_seq, mint, strategy, amount_in, amount_out, price_impact,
			cost_basis, tx_signature, reason, executed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.CycleSeq, rec.Mint, rec.Strategy, rec.AmountIn, rec.AmountOut,
		rec.PriceImpact, rec.CostBasis, rec.TxSignature, rec.Reason,
		time.UnixMilli(rec.ExecutedAt),
	)
	if err != nil {
		return fmt.Errorf("insert exit record: %w", err)
	}
	return nil
}

// GetByMint retrieves all records for a mint, ordered by execution time.
func (j *ExitJournal) GetByMint(ctx context.Context, mint string) ([]*domain.ExitRecord, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	rows, err := j.conn.Query(ctx, `
		SELECT cycle_seq, mint, strategy, amount_in, amount_out, price_impact,
		       cost_basis, tx_signature, reason, executed_at
		FROM exit_journal
		WHERE mint = ?
		ORDER BY executed_at ASC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("query exit records: %w", err)
	}
	defer rows.Close()

	var records []*domain.ExitRecord
	for rows.Next() {
		var rec domain.ExitRecord
		var executedAt time.Time
		err := rows.Scan(&rec.CycleSeq, &rec.Mint, &rec.Strategy, &rec.AmountIn,
			&rec.AmountOut, &rec.PriceImpact, &rec.CostBasis, &rec.TxSignature,
			&rec.Reason, &executedAt)
		if err != nil {
			return nil, fmt.Errorf("scan exit record: %w", err)
		}
		rec.ExecutedAt = executedAt.UnixMilli()
		records = append(records, &rec)
	}

	return records, rows.Err()
}
