package memory

import (
	"context"
	"errors"
	"testing"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
)

func TestExitJournal_InsertAndGetByMint(t *testing.T) {
	journal := NewExitJournal()
	ctx := context.Background()

	records := []*domain.ExitRecord{
		{CycleSeq: 2, Mint: "mintA", Strategy: domain.StrategyProfitTarget, ExecutedAt: 2000},
		{CycleSeq: 1, Mint: "mintA", Strategy: domain.StrategyProtective, ExecutedAt: 1000},
		{CycleSeq: 1, Mint: "mintB", Strategy: domain.StrategyProtective, ExecutedAt: 1500},
	}
	for _, rec := range records {
		if err := journal.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := journal.GetByMint(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	// Ordered by ExecutedAt ascending.
	if got[0].ExecutedAt != 1000 || got[1].ExecutedAt != 2000 {
		t.Errorf("Records not ordered by executed_at: %v, %v", got[0].ExecutedAt, got[1].ExecutedAt)
	}
	if got[0].Strategy != domain.StrategyProtective {
		t.Errorf("Strategy mismatch: got %s", got[0].Strategy)
	}
}

func TestExitJournal_AppendOnly(t *testing.T) {
	journal := NewExitJournal()
	ctx := context.Background()

	rec := &domain.ExitRecord{CycleSeq: 1, Mint: "mintA", ExecutedAt: 1000}
	if err := journal.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the inserted record must not change the stored copy.
	rec.Reason = "mutated"

	got, _ := journal.GetByMint(ctx, "mintA")
	if got[0].Reason != "" {
		t.Errorf("Stored record was mutated after insert")
	}
}

func TestExitJournal_InvalidInput(t *testing.T) {
	journal := NewExitJournal()
	ctx := context.Background()

	if err := journal.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert nil: expected ErrInvalidInput, got %v", err)
	}
	if _, err := journal.GetByMint(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("GetByMint empty: expected ErrInvalidInput, got %v", err)
	}
}
