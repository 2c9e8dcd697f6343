package store

import (
	"context"
	"sync"
	"time"

	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

// MemoryRepository is an in-process ApprovalRepository with the same
// compare-and-set semantics as the postgres implementation. It exists for
// tests and local development only: durability is part of the idempotency
// guarantee, so deployments handling real funds must use postgres.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*model.ExecutionRecord
	now     func() time.Time
}

var _ ApprovalRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*model.ExecutionRecord),
		now:     time.Now,
	}
}

func (r *MemoryRepository) RecordVerdict(_ context.Context, verdict model.ApprovalVerdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[verdict.TxSignature]; ok {
		return ErrAlreadyRecorded
	}
	now := r.now()
	r.records[verdict.TxSignature] = &model.ExecutionRecord{
		TxSignature:   verdict.TxSignature,
		Status:        model.StatusVerified,
		SourceAccount: verdict.Details.SourceAccount,
		Delegate:      verdict.Details.Delegate,
		Owner:         verdict.Details.Owner,
		Amount:        verdict.Details.Amount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, txSignature string) (*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[txSignature]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRepository) BeginExecution(_ context.Context, txSignature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[txSignature]
	if !ok {
		return ErrNotVerified
	}
	switch {
	case rec.Status == model.StatusExecuting:
		return ErrAlreadyExecuting
	case rec.Status.IsTerminal():
		return ErrAlreadyTerminal
	case rec.Status != model.StatusVerified:
		return ErrNotVerified
	}
	rec.Status = model.StatusExecuting
	rec.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) MarkSubmitted(_ context.Context, txSignature, transferSignature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[txSignature]
	if !ok || rec.Status != model.StatusExecuting {
		return nil
	}
	sig := transferSignature
	rec.TransferSignature = &sig
	rec.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) CompleteExecution(_ context.Context, txSignature string, status model.ExecutionStatus, transferSignature, failureReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[txSignature]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != model.StatusExecuting {
		return ErrAlreadyTerminal
	}
	rec.Status = status
	if transferSignature != nil {
		rec.TransferSignature = transferSignature
	}
	rec.FailureReason = failureReason
	rec.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) ListStuckExecuting(_ context.Context, olderThan time.Duration, limit int) ([]model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-olderThan)
	var out []model.ExecutionRecord
	for _, rec := range r.records {
		if rec.Status == model.StatusExecuting && rec.UpdatedAt.Before(cutoff) {
			out = append(out, *rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
