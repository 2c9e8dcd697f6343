package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/007AGENT57/Spender-backend/internal/domain/model"
	"github.com/007AGENT57/Spender-backend/internal/store"
)

// ApprovalRepo persists execution records keyed by the approving
// transaction's signature. All state transitions go through SQL so the
// VERIFIED -> EXECUTING claim is a true compare-and-set even across replicas.
type ApprovalRepo struct {
	db *DB
}

var _ store.ApprovalRepository = (*ApprovalRepo)(nil)

func NewApprovalRepo(db *DB) *ApprovalRepo {
	return &ApprovalRepo{db: db}
}

func (r *ApprovalRepo) RecordVerdict(ctx context.Context, verdict model.ApprovalVerdict) error {
	if !verdict.Complete() || verdict.Details == nil {
		return fmt.Errorf("refusing to record incomplete verdict for %s", verdict.TxSignature)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO approval_executions
			(tx_signature, status, source_account, delegate, owner_address, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_signature) DO NOTHING
	`, verdict.TxSignature, model.StatusVerified,
		verdict.Details.SourceAccount, verdict.Details.Delegate,
		verdict.Details.Owner, fmt.Sprintf("%d", verdict.Details.Amount))
	if err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record verdict rows: %w", err)
	}
	if rows == 0 {
		return store.ErrAlreadyRecorded
	}
	return nil
}

func (r *ApprovalRepo) Get(ctx context.Context, txSignature string) (*model.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		rec       model.ExecutionRecord
		amountStr string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT tx_signature, status, source_account, delegate, owner_address, amount::text,
		       transfer_signature, failure_reason, created_at, updated_at
		FROM approval_executions
		WHERE tx_signature = $1
	`, txSignature).Scan(
		&rec.TxSignature, &rec.Status, &rec.SourceAccount, &rec.Delegate,
		&rec.Owner, &amountStr, &rec.TransferSignature, &rec.FailureReason,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution record: %w", err)
	}

	if _, err := fmt.Sscan(amountStr, &rec.Amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	return &rec, nil
}

// BeginExecution is the single serialization point guarding the delegated
// transfer: one UPDATE conditioned on status VERIFIED. Under concurrent
// confirmations exactly one caller sees a row claimed; the rest classify the
// current status for the caller's replay response.
func (r *ApprovalRepo) BeginExecution(ctx context.Context, txSignature string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE approval_executions
		SET status = $2, updated_at = now()
		WHERE tx_signature = $1 AND status = $3
	`, txSignature, model.StatusExecuting, model.StatusVerified)
	if err != nil {
		return fmt.Errorf("begin execution: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("begin execution rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	rec, err := r.Get(ctx, txSignature)
	if err != nil {
		if err == store.ErrNotFound {
			return store.ErrNotVerified
		}
		return fmt.Errorf("classify begin failure: %w", err)
	}
	switch {
	case rec.Status == model.StatusExecuting:
		return store.ErrAlreadyExecuting
	case rec.Status.IsTerminal():
		return store.ErrAlreadyTerminal
	default:
		return store.ErrNotVerified
	}
}

func (r *ApprovalRepo) MarkSubmitted(ctx context.Context, txSignature, transferSignature string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE approval_executions
		SET transfer_signature = $2, updated_at = now()
		WHERE tx_signature = $1 AND status = $3
	`, txSignature, transferSignature, model.StatusExecuting)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return nil
}

func (r *ApprovalRepo) CompleteExecution(ctx context.Context, txSignature string, status model.ExecutionStatus, transferSignature, failureReason *string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("complete execution: %s is not terminal", status)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	// Guarded on EXECUTING so terminal records stay immutable.
	res, err := r.db.ExecContext(ctx, `
		UPDATE approval_executions
		SET status = $2,
		    transfer_signature = COALESCE($3, transfer_signature),
		    failure_reason = $4,
		    updated_at = now()
		WHERE tx_signature = $1 AND status = $5
	`, txSignature, status, transferSignature, failureReason, model.StatusExecuting)
	if err != nil {
		return fmt.Errorf("complete execution: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete execution rows: %w", err)
	}
	if rows == 0 {
		return store.ErrAlreadyTerminal
	}
	return nil
}

func (r *ApprovalRepo) ListStuckExecuting(ctx context.Context, olderThan time.Duration, limit int) ([]model.ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT tx_signature, status, source_account, delegate, owner_address, amount::text,
		       transfer_signature, failure_reason, created_at, updated_at
		FROM approval_executions
		WHERE status = $1 AND updated_at < now() - $2::interval
		ORDER BY updated_at ASC
		LIMIT $3
	`, model.StatusExecuting, fmt.Sprintf("%f seconds", olderThan.Seconds()), limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck executions: %w", err)
	}
	defer rows.Close()

	var out []model.ExecutionRecord
	for rows.Next() {
		var (
			rec       model.ExecutionRecord
			amountStr string
		)
		if err := rows.Scan(
			&rec.TxSignature, &rec.Status, &rec.SourceAccount, &rec.Delegate,
			&rec.Owner, &amountStr, &rec.TransferSignature, &rec.FailureReason,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stuck execution: %w", err)
		}
		if _, err := fmt.Sscan(amountStr, &rec.Amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
