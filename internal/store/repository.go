package store

import (
	"context"
	"errors"
	"time"

	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

var (
	// ErrAlreadyRecorded: a verdict for this transaction signature exists.
	ErrAlreadyRecorded = errors.New("verdict already recorded")
	// ErrNotVerified: BeginExecution found no VERIFIED record to claim.
	ErrNotVerified = errors.New("no verified record for transaction")
	// ErrAlreadyExecuting: another confirmation already won the claim.
	ErrAlreadyExecuting = errors.New("execution already in progress")
	// ErrAlreadyTerminal: the record reached SUCCEEDED or FAILED.
	ErrAlreadyTerminal = errors.New("execution already terminal")
	// ErrNotFound: no record for the transaction signature.
	ErrNotFound = errors.New("execution record not found")
)

// ApprovalRepository is the single source of truth for whether an approval
// has been spent. The verifier and executor never track execution state
// anywhere else.
type ApprovalRepository interface {
	// RecordVerdict persists a complete verdict as a VERIFIED record.
	// Returns ErrAlreadyRecorded if the signature is already known.
	RecordVerdict(ctx context.Context, verdict model.ApprovalVerdict) error

	// Get returns the record for a transaction signature, or ErrNotFound.
	Get(ctx context.Context, txSignature string) (*model.ExecutionRecord, error)

	// BeginExecution atomically claims a VERIFIED record, moving it to
	// EXECUTING. Exactly one caller wins under concurrency; losers observe
	// ErrNotVerified, ErrAlreadyExecuting, or ErrAlreadyTerminal.
	BeginExecution(ctx context.Context, txSignature string) error

	// MarkSubmitted records the outbound transfer signature on an EXECUTING
	// record so a crash before completion leaves a reconcilable trail.
	MarkSubmitted(ctx context.Context, txSignature, transferSignature string) error

	// CompleteExecution moves an EXECUTING record to a terminal state.
	CompleteExecution(ctx context.Context, txSignature string, status model.ExecutionStatus, transferSignature, failureReason *string) error

	// ListStuckExecuting returns records that have sat in EXECUTING longer
	// than the threshold, oldest first.
	ListStuckExecuting(ctx context.Context, olderThan time.Duration, limit int) ([]model.ExecutionRecord, error)
}
