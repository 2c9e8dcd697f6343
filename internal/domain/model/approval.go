package model

import "time"

// ExecutionStatus is the lifecycle state of a verified approval.
// Transitions: VERIFIED -> EXECUTING -> SUCCEEDED | FAILED.
// Terminal records are immutable; the same transaction signature is never
// executed twice.
type ExecutionStatus string

const (
	StatusVerified  ExecutionStatus = "VERIFIED"
	StatusExecuting ExecutionStatus = "EXECUTING"
	StatusSucceeded ExecutionStatus = "SUCCEEDED"
	StatusFailed    ExecutionStatus = "FAILED"
)

func (s ExecutionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a final outcome.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ApprovalDetails are the delegation parameters extracted from a verified
// Approve instruction. Delegate always equals the configured spender;
// verification rejects any mismatch before these details are produced.
type ApprovalDetails struct {
	SourceAccount string
	Delegate      string
	Owner         string
	Amount        uint64
}

// ApprovalVerdict is the result of verifying one transaction.
// Details is non-nil if and only if ApprovalFound is true.
type ApprovalVerdict struct {
	TxSignature   string
	PaymentFound  bool
	ApprovalFound bool
	Details       *ApprovalDetails
}

// Complete reports whether both required instructions were found.
func (v ApprovalVerdict) Complete() bool {
	return v.PaymentFound && v.ApprovalFound
}

// ExecutionRecord is the persisted state of one approval, keyed by the
// on-chain transaction signature (globally unique, natural idempotency key).
type ExecutionRecord struct {
	TxSignature       string          `db:"tx_signature"`
	Status            ExecutionStatus `db:"status"`
	SourceAccount     string          `db:"source_account"`
	Delegate          string          `db:"delegate"`
	Owner             string          `db:"owner_address"`
	Amount            uint64          `db:"amount"`
	TransferSignature *string         `db:"transfer_signature"`
	FailureReason     *string         `db:"failure_reason"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}
