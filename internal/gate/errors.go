package gate

import "errors"

var (
	// ErrInput: the request is missing or malforms a required field.
	// Rejected before any ledger fetch or notification.
	ErrInput = errors.New("invalid request")

	// ErrTransactionNotFound: the named transaction is absent or unconfirmed.
	ErrTransactionNotFound = errors.New("transaction not found on ledger")

	// ErrIncompletePattern: payment or approval missing from the transaction.
	ErrIncompletePattern = errors.New("required instructions missing or incomplete")

	// ErrBadReference: the confirmation reference failed authentication,
	// parsing, or expiry. No side effects are performed.
	ErrBadReference = errors.New("confirmation reference rejected")

	// ErrExecution: the delegated transfer was attempted and failed; the
	// outcome is recorded as FAILED.
	ErrExecution = errors.New("delegated transfer failed")
)
