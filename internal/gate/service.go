// Package gate wires the verification and confirmation flows together: it is
// the only place that talks to the ledger client, the verifier, the approval
// ledger, the executor, and the notification gateway in one breath.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	solanachain "github.com/007AGENT57/Spender-backend/internal/chain/solana"
	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	"github.com/007AGENT57/Spender-backend/internal/confirmref"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
	"github.com/007AGENT57/Spender-backend/internal/metrics"
	"github.com/007AGENT57/Spender-backend/internal/notify"
	"github.com/007AGENT57/Spender-backend/internal/store"
	"github.com/007AGENT57/Spender-backend/internal/verify"
)

// TransferExecutor is the action half of the execute path; the guard half
// (BeginExecution) lives in the service so replays are classified before any
// funds move.
type TransferExecutor interface {
	Execute(ctx context.Context, txSignature string, approval model.ApprovalDetails) (string, error)
}

// VerificationRequest names a transaction to verify.
type VerificationRequest struct {
	OwnerAddress   string
	SpenderAddress string
	TxSignature    string
}

// VerificationResult is the verdict surfaced to the caller.
type VerificationResult struct {
	Verdict   model.ApprovalVerdict
	Reference string // opaque confirmation reference, set when Complete
}

// ConfirmOutcome reports what a confirmation event achieved.
type ConfirmOutcome struct {
	Executed          bool
	AlreadyProcessed  bool
	Status            model.ExecutionStatus
	TransferSignature string
}

// Service gates the delegated transfer.
type Service struct {
	client   rpc.LedgerClient
	verifier *verify.Verifier
	repo     store.ApprovalRepository
	executor TransferExecutor
	notifier notify.Notifier
	refs     *confirmref.Codec
	spender  string
	logger   *slog.Logger
}

func NewService(
	client rpc.LedgerClient,
	verifier *verify.Verifier,
	repo store.ApprovalRepository,
	executor TransferExecutor,
	notifier notify.Notifier,
	refs *confirmref.Codec,
	spender string,
	logger *slog.Logger,
) *Service {
	return &Service{
		client:   client,
		verifier: verifier,
		repo:     repo,
		executor: executor,
		notifier: notifier,
		refs:     refs,
		spender:  spender,
		logger:   logger.With("component", "gate"),
	}
}

// Verify fetches the named transaction from the ledger, verifies the atomic
// payment+approval pattern against the configured addresses, records the
// verdict, and notifies the operator channel with a confirmation affordance.
//
// The verdict is derived from the ledger, never from client-submitted claims:
// the request only names the transaction to inspect.
func (s *Service) Verify(ctx context.Context, req VerificationRequest) (VerificationResult, error) {
	if err := validateRequest(req, s.spender); err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return VerificationResult{}, err
	}

	fetched, err := s.client.GetTransaction(ctx, req.TxSignature)
	if err != nil {
		if errors.Is(err, rpc.ErrTransactionNotFound) {
			metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
			return VerificationResult{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, req.TxSignature)
		}
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return VerificationResult{}, fmt.Errorf("fetch transaction: %w", err)
	}

	tx, err := solanachain.ParseTransaction(fetched)
	if err != nil {
		if errors.Is(err, solanachain.ErrTransactionFailed) {
			metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
			return VerificationResult{}, fmt.Errorf("%w: transaction errored on chain", ErrTransactionNotFound)
		}
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return VerificationResult{}, fmt.Errorf("parse transaction: %w", err)
	}

	verdict, err := s.verifier.Verify(tx)
	if err != nil {
		if errors.Is(err, verify.ErrDelegateMismatch) {
			metrics.VerificationsTotal.WithLabelValues("delegate_mismatch").Inc()
			metrics.DelegateMismatchTotal.Inc()
			s.notifyBestEffort(ctx, fmt.Sprintf(
				"Security: transaction %s approves a delegate other than the configured spender. Not eligible for execution.",
				req.TxSignature))
		}
		return VerificationResult{}, err
	}

	if !verdict.Complete() {
		metrics.VerificationsTotal.WithLabelValues("incomplete").Inc()
		s.notifyBestEffort(ctx, fmt.Sprintf(
			"Transaction %s is incomplete: payment found=%t, approval found=%t.",
			req.TxSignature, verdict.PaymentFound, verdict.ApprovalFound))
		return VerificationResult{Verdict: verdict},
			fmt.Errorf("%w (payment=%t approval=%t)", ErrIncompletePattern, verdict.PaymentFound, verdict.ApprovalFound)
	}

	if err := s.repo.RecordVerdict(ctx, verdict); err != nil {
		if errors.Is(err, store.ErrAlreadyRecorded) {
			// Idempotent verification: report the verdict again without a
			// fresh notification spam, with a fresh reference so the
			// affordance still works.
			metrics.VerificationsTotal.WithLabelValues("verified").Inc()
			return VerificationResult{Verdict: verdict, Reference: s.encodeReference(verdict)}, nil
		}
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return VerificationResult{}, fmt.Errorf("record verdict: %w", err)
	}

	ref := s.encodeReference(verdict)
	if err := s.notifier.NotifyWithConfirmation(ctx, fmt.Sprintf(
		"Payment and delegation verified for transaction %s (amount %d). Confirm to execute the transfer.",
		verdict.TxSignature, verdict.Details.Amount), ref); err != nil {
		s.logger.Warn("confirmation notification failed", "tx_signature", verdict.TxSignature, "error", err)
	}

	metrics.VerificationsTotal.WithLabelValues("verified").Inc()
	s.logger.Info("verdict recorded",
		"tx_signature", verdict.TxSignature,
		"amount", verdict.Details.Amount,
		"source_account", verdict.Details.SourceAccount,
	)
	return VerificationResult{Verdict: verdict, Reference: ref}, nil
}

// Confirm handles the operator's confirmation event. The reference is
// authenticated before anything else; a malformed or tampered reference is
// rejected with zero side effects. The BeginExecution compare-and-set is the
// only gate between a double-click and a double transfer.
func (s *Service) Confirm(ctx context.Context, reference, eventID string) (ConfirmOutcome, error) {
	payload, err := s.refs.Decode(reference)
	if err != nil {
		return ConfirmOutcome{}, fmt.Errorf("%w: %v", ErrBadReference, err)
	}

	if err := s.repo.BeginExecution(ctx, payload.TxSignature); err != nil {
		return s.classifyReplay(ctx, payload.TxSignature, eventID, err)
	}

	approval := model.ApprovalDetails{
		SourceAccount: payload.SourceAccount,
		Delegate:      s.spender,
		Amount:        payload.Amount,
	}

	transferSig, err := s.executor.Execute(ctx, payload.TxSignature, approval)
	if err != nil {
		s.acknowledgeBestEffort(ctx, eventID, fmt.Sprintf(
			"Transfer for %s failed: %v", payload.TxSignature, err))
		return ConfirmOutcome{Status: model.StatusFailed}, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	s.acknowledgeBestEffort(ctx, eventID, fmt.Sprintf(
		"Transfer executed for %s. Signature: %s", payload.TxSignature, transferSig))
	return ConfirmOutcome{
		Executed:          true,
		Status:            model.StatusSucceeded,
		TransferSignature: transferSig,
	}, nil
}

// classifyReplay turns a lost BeginExecution race into the replay response:
// the original outcome is reported, never re-executed.
func (s *Service) classifyReplay(ctx context.Context, txSignature, eventID string, beginErr error) (ConfirmOutcome, error) {
	switch {
	case errors.Is(beginErr, store.ErrNotVerified):
		return ConfirmOutcome{}, fmt.Errorf("%w: transaction %s was never verified", ErrBadReference, txSignature)

	case errors.Is(beginErr, store.ErrAlreadyExecuting), errors.Is(beginErr, store.ErrAlreadyTerminal):
		metrics.ReplayRejectedTotal.Inc()
		outcome := ConfirmOutcome{AlreadyProcessed: true, Status: model.StatusExecuting}
		if rec, err := s.repo.Get(ctx, txSignature); err == nil {
			outcome.Status = rec.Status
			if rec.TransferSignature != nil {
				outcome.TransferSignature = *rec.TransferSignature
			}
		}
		s.acknowledgeBestEffort(ctx, eventID, fmt.Sprintf(
			"Transaction %s already processed (status %s).", txSignature, outcome.Status))
		return outcome, nil

	default:
		return ConfirmOutcome{}, fmt.Errorf("begin execution: %w", beginErr)
	}
}

func (s *Service) encodeReference(verdict model.ApprovalVerdict) string {
	return s.refs.Encode(confirmref.Payload{
		TxSignature:   verdict.TxSignature,
		SourceAccount: verdict.Details.SourceAccount,
		Amount:        verdict.Details.Amount,
		IssuedAt:      time.Now().UTC(),
	})
}

func (s *Service) notifyBestEffort(ctx context.Context, text string) {
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Warn("notification failed", "error", err)
	}
}

func (s *Service) acknowledgeBestEffort(ctx context.Context, eventID, text string) {
	if eventID == "" {
		return
	}
	if err := s.notifier.Acknowledge(ctx, eventID, text); err != nil {
		s.logger.Warn("acknowledgment failed", "error", err)
	}
}

func validateRequest(req VerificationRequest, configuredSpender string) error {
	if strings.TrimSpace(req.TxSignature) == "" {
		return fmt.Errorf("%w: txSignature is required", ErrInput)
	}
	if strings.TrimSpace(req.OwnerAddress) == "" {
		return fmt.Errorf("%w: ownerAddress is required", ErrInput)
	}
	if strings.TrimSpace(req.SpenderAddress) == "" {
		return fmt.Errorf("%w: spenderAddress is required", ErrInput)
	}
	if req.SpenderAddress != configuredSpender {
		return fmt.Errorf("%w: spenderAddress does not match the configured spender", ErrInput)
	}
	return nil
}
