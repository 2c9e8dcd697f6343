// Package reconciliation sweeps the approval ledger for executions that
// stayed in EXECUTING past a cutoff. A record can get stuck when the process
// dies between submitting the transfer and writing the terminal state: the
// transfer may or may not have landed, and only the ledger can say which.
package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
	"github.com/007AGENT57/Spender-backend/internal/metrics"
	"github.com/007AGENT57/Spender-backend/internal/notify"
	"github.com/007AGENT57/Spender-backend/internal/store"
)

const sweepBatchSize = 50

// RunResult aggregates a single sweep.
type RunResult struct {
	RunID      string    `json:"run_id"`
	Scanned    int       `json:"scanned"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Unresolved int       `json:"unresolved"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Service resolves stuck executions against the on-chain truth.
type Service struct {
	client   rpc.LedgerClient
	repo     store.ApprovalRepository
	notifier notify.Notifier
	cutoff   time.Duration
	logger   *slog.Logger
}

func NewService(
	client rpc.LedgerClient,
	repo store.ApprovalRepository,
	notifier notify.Notifier,
	cutoff time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		client:   client,
		repo:     repo,
		notifier: notifier,
		cutoff:   cutoff,
		logger:   logger.With("component", "reconciliation"),
	}
}

// Sweep scans for stuck EXECUTING records and resolves the ones whose
// outbound transfer signature is known. Records without a signature cannot
// be resolved automatically: the transfer was never observed leaving the
// process, and flipping them to FAILED without proof could double-pay on a
// retry. Those are escalated to the operator channel instead.
func (s *Service) Sweep(ctx context.Context) (RunResult, error) {
	result := RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	records, err := s.repo.ListStuckExecuting(ctx, s.cutoff, sweepBatchSize)
	if err != nil {
		return result, fmt.Errorf("list stuck executions: %w", err)
	}
	result.Scanned = len(records)
	metrics.StuckExecutionsGauge.Set(float64(len(records)))

	for _, rec := range records {
		switch {
		case rec.TransferSignature != nil:
			if err := s.resolveSubmitted(ctx, rec, &result); err != nil {
				s.logger.Error("resolve stuck execution",
					"run_id", result.RunID,
					"tx_signature", rec.TxSignature,
					"error", err,
				)
				result.Unresolved++
			}
		default:
			result.Unresolved++
			s.escalate(ctx, rec)
		}
	}

	result.FinishedAt = time.Now().UTC()
	s.logger.Info("sweep finished",
		"run_id", result.RunID,
		"scanned", result.Scanned,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"unresolved", result.Unresolved,
	)
	return result, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

func (s *Service) resolveSubmitted(ctx context.Context, rec model.ExecutionRecord, result *RunResult) error {
	statuses, err := s.client.GetSignatureStatuses(ctx, []string{*rec.TransferSignature})
	if err != nil {
		return fmt.Errorf("get signature status: %w", err)
	}
	if len(statuses) == 0 || statuses[0] == nil {
		// The ledger does not know the signature. Either it never landed or
		// it aged out of the status cache; leave it for the operator.
		result.Unresolved++
		s.escalate(ctx, rec)
		return nil
	}

	status := statuses[0]
	if status.Err != nil {
		reason := fmt.Sprintf("transfer %s failed on chain: %v", *rec.TransferSignature, status.Err)
		if err := s.repo.CompleteExecution(ctx, rec.TxSignature, model.StatusFailed, rec.TransferSignature, &reason); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		result.Failed++
		metrics.StuckExecutionsResolved.WithLabelValues("failed").Inc()
		s.logger.Warn("stuck execution resolved as failed",
			"tx_signature", rec.TxSignature,
			"transfer_signature", *rec.TransferSignature,
		)
		return nil
	}

	if err := s.repo.CompleteExecution(ctx, rec.TxSignature, model.StatusSucceeded, rec.TransferSignature, nil); err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	result.Succeeded++
	metrics.StuckExecutionsResolved.WithLabelValues("succeeded").Inc()
	s.logger.Info("stuck execution resolved as succeeded",
		"tx_signature", rec.TxSignature,
		"transfer_signature", *rec.TransferSignature,
	)
	return nil
}

func (s *Service) escalate(ctx context.Context, rec model.ExecutionRecord) {
	text := fmt.Sprintf(
		"Execution for %s has been stuck in EXECUTING since %s with no confirmed transfer signature. Manual reconciliation required.",
		rec.TxSignature, rec.UpdatedAt.UTC().Format(time.RFC3339))
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Warn("escalation notification failed", "tx_signature", rec.TxSignature, "error", err)
	}
}
