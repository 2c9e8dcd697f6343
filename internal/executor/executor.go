package executor

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
	"github.com/007AGENT57/Spender-backend/internal/metrics"
	"github.com/007AGENT57/Spender-backend/internal/store"
)

// SPL token instruction tag for Transfer.
const transferOpcode = 3

// Config fixes where executed funds go and which token program is exercised.
type Config struct {
	DestinationTokenAccount solana.PublicKey
	TokenProgramID          solana.PublicKey
}

// Executor turns a claimed approval into exactly one delegated transfer.
// Callers must have won BeginExecution for the transaction signature before
// calling Execute; the guard lives in the gate service, the action here.
type Executor struct {
	client     rpc.LedgerClient
	repo       store.ApprovalRepository
	cfg        Config
	credential solana.PrivateKey // spender key; held in memory only, never logged
	logger     *slog.Logger
}

func New(client rpc.LedgerClient, repo store.ApprovalRepository, cfg Config, credential solana.PrivateKey, logger *slog.Logger) *Executor {
	return &Executor{
		client:     client,
		repo:       repo,
		cfg:        cfg,
		credential: credential,
		logger:     logger.With("component", "executor"),
	}
}

// SpenderAddress is the credential's public identity, the address approvals
// must delegate to.
func (e *Executor) SpenderAddress() string {
	return e.credential.PublicKey().String()
}

// Execute builds, signs, and submits the transfer moving approval.Amount
// units from approval.SourceAccount to the configured destination, signed by
// the spender acting as delegate. The outcome is always recorded: the record
// leaves EXECUTING on both the happy and unhappy path. The returned string is
// the transfer signature on success.
//
// The submitted transaction is never resubmitted on error: a blind retry
// after an ambiguous failure could land the transfer twice.
func (e *Executor) Execute(ctx context.Context, txSignature string, approval model.ApprovalDetails) (string, error) {
	transferSig, err := e.submit(ctx, approval)
	if err != nil {
		reason := err.Error()
		if recErr := e.repo.CompleteExecution(ctx, txSignature, model.StatusFailed, nil, &reason); recErr != nil {
			e.logger.Error("failed to record execution failure",
				"tx_signature", txSignature, "error", recErr)
		}
		metrics.ExecutionsTotal.WithLabelValues("failed").Inc()
		return "", err
	}

	// Submission landed; record the signature immediately, then finalize.
	// No suspension points in between keeps the reconciliation gap at a
	// crash-only window.
	if err := e.repo.MarkSubmitted(ctx, txSignature, transferSig); err != nil {
		e.logger.Error("failed to mark submission",
			"tx_signature", txSignature, "transfer_signature", transferSig, "error", err)
	}
	if err := e.repo.CompleteExecution(ctx, txSignature, model.StatusSucceeded, &transferSig, nil); err != nil {
		e.logger.Error("failed to record execution success",
			"tx_signature", txSignature, "transfer_signature", transferSig, "error", err)
		metrics.ExecutionsTotal.WithLabelValues("failed").Inc()
		return transferSig, fmt.Errorf("record success: %w", err)
	}

	metrics.ExecutionsTotal.WithLabelValues("succeeded").Inc()
	e.logger.Info("delegated transfer executed",
		"tx_signature", txSignature,
		"transfer_signature", transferSig,
		"amount", approval.Amount,
	)
	return transferSig, nil
}

func (e *Executor) submit(ctx context.Context, approval model.ApprovalDetails) (string, error) {
	source, err := solana.PublicKeyFromBase58(approval.SourceAccount)
	if err != nil {
		return "", fmt.Errorf("parse source account: %w", err)
	}

	spender := e.credential.PublicKey()
	if approval.Delegate != spender.String() {
		// The verifier guarantees this; a mismatch here means corrupted state.
		return "", fmt.Errorf("approval delegate %s is not the spender", approval.Delegate)
	}

	// Fresh recency token right before submission to avoid stale-blockhash
	// rejection.
	blockhash, err := e.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}
	recent, err := solana.HashFromBase58(blockhash.Blockhash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash: %w", err)
	}

	data := make([]byte, 9)
	data[0] = transferOpcode
	binary.LittleEndian.PutUint64(data[1:], approval.Amount)

	// Authority is the spender as delegate, not the owner: exercising the
	// prior on-chain approval is the entire point.
	ix := solana.NewInstruction(
		e.cfg.TokenProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(source, true, false),
			solana.NewAccountMeta(e.cfg.DestinationTokenAccount, true, false),
			solana.NewAccountMeta(spender, false, true),
		},
		data,
	)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent,
		solana.TransactionPayer(spender),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(spender) {
			return &e.credential
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := e.client.SendTransaction(ctx, base64.StdEncoding.EncodeToString(wire))
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}
	return sig, nil
}
