package gate

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	solanachain "github.com/007AGENT57/Spender-backend/internal/chain/solana"
	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	rpcmocks "github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc/mocks"
	"github.com/007AGENT57/Spender-backend/internal/confirmref"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
	"github.com/007AGENT57/Spender-backend/internal/notify"
	"github.com/007AGENT57/Spender-backend/internal/store"
	"github.com/007AGENT57/Spender-backend/internal/verify"
)

const (
	receiver = "Rcv1111111111111111111111111111111111111111"
	spender  = "Spd1111111111111111111111111111111111111111"
	owner    = "Own1111111111111111111111111111111111111111"
	txSig    = "5SigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSigSig"
)

// fakeExecutor counts executions, records outcomes like the real executor,
// and returns a fixed signature.
type fakeExecutor struct {
	mu    sync.Mutex
	repo  store.ApprovalRepository
	calls int
	err   error
}

func (f *fakeExecutor) Execute(ctx context.Context, txSignature string, _ model.ApprovalDetails) (string, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()

	if err != nil {
		reason := err.Error()
		_ = f.repo.CompleteExecution(ctx, txSignature, model.StatusFailed, nil, &reason)
		return "", err
	}
	sig := "transferSig"
	_ = f.repo.CompleteExecution(ctx, txSignature, model.StatusSucceeded, &sig, nil)
	return sig, nil
}

// fakeNotifier records outbound traffic.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	refs     []string
	acks     []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) NotifyWithConfirmation(_ context.Context, text, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	f.refs = append(f.refs, ref)
	return nil
}

func (f *fakeNotifier) Acknowledge(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, text)
	return nil
}

var _ notify.Notifier = (*fakeNotifier)(nil)

type fixture struct {
	svc      *Service
	client   *rpcmocks.MockLedgerClient
	repo     *store.MemoryRepository
	executor *fakeExecutor
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	client := rpcmocks.NewMockLedgerClient(ctrl)
	repo := store.NewMemoryRepository()
	exec := &fakeExecutor{repo: repo}
	notifier := &fakeNotifier{}

	verifier := verify.New(verify.Config{
		ExpectedReceiver: receiver,
		ExpectedSpender:  spender,
		TokenProgramID:   solanachain.TokenProgramID,
	}, slog.Default())

	refs := confirmref.New([]byte("test-key-test-key-test-key-test!"), time.Hour)

	return &fixture{
		svc:      NewService(client, verifier, repo, exec, notifier, refs, spender, slog.Default()),
		client:   client,
		repo:     repo,
		executor: exec,
		notifier: notifier,
	}
}

func approveData(amount uint64) string {
	data := make([]byte, 9)
	data[0] = 9
	binary.LittleEndian.PutUint64(data[1:], amount)
	return base58.Encode(data)
}

// ledgerTx assembles a getTransaction result with a system payment and an
// SPL approve, mirroring the wire shape of encoding "json".
func ledgerTx(paymentTo, delegate string, amount uint64) *rpc.TransactionResult {
	return &rpc.TransactionResult{
		Slot: 42,
		Transaction: rpc.TransactionBody{
			Signatures: []string{txSig},
			Message: rpc.Message{
				AccountKeys: []string{
					owner,          // 0 fee payer
					paymentTo,      // 1
					"SrcTokenAcct", // 2
					delegate,       // 3
					solanachain.SystemProgramID, // 4
					solanachain.TokenProgramID,  // 5
				},
				Instructions: []rpc.CompiledInstruction{
					{ProgramIDIndex: 4, Accounts: []int{0, 1}, Data: base58.Encode([]byte{2, 0, 0, 0})},
					{ProgramIDIndex: 5, Accounts: []int{2, 3, 0}, Data: approveData(amount)},
				},
			},
		},
	}
}

func validRequest() VerificationRequest {
	return VerificationRequest{
		OwnerAddress:   owner,
		SpenderAddress: spender,
		TxSignature:    txSig,
	}
}

// Scenario A: complete pattern verifies and records a VERIFIED record with
// the approved amount.
func TestVerify_CompletePattern(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(ledgerTx(receiver, spender, 500000), nil)

	res, err := f.svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, res.Verdict.PaymentFound)
	assert.True(t, res.Verdict.ApprovalFound)
	require.NotNil(t, res.Verdict.Details)
	assert.Equal(t, uint64(500000), res.Verdict.Details.Amount)
	assert.NotEmpty(t, res.Reference)

	rec, err := f.repo.Get(context.Background(), txSig)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, rec.Status)

	// Operator got exactly one confirmation affordance carrying the reference.
	require.Len(t, f.notifier.refs, 1)
	assert.Equal(t, res.Reference, f.notifier.refs[0])
}

// Scenario B: delegate mismatch is a security violation, not an incomplete
// pattern, and leaves no record.
func TestVerify_DelegateMismatch(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(ledgerTx(receiver, "Att4ck3r111111111111111111111111111111111111", 500000), nil)

	_, err := f.svc.Verify(context.Background(), validRequest())
	require.ErrorIs(t, err, verify.ErrDelegateMismatch)

	_, err = f.repo.Get(context.Background(), txSig)
	require.ErrorIs(t, err, store.ErrNotFound)

	// The operator channel heard about it.
	require.NotEmpty(t, f.notifier.messages)
	assert.Contains(t, f.notifier.messages[0], "Security")
}

func TestVerify_IncompletePattern(t *testing.T) {
	f := newFixture(t)

	tx := ledgerTx(receiver, spender, 10)
	tx.Transaction.Message.Instructions = tx.Transaction.Message.Instructions[:1] // payment only

	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(tx, nil)

	_, err := f.svc.Verify(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrIncompletePattern)

	_, err = f.repo.Get(context.Background(), txSig)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerify_InputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  VerificationRequest
	}{
		{"missing signature", VerificationRequest{OwnerAddress: owner, SpenderAddress: spender}},
		{"missing owner", VerificationRequest{SpenderAddress: spender, TxSignature: txSig}},
		{"missing spender", VerificationRequest{OwnerAddress: owner, TxSignature: txSig}},
		{"foreign spender", VerificationRequest{OwnerAddress: owner, SpenderAddress: "Other", TxSignature: txSig}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Verify(ctx, tt.req)
			require.ErrorIs(t, err, ErrInput)
		})
	}

	// Input errors must not touch the ledger or the operator channel.
	assert.Empty(t, f.notifier.messages)
}

func TestVerify_NotFound(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(nil, rpc.ErrTransactionNotFound)

	_, err := f.svc.Verify(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestVerify_FailedOnChainTreatedAsNotFound(t *testing.T) {
	f := newFixture(t)

	tx := ledgerTx(receiver, spender, 10)
	tx.Meta = &rpc.TransactionMeta{Err: "InstructionError"}

	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(tx, nil)

	_, err := f.svc.Verify(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestVerify_Idempotent(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(ledgerTx(receiver, spender, 10), nil).
		Times(2)

	_, err := f.svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)
	res2, err := f.svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, res2.Reference)

	// Only the first verification notifies.
	assert.Len(t, f.notifier.refs, 1)
}

func verifyAndGetReference(t *testing.T, f *fixture, amount uint64) string {
	t.Helper()
	f.client.EXPECT().
		GetTransaction(gomock.Any(), txSig).
		Return(ledgerTx(receiver, spender, amount), nil)

	res, err := f.svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)
	return res.Reference
}

func TestConfirm_ExecutesOnce(t *testing.T) {
	f := newFixture(t)
	ref := verifyAndGetReference(t, f, 500000)

	outcome, err := f.svc.Confirm(context.Background(), ref, "https://hooks.example.com/reply")
	require.NoError(t, err)
	assert.True(t, outcome.Executed)
	assert.Equal(t, "transferSig", outcome.TransferSignature)
	assert.Equal(t, 1, f.executor.calls)
}

// Scenario C: two confirmations in quick succession produce exactly one
// transfer and two acknowledgments, the second stating already processed.
func TestConfirm_DoubleClickSingleTransfer(t *testing.T) {
	f := newFixture(t)
	ref := verifyAndGetReference(t, f, 500000)
	ctx := context.Background()

	first, err := f.svc.Confirm(ctx, ref, "https://hooks.example.com/reply")
	require.NoError(t, err)
	assert.True(t, first.Executed)

	// fakeExecutor succeeded, so the record is terminal now.
	second, err := f.svc.Confirm(ctx, ref, "https://hooks.example.com/reply")
	require.NoError(t, err)
	assert.False(t, second.Executed)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, model.StatusSucceeded, second.Status)
	assert.Equal(t, "transferSig", second.TransferSignature)

	assert.Equal(t, 1, f.executor.calls, "exactly one transfer submission")
	require.Len(t, f.notifier.acks, 2)
	assert.Contains(t, f.notifier.acks[1], "already processed")
}

func TestConfirm_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ref := verifyAndGetReference(t, f, 500000)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	executed := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.svc.Confirm(ctx, ref, "")
			if err == nil && outcome.Executed {
				executed <- true
			}
		}()
	}
	wg.Wait()
	close(executed)

	wins := 0
	for range executed {
		wins++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, f.executor.calls)
}

func TestConfirm_TamperedReferenceNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ref := verifyAndGetReference(t, f, 500000)

	raw, err := base64.RawURLEncoding.DecodeString(ref)
	require.NoError(t, err)
	raw[len(raw)/2] ^= 0xFF
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	_, err = f.svc.Confirm(context.Background(), tampered, "https://hooks.example.com/reply")
	require.ErrorIs(t, err, ErrBadReference)

	assert.Zero(t, f.executor.calls)
	assert.Empty(t, f.notifier.acks)

	rec, err := f.repo.Get(context.Background(), txSig)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, rec.Status, "record untouched")
}

func TestConfirm_UnknownReferenceRejected(t *testing.T) {
	f := newFixture(t)

	// Authentic reference for a transaction that was never verified.
	refs := confirmref.New([]byte("test-key-test-key-test-key-test!"), time.Hour)
	ref := refs.Encode(confirmref.Payload{
		TxSignature:   "neverVerified",
		SourceAccount: "src",
		Amount:        1,
		IssuedAt:      time.Now(),
	})

	_, err := f.svc.Confirm(context.Background(), ref, "")
	require.ErrorIs(t, err, ErrBadReference)
	assert.Zero(t, f.executor.calls)
}

func TestConfirm_ExecutionFailureSurfaced(t *testing.T) {
	f := newFixture(t)
	ref := verifyAndGetReference(t, f, 500000)
	f.executor.err = errors.New("blockhash not found")

	_, err := f.svc.Confirm(context.Background(), ref, "https://hooks.example.com/reply")
	require.ErrorIs(t, err, ErrExecution)

	require.Len(t, f.notifier.acks, 1)
	assert.Contains(t, f.notifier.acks[0], "failed")
}
