package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

func completeVerdict(sig string) model.ApprovalVerdict {
	return model.ApprovalVerdict{
		TxSignature:   sig,
		PaymentFound:  true,
		ApprovalFound: true,
		Details: &model.ApprovalDetails{
			SourceAccount: "src",
			Delegate:      "spender",
			Owner:         "owner",
			Amount:        500000,
		},
	}
}

func TestMemoryRepository_RecordVerdictOnce(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.RecordVerdict(ctx, completeVerdict("sig1")))
	require.ErrorIs(t, repo.RecordVerdict(ctx, completeVerdict("sig1")), ErrAlreadyRecorded)

	rec, err := repo.Get(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, rec.Status)
	assert.Equal(t, uint64(500000), rec.Amount)
}

func TestMemoryRepository_BeginExecutionLifecycle(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	require.ErrorIs(t, repo.BeginExecution(ctx, "missing"), ErrNotVerified)

	require.NoError(t, repo.RecordVerdict(ctx, completeVerdict("sig1")))
	require.NoError(t, repo.BeginExecution(ctx, "sig1"))
	require.ErrorIs(t, repo.BeginExecution(ctx, "sig1"), ErrAlreadyExecuting)

	sig := "transferSig"
	require.NoError(t, repo.CompleteExecution(ctx, "sig1", model.StatusSucceeded, &sig, nil))
	require.ErrorIs(t, repo.BeginExecution(ctx, "sig1"), ErrAlreadyTerminal)

	// Terminal records are immutable.
	reason := "late failure"
	require.ErrorIs(t, repo.CompleteExecution(ctx, "sig1", model.StatusFailed, nil, &reason), ErrAlreadyTerminal)

	rec, err := repo.Get(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, rec.Status)
	require.NotNil(t, rec.TransferSignature)
	assert.Equal(t, "transferSig", *rec.TransferSignature)
}

func TestMemoryRepository_BeginExecutionConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.RecordVerdict(ctx, completeVerdict("sig1")))

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.BeginExecution(ctx, "sig1") == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one confirmation may claim the record")
}

func TestMemoryRepository_ListStuckExecuting(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	repo.now = func() time.Time { return base }

	require.NoError(t, repo.RecordVerdict(ctx, completeVerdict("old")))
	require.NoError(t, repo.BeginExecution(ctx, "old"))
	require.NoError(t, repo.RecordVerdict(ctx, completeVerdict("fresh")))

	repo.now = func() time.Time { return base.Add(10 * time.Minute) }
	require.NoError(t, repo.BeginExecution(ctx, "fresh"))

	stuck, err := repo.ListStuckExecuting(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "old", stuck[0].TxSignature)
}
