package solana

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

func TestParseTransaction_ResolvesIndices(t *testing.T) {
	t.Parallel()

	data := approveData(42)
	res := &rpc.TransactionResult{
		Slot: 1000,
		Transaction: rpc.TransactionBody{
			Signatures: []string{"sig123"},
			Message: rpc.Message{
				AccountKeys: []string{"payer", "receiver", "source", "delegate", SystemProgramID, testTokenProgram},
				Instructions: []rpc.CompiledInstruction{
					{ProgramIDIndex: 4, Accounts: []int{0, 1}, Data: base58.Encode([]byte{2, 0, 0, 0})},
					{ProgramIDIndex: 5, Accounts: []int{2, 3, 0}, Data: base58.Encode(data)},
				},
			},
		},
	}

	tx, err := ParseTransaction(res)
	require.NoError(t, err)
	assert.Equal(t, "sig123", tx.Signature)
	assert.Equal(t, int64(1000), tx.Slot)
	require.Len(t, tx.Instructions, 2)

	assert.Equal(t, SystemProgramID, tx.Instructions[0].ProgramID)
	assert.Equal(t, []string{"payer", "receiver"}, tx.Instructions[0].Accounts)

	assert.Equal(t, testTokenProgram, tx.Instructions[1].ProgramID)
	assert.Equal(t, []string{"source", "delegate", "payer"}, tx.Instructions[1].Accounts)
	assert.Equal(t, data, tx.Instructions[1].Data)
}

func TestParseTransaction_FailedOnChain(t *testing.T) {
	t.Parallel()

	res := &rpc.TransactionResult{
		Transaction: rpc.TransactionBody{Signatures: []string{"sig"}},
		Meta:        &rpc.TransactionMeta{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
	}

	_, err := ParseTransaction(res)
	require.ErrorIs(t, err, ErrTransactionFailed)
}

func TestParseTransaction_MalformedReferences(t *testing.T) {
	t.Parallel()

	res := &rpc.TransactionResult{
		Transaction: rpc.TransactionBody{
			Signatures: []string{"sig"},
			Message: rpc.Message{
				AccountKeys: []string{"only"},
				Instructions: []rpc.CompiledInstruction{
					{ProgramIDIndex: 9, Accounts: []int{0}},         // program index out of range
					{ProgramIDIndex: 0, Accounts: []int{0, 7}},      // account index out of range
					{ProgramIDIndex: 0, Accounts: []int{0}, Data: "!!not-base58!!"},
				},
			},
		},
	}

	tx, err := ParseTransaction(res)
	require.NoError(t, err)
	require.Len(t, tx.Instructions, 3)

	// All three must degrade to something the decoder rejects, not break the scan.
	for _, raw := range tx.Instructions {
		decoded := DecodeInstruction(raw, testTokenProgram)
		assert.Equal(t, model.KindUnrecognized, decoded.Kind)
	}

	assert.Empty(t, tx.Instructions[0].ProgramID)
	assert.Nil(t, tx.Instructions[1].Accounts)
	assert.Nil(t, tx.Instructions[2].Data)
}

func TestParseTransaction_NoSignatures(t *testing.T) {
	t.Parallel()

	_, err := ParseTransaction(&rpc.TransactionResult{})
	require.Error(t, err)
}
