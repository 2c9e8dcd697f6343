package solana

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

const testTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func approveData(amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = approveOpcode
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

func TestDecodeInstruction_NativePayment(t *testing.T) {
	t.Parallel()

	raw := model.RawInstruction{
		ProgramID: SystemProgramID,
		Accounts:  []string{"payerAddr", "receiverAddr"},
		Data:      []byte{2, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0},
	}

	decoded := DecodeInstruction(raw, testTokenProgram)
	require.Equal(t, model.KindNativePayment, decoded.Kind)
	require.NotNil(t, decoded.Payment)
	assert.Equal(t, "receiverAddr", decoded.Payment.Recipient)
	assert.Nil(t, decoded.Approval)
}

func TestDecodeInstruction_NativePayment_MissingRecipient(t *testing.T) {
	t.Parallel()

	raw := model.RawInstruction{
		ProgramID: SystemProgramID,
		Accounts:  []string{"payerAddr"},
	}

	decoded := DecodeInstruction(raw, testTokenProgram)
	assert.Equal(t, model.KindUnrecognized, decoded.Kind)
}

func TestDecodeInstruction_TokenApproval(t *testing.T) {
	t.Parallel()

	raw := model.RawInstruction{
		ProgramID: testTokenProgram,
		Accounts:  []string{"sourceAcct", "delegateAddr", "ownerAddr"},
		Data:      approveData(500000),
	}

	decoded := DecodeInstruction(raw, testTokenProgram)
	require.Equal(t, model.KindTokenApproval, decoded.Kind)
	require.NotNil(t, decoded.Approval)
	assert.Equal(t, "sourceAcct", decoded.Approval.SourceAccount)
	assert.Equal(t, "delegateAddr", decoded.Approval.Delegate)
	assert.Equal(t, "ownerAddr", decoded.Approval.Owner)
	assert.Equal(t, uint64(500000), decoded.Approval.Amount)
}

func TestDecodeInstruction_Unrecognized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  model.RawInstruction
	}{
		{
			name: "unknown program",
			raw: model.RawInstruction{
				ProgramID: "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo",
				Accounts:  []string{"a", "b", "c"},
				Data:      approveData(1),
			},
		},
		{
			name: "token program wrong opcode",
			raw: model.RawInstruction{
				ProgramID: testTokenProgram,
				Accounts:  []string{"a", "b", "c"},
				Data:      append([]byte{3}, approveData(1)[1:]...), // Transfer, not Approve
			},
		},
		{
			name: "approve payload too short",
			raw: model.RawInstruction{
				ProgramID: testTokenProgram,
				Accounts:  []string{"a", "b", "c"},
				Data:      []byte{approveOpcode, 1, 2},
			},
		},
		{
			name: "approve too few accounts",
			raw: model.RawInstruction{
				ProgramID: testTokenProgram,
				Accounts:  []string{"a", "b"},
				Data:      approveData(1),
			},
		},
		{
			name: "empty payload",
			raw: model.RawInstruction{
				ProgramID: testTokenProgram,
				Accounts:  []string{"a", "b", "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decoded := DecodeInstruction(tt.raw, testTokenProgram)
			assert.Equal(t, model.KindUnrecognized, decoded.Kind)
			assert.Nil(t, decoded.Payment)
			assert.Nil(t, decoded.Approval)
		})
	}
}

func TestDecodeInstruction_AmountLittleEndian(t *testing.T) {
	t.Parallel()

	data := make([]byte, 9)
	data[0] = approveOpcode
	data[1] = 0x01 // low byte first
	data[8] = 0x02 // high byte last

	raw := model.RawInstruction{
		ProgramID: testTokenProgram,
		Accounts:  []string{"s", "d", "o"},
		Data:      data,
	}

	decoded := DecodeInstruction(raw, testTokenProgram)
	require.Equal(t, model.KindTokenApproval, decoded.Kind)
	assert.Equal(t, uint64(0x0200000000000001), decoded.Approval.Amount)
}
