package solana

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

// SystemProgramID is the native system program ("11111111111111111111111111111111").
var SystemProgramID = solana.SystemProgramID.String()

// TokenProgramID is the canonical SPL token program. Deployments normally
// configure this value as the expected token program.
var TokenProgramID = solana.TokenProgramID.String()

const (
	// SPL token instruction tag for Approve.
	approveOpcode = 9
	// tag byte + little-endian u64 amount
	approveMinPayload = 9

	paymentRecipientIndex = 1
	approveAccountCount   = 3
)

// DecodeInstruction interprets one raw instruction. It never fails: anything
// it does not recognize, including truncated payloads and short account
// lists, comes back as KindUnrecognized so a single malformed instruction
// cannot poison the scan of the rest of the transaction.
//
// System program instructions are read as native payments; only the
// recipient (account index 1) is extracted, amount correctness is not this
// layer's contract. Instructions for expectedTokenProgram are read as SPL
// Approve when the first payload byte is opcode 9, with accounts
// [source, delegate, owner] and the approved amount in the next 8 bytes
// little-endian.
func DecodeInstruction(raw model.RawInstruction, expectedTokenProgram string) model.DecodedInstruction {
	switch raw.ProgramID {
	case SystemProgramID:
		if len(raw.Accounts) <= paymentRecipientIndex {
			return unrecognized()
		}
		return model.DecodedInstruction{
			Kind: model.KindNativePayment,
			Payment: &model.NativePayment{
				Recipient: raw.Accounts[paymentRecipientIndex],
			},
		}

	case expectedTokenProgram:
		if len(raw.Data) < approveMinPayload || raw.Data[0] != approveOpcode {
			return unrecognized()
		}
		if len(raw.Accounts) < approveAccountCount {
			return unrecognized()
		}
		return model.DecodedInstruction{
			Kind: model.KindTokenApproval,
			Approval: &model.TokenApproval{
				SourceAccount: raw.Accounts[0],
				Delegate:      raw.Accounts[1],
				Owner:         raw.Accounts[2],
				Amount:        binary.LittleEndian.Uint64(raw.Data[1:approveMinPayload]),
			},
		}

	default:
		return unrecognized()
	}
}

func unrecognized() model.DecodedInstruction {
	return model.DecodedInstruction{Kind: model.KindUnrecognized}
}
