package solana

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

// ErrTransactionFailed marks a transaction that is on the ledger but errored
// during execution; none of its instructions took effect.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// ParseTransaction resolves a getTransaction result into the top-level raw
// instruction list. Only top-level instructions are represented: instructions
// nested inside cross-program invocations are not inspected, a known
// limitation of the verification scan.
func ParseTransaction(res *rpc.TransactionResult) (*model.FetchedTransaction, error) {
	if res == nil {
		return nil, fmt.Errorf("nil transaction result")
	}
	if res.Meta != nil && res.Meta.Err != nil {
		return nil, ErrTransactionFailed
	}
	if len(res.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("transaction has no signatures")
	}

	msg := res.Transaction.Message
	out := &model.FetchedTransaction{
		Signature:    res.Transaction.Signatures[0],
		Slot:         res.Slot,
		Instructions: make([]model.RawInstruction, 0, len(msg.Instructions)),
	}

	for _, ins := range msg.Instructions {
		out.Instructions = append(out.Instructions, resolveInstruction(ins, msg.AccountKeys))
	}
	return out, nil
}

// resolveInstruction maps compiled index references onto the account key
// table. Out-of-range indices or undecodable payloads produce an instruction
// that decodes as unrecognized instead of aborting the whole parse.
func resolveInstruction(ins rpc.CompiledInstruction, keys []string) model.RawInstruction {
	var raw model.RawInstruction

	if ins.ProgramIDIndex >= 0 && ins.ProgramIDIndex < len(keys) {
		raw.ProgramID = keys[ins.ProgramIDIndex]
	}

	raw.Accounts = make([]string, 0, len(ins.Accounts))
	for _, idx := range ins.Accounts {
		if idx < 0 || idx >= len(keys) {
			// Poisoned account table reference; drop the whole account list
			// so the instruction cannot be half-interpreted.
			raw.Accounts = nil
			return raw
		}
		raw.Accounts = append(raw.Accounts, keys[idx])
	}

	if ins.Data != "" {
		if data, err := base58.Decode(ins.Data); err == nil {
			raw.Data = data
		}
	}
	return raw
}
