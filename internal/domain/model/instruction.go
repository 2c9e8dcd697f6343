package model

// RawInstruction is one top-level instruction from a fetched transaction:
// the program it targets, the resolved account addresses it references in
// order, and its opaque payload bytes.
type RawInstruction struct {
	ProgramID string
	Accounts  []string
	Data      []byte
}

// InstructionKind tags the decoded variants. Adding a kind here forces the
// verifier's switch to account for it.
type InstructionKind int

const (
	KindUnrecognized InstructionKind = iota
	KindNativePayment
	KindTokenApproval
)

// DecodedInstruction is the typed interpretation of a RawInstruction.
// Exactly one of Payment / Approval is set, matching Kind.
type DecodedInstruction struct {
	Kind     InstructionKind
	Payment  *NativePayment
	Approval *TokenApproval
}

// NativePayment is a system-program transfer. Only the recipient identity
// matters downstream; the decoder does not validate amounts.
type NativePayment struct {
	Recipient string
}

// TokenApproval is an SPL token Approve: owner grants delegate the right to
// move up to Amount units out of SourceAccount.
type TokenApproval struct {
	SourceAccount string
	Delegate      string
	Owner         string
	Amount        uint64
}

// FetchedTransaction is a confirmed transaction as seen by the verifier:
// its signature and top-level instructions. Inner (cross-program) instructions
// are not represented; see the verifier for the scan contract.
type FetchedTransaction struct {
	Signature    string
	Slot         int64
	Instructions []RawInstruction
}
