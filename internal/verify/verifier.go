package verify

import (
	"errors"
	"fmt"
	"log/slog"

	solanachain "github.com/007AGENT57/Spender-backend/internal/chain/solana"
	"github.com/007AGENT57/Spender-backend/internal/domain/model"
)

// ErrDelegateMismatch marks a transaction carrying a token approval whose
// delegate is not the configured spender. This is distinct from an incomplete
// pattern: such a transaction looks superficially complete and must be
// rejected as adversarial, never folded into "not found".
var ErrDelegateMismatch = errors.New("approval delegate does not match configured spender")

// Config is the expected instruction pattern, fixed at startup.
type Config struct {
	ExpectedReceiver string
	ExpectedSpender  string
	TokenProgramID   string
}

// Verifier checks whether a fetched transaction atomically contains a native
// payment to the expected receiver and a token approval delegating to the
// expected spender.
type Verifier struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Verifier {
	return &Verifier{
		cfg:    cfg,
		logger: logger.With("component", "verifier"),
	}
}

// Verify decodes every top-level instruction independently. Instruction
// order does not matter and unrelated instructions are ignored. Any approval
// to a delegate other than the configured spender fails the entire
// verification with ErrDelegateMismatch before a verdict is produced.
//
// Only top-level instructions are scanned; instructions nested inside
// cross-program invocations are not inspected.
func (v *Verifier) Verify(tx *model.FetchedTransaction) (model.ApprovalVerdict, error) {
	verdict := model.ApprovalVerdict{TxSignature: tx.Signature}
	var details *model.ApprovalDetails

	for i, raw := range tx.Instructions {
		decoded := solanachain.DecodeInstruction(raw, v.cfg.TokenProgramID)

		switch decoded.Kind {
		case model.KindNativePayment:
			if decoded.Payment.Recipient == v.cfg.ExpectedReceiver {
				verdict.PaymentFound = true
			}

		case model.KindTokenApproval:
			approval := decoded.Approval
			if approval.Delegate != v.cfg.ExpectedSpender {
				v.logger.Warn("approval delegates to foreign address",
					"tx_signature", tx.Signature,
					"instruction_index", i,
					"delegate", approval.Delegate,
				)
				return model.ApprovalVerdict{TxSignature: tx.Signature},
					fmt.Errorf("instruction %d: %w", i, ErrDelegateMismatch)
			}
			verdict.ApprovalFound = true
			details = &model.ApprovalDetails{
				SourceAccount: approval.SourceAccount,
				Delegate:      approval.Delegate,
				Owner:         approval.Owner,
				Amount:        approval.Amount,
			}

		case model.KindUnrecognized:
			// Unrelated instruction, ignored.
		}
	}

	// Details accompany the verdict exactly when an approval was found; an
	// incomplete verdict is never recorded, so nothing is retained from it.
	if verdict.ApprovalFound {
		verdict.Details = details
	}

	v.logger.Info("verification verdict",
		"tx_signature", tx.Signature,
		"payment_found", verdict.PaymentFound,
		"approval_found", verdict.ApprovalFound,
	)
	return verdict, nil
}
