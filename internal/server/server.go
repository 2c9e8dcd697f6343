package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/007AGENT57/Spender-backend/internal/gate"
	"github.com/007AGENT57/Spender-backend/internal/verify"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Server exposes the verification and confirmation flows over HTTP.
type Server struct {
	svc    *gate.Service
	logger *slog.Logger
}

func New(svc *gate.Service, logger *slog.Logger) *Server {
	return &Server{
		svc:    svc,
		logger: logger.With("component", "server"),
	}
}

// Handler builds the route table wrapped with audit logging and rate
// limiting. The returned rate limiter must be stopped on shutdown.
func (s *Server) Handler() (http.Handler, *RateLimitMiddleware) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/verifications", s.handleVerify)
	mux.HandleFunc("POST /v1/confirmations", s.handleConfirm)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	rl := NewRateLimitMiddleware(s.logger)
	return AuditMiddleware(s.logger, rl.Wrap(mux)), rl
}

type verifyRequest struct {
	OwnerAddress   string `json:"owner_address"`
	SpenderAddress string `json:"spender_address"`
	TxSignature    string `json:"tx_signature"`
}

type verifyResponse struct {
	TxSignature   string `json:"tx_signature"`
	PaymentFound  bool   `json:"payment_found"`
	ApprovalFound bool   `json:"approval_found"`
	Amount        string `json:"amount,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.svc.Verify(r.Context(), gate.VerificationRequest{
		OwnerAddress:   req.OwnerAddress,
		SpenderAddress: req.SpenderAddress,
		TxSignature:    req.TxSignature,
	})
	if err != nil {
		s.writeVerifyError(w, err)
		return
	}

	resp := verifyResponse{
		TxSignature:   res.Verdict.TxSignature,
		PaymentFound:  res.Verdict.PaymentFound,
		ApprovalFound: res.Verdict.ApprovalFound,
		Reference:     res.Reference,
	}
	if res.Verdict.Details != nil {
		resp.Amount = formatAmount(res.Verdict.Details.Amount)
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeVerifyError maps the gate error taxonomy onto HTTP. A delegate
// mismatch gets its own status and code: it signals a potentially
// adversarial transaction and must not blur into "incomplete".
func (s *Server) writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gate.ErrInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, gate.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction_not_found", err)
	case errors.Is(err, verify.ErrDelegateMismatch):
		writeError(w, http.StatusConflict, "delegate_mismatch", err)
	case errors.Is(err, gate.ErrIncompletePattern):
		writeError(w, http.StatusUnprocessableEntity, "incomplete_pattern", err)
	default:
		s.logger.Error("verification failed", "error", err)
		writeError(w, http.StatusBadGateway, "verification_failed", errors.New("verification failed"))
	}
}

type confirmRequest struct {
	Reference string `json:"reference"`
	EventID   string `json:"event_id"`
}

type confirmResponse struct {
	Executed          bool   `json:"executed"`
	AlreadyProcessed  bool   `json:"already_processed"`
	Status            string `json:"status,omitempty"`
	TransferSignature string `json:"transfer_signature,omitempty"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Reference == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", errors.New("reference is required"))
		return
	}

	outcome, err := s.svc.Confirm(r.Context(), req.Reference, req.EventID)
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrBadReference):
			writeError(w, http.StatusBadRequest, "bad_reference", err)
		case errors.Is(err, gate.ErrExecution):
			writeError(w, http.StatusBadGateway, "execution_failed", err)
		default:
			s.logger.Error("confirmation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "confirmation_failed", errors.New("confirmation failed"))
		}
		return
	}

	writeJSON(w, http.StatusOK, confirmResponse{
		Executed:          outcome.Executed,
		AlreadyProcessed:  outcome.AlreadyProcessed,
		Status:            outcome.Status.String(),
		TransferSignature: outcome.TransferSignature,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", errors.New("unreadable body"))
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", errors.New("malformed JSON"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorBody{Code: code, Error: err.Error()})
}

// Amounts cross the API as strings: u64 token amounts overflow JSON number
// consumers.
func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}
