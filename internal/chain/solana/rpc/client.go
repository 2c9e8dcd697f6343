package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/007AGENT57/Spender-backend/internal/circuitbreaker"
	"github.com/007AGENT57/Spender-backend/internal/metrics"
)

// LedgerClient is the narrow Solana JSON-RPC surface the gate depends on.
type LedgerClient interface {
	// GetTransaction fetches a confirmed transaction by signature.
	// Returns ErrTransactionNotFound when the ledger has no such transaction.
	GetTransaction(ctx context.Context, signature string) (*TransactionResult, error)
	// GetLatestBlockhash returns a fresh recency token for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (*BlockhashResult, error)
	// SendTransaction submits a signed, base64-encoded transaction and returns
	// its signature. Never retried blindly by callers: a resubmission could
	// land twice.
	SendTransaction(ctx context.Context, signedTxBase64 string) (string, error)
	// GetSignatureStatuses reports the confirmation status of signatures,
	// searching the full transaction history.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

type Client struct {
	httpClient *http.Client
	rpcURL     string
	requestID  atomic.Int64
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

var _ LedgerClient = (*Client)(nil)

func NewClient(rpcURL string, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rpcURL:  rpcURL,
		breaker: breaker,
		logger:  logger.With("component", "solana_rpc"),
	}
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	start := time.Now()
	var result json.RawMessage
	err := c.breaker.Do(func() error {
		var callErr error
		result, callErr = c.callOnce(ctx, method, params)
		return callErr
	})
	metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return result, err
}

func (c *Client) callOnce(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := int(c.requestID.Add(1))
	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
