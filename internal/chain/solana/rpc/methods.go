package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTransactionNotFound is returned when the ledger has no record of the
// requested signature at confirmed commitment.
var ErrTransactionNotFound = errors.New("transaction not found")

// GetTransaction returns a confirmed transaction by signature with raw
// (index-compiled) instructions.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionResult, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}
	result, err := c.call(ctx, "getTransaction", params)
	if err != nil {
		return nil, fmt.Errorf("getTransaction(%s): %w", signature, err)
	}

	// The RPC returns a JSON null result for unknown signatures.
	if len(result) == 0 || string(result) == "null" {
		return nil, ErrTransactionNotFound
	}

	var tx TransactionResult
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// GetLatestBlockhash returns the most recent blockhash at confirmed commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*BlockhashResult, error) {
	params := []interface{}{
		map[string]string{"commitment": "confirmed"},
	}
	result, err := c.call(ctx, "getLatestBlockhash", params)
	if err != nil {
		return nil, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	var wrapped struct {
		Value BlockhashResult `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal blockhash: %w", err)
	}
	return &wrapped.Value, nil
}

// SendTransaction submits a signed transaction (base64 wire encoding) and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	params := []interface{}{
		signedTxBase64,
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": "confirmed",
		},
	}
	result, err := c.call(ctx, "sendTransaction", params)
	if err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}

	var sig string
	if err := json.Unmarshal(result, &sig); err != nil {
		return "", fmt.Errorf("unmarshal signature: %w", err)
	}
	return sig, nil
}

// GetSignatureStatuses reports confirmation status for the given signatures,
// including ledger history beyond the recent status cache. The returned slice
// is positionally aligned with the input; unknown signatures yield nil entries.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	if len(signatures) == 0 {
		return nil, nil
	}
	params := []interface{}{
		signatures,
		map[string]bool{"searchTransactionHistory": true},
	}
	result, err := c.call(ctx, "getSignatureStatuses", params)
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}

	var wrapped struct {
		Value []*SignatureStatus `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal statuses: %w", err)
	}
	return wrapped.Value, nil
}
