package rpc

import "encoding/json"

// JSON-RPC request/response envelope

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// getTransaction response, encoding "json". Instruction account references
// and program ids are indices into the message account key table; Data is
// base58 on the wire.
type TransactionResult struct {
	Slot        int64           `json:"slot"`
	BlockTime   *int64          `json:"blockTime"`
	Transaction TransactionBody `json:"transaction"`
	Meta        *TransactionMeta `json:"meta"`
}

type TransactionBody struct {
	Signatures []string `json:"signatures"`
	Message    Message  `json:"message"`
}

type Message struct {
	AccountKeys     []string             `json:"accountKeys"`
	Instructions    []CompiledInstruction `json:"instructions"`
	RecentBlockhash string               `json:"recentBlockhash"`
}

type CompiledInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

type TransactionMeta struct {
	Err         interface{} `json:"err"`
	Fee         uint64      `json:"fee"`
	LogMessages []string    `json:"logMessages"`
}

// getLatestBlockhash response
type BlockhashResult struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// getSignatureStatuses response; a nil entry means the ledger does not know
// the signature.
type SignatureStatus struct {
	Slot               int64       `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus *string     `json:"confirmationStatus"`
}
