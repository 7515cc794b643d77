package alchemy

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Category is an asset transfer category.
type Category string

const (
	CategoryExternal Category = "external"
	CategoryInternal Category = "internal"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is an error object returned by the provider.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// AssetTransfersParams are the parameters of alchemy_getAssetTransfers.
type AssetTransfersParams struct {
	FromBlock    string     `json:"fromBlock,omitempty"`
	ToBlock      string     `json:"toBlock,omitempty"`
	FromAddress  string     `json:"fromAddress,omitempty"`
	ToAddress    string     `json:"toAddress,omitempty"`
	Category     []Category `json:"category"`
	WithMetadata bool       `json:"withMetadata"`
	MaxCount     string     `json:"maxCount,omitempty"`
	PageKey      string     `json:"pageKey,omitempty"`
}

// RawContract carries the raw on-chain value of a transfer.
type RawContract struct {
	Value   string `json:"value"`
	Address string `json:"address"`
	Decimal string `json:"decimal"`
}

// TransferMetadata carries block metadata when withMetadata is set.
type TransferMetadata struct {
	BlockTimestamp string `json:"blockTimestamp"`
}

// Transfer is one asset transfer as reported by the provider.
type Transfer struct {
	BlockNum    string              `json:"blockNum"`
	UniqueID    string              `json:"uniqueId"`
	Hash        string              `json:"hash"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Value       decimal.NullDecimal `json:"value"`
	Asset       string              `json:"asset"`
	Category    Category            `json:"category"`
	RawContract *RawContract        `json:"rawContract"`
	Metadata    *TransferMetadata   `json:"metadata"`
}

// AssetTransfersResult is one page of transfers.
type AssetTransfersResult struct {
	Transfers []Transfer `json:"transfers"`
	PageKey   string     `json:"pageKey"`
}
