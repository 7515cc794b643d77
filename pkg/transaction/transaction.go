package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/wallet-indexer/pkg/address"
)

// Direction of a transfer relative to the watched address.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ParseDirection validates a direction label.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionSent:
		return DirectionSent, true
	case DirectionReceived:
		return DirectionReceived, true
	default:
		return "", false
	}
}

// Transaction is a normalized native-value transfer touching a watched address.
// ID is the transaction hash.
type Transaction struct {
	ID          string          `json:"id"`
	Address     string          `json:"address"`
	Source      address.Source  `json:"source"`
	Chain       address.Chain   `json:"chain"`
	Direction   Direction       `json:"direction"`
	FromAddress string          `json:"fromAddress"`
	ToAddress   string          `json:"toAddress"`
	Value       string          `json:"value"`
	ValueInEth  decimal.Decimal `json:"valueInEth"`
	ValueInUsd  decimal.Decimal `json:"valueInUsd"`
	Timestamp   int64           `json:"timestamp"`
	BlockNumber int64           `json:"blockNumber"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Page is one page of transactions. An empty NextCursor means there is no more data.
type Page struct {
	Transactions []*Transaction
	NextCursor   string
}
