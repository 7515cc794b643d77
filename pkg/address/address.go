package address

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Source identifies the directory an address was discovered in.
type Source string

const (
	SourcePrivy  Source = "privy"  // identity-wallet provider
	SourceBridge Source = "bridge" // liquidation-address provider
	SourceJSON   Source = "json"   // static JSON feed
)

// Chain is a supported EVM chain.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
)

// Network is the network of a chain. Only mainnet is indexed.
type Network string

const NetworkMainnet Network = "mainnet"

// SupportedChains lists the chains that are indexed, in merge order.
var SupportedChains = []Chain{ChainEthereum, ChainBase}

// Address represents a watched wallet address.
type Address struct {
	Address       string     `json:"address"`
	Source        Source     `json:"source"`
	Chain         Chain      `json:"chain"`
	Network       Network    `json:"network"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastIndexedAt *time.Time `json:"lastIndexedAt,omitempty"`
}

// New creates a mainnet Address with normalized address and fresh timestamps.
func New(addr string, source Source, chain Chain) *Address {
	now := time.Now().UTC()
	return &Address{
		Address:   Normalize(addr),
		Source:    source,
		Chain:     chain,
		Network:   NetworkMainnet,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize returns the canonical lower-case form of an address.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValid reports whether addr is a 20-byte hex address.
func IsValid(addr string) bool {
	return common.IsHexAddress(strings.TrimSpace(addr))
}

// ParseChain maps a provider chain label to a supported Chain.
func ParseChain(s string) (Chain, bool) {
	switch Chain(strings.ToLower(strings.TrimSpace(s))) {
	case ChainEthereum:
		return ChainEthereum, true
	case ChainBase:
		return ChainBase, true
	default:
		return "", false
	}
}

// ParseNetwork maps a provider network label to a supported Network.
// An empty label is treated as mainnet.
func ParseNetwork(s string) (Network, bool) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkMainnet, "":
		return NetworkMainnet, true
	default:
		return "", false
	}
}

// ParseSource maps a label to a Source.
func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourcePrivy:
		return SourcePrivy, true
	case SourceBridge:
		return SourceBridge, true
	case SourceJSON:
		return SourceJSON, true
	default:
		return "", false
	}
}

// IsSupported reports whether the chain/network pair is indexed.
func IsSupported(chain, network string) bool {
	_, chainOK := ParseChain(chain)
	_, networkOK := ParseNetwork(network)
	return chainOK && networkOK
}
