package events

import (
	"fmt"
	"strings"
)

// Event is an externally produced domain event relayed to chats.
// The router and broadcast dispatcher never look past this interface;
// only check handlers inspect concrete types.
type Event interface {
	// Kind returns a stable machine-readable event discriminator.
	Kind() string
	// Print renders the event as a human-readable notification line.
	Print() string
}

const (
	// KindHarvest identifies vault harvest activity (deposits, withdrawals, doHardWork).
	KindHarvest = "harvest"
	// KindTokenMint identifies reward token emissions.
	KindTokenMint = "token_mint"
)

// Methods that mark a HarvestEvent as an important strategy change.
const (
	MethodSetStrategy      = "setStrategy"
	MethodAnnounceStrategy = "announceStrategyUpdate"
)

// HarvestEvent describes a single vault transaction observed on chain.
type HarvestEvent struct {
	ID         string  `json:"id"`
	Vault      string  `json:"vault"`
	Method     string  `json:"method"`
	Owner      string  `json:"owner"`
	Amount     float64 `json:"amount"`
	AmountUSD  float64 `json:"amount_usd"`
	SharePrice float64 `json:"share_price"`
	FarmPrice  float64 `json:"farm_price"`
	TxHash     string  `json:"tx_hash"`
	BlockDate  int64   `json:"block_date"`
}

// Kind implements Event.
func (e *HarvestEvent) Kind() string { return KindHarvest }

// Print implements Event.
func (e *HarvestEvent) Print() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Vault, e.Method)
	if e.Amount != 0 {
		fmt.Fprintf(&b, " %.2f", e.Amount)
	}
	if e.AmountUSD != 0 {
		fmt.Fprintf(&b, " (%.2f USD)", e.AmountUSD)
	}
	if e.Owner != "" {
		fmt.Fprintf(&b, " by %s", shortAddress(e.Owner))
	}
	if e.TxHash != "" {
		fmt.Fprintf(&b, " tx %s", shortAddress(e.TxHash))
	}
	return b.String()
}

// IsStrategyChange reports whether the event announces or applies a new strategy.
func (e *HarvestEvent) IsStrategyChange() bool {
	return e.Method == MethodSetStrategy || e.Method == MethodAnnounceStrategy
}

// TokenMintEvent describes a reward token emission.
type TokenMintEvent struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`
	TxHash    string  `json:"tx_hash"`
	BlockDate int64   `json:"block_date"`
}

// Kind implements Event.
func (e *TokenMintEvent) Kind() string { return KindTokenMint }

// Print implements Event.
func (e *TokenMintEvent) Print() string {
	s := fmt.Sprintf("Token mint %.2f FARM", e.Amount)
	if e.TxHash != "" {
		s += " tx " + shortAddress(e.TxHash)
	}
	return s
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + ".." + addr[len(addr)-4:]
}
