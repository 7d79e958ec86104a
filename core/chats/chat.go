// Package chats owns persistent chat state: registration, the pending
// command of the conversation flow, and the tracked values used by the
// broadcast check handlers. All mutations go through the Service so the
// rest of the application never caches chat records across calls.
package chats

import (
	"fmt"
	"time"
)

// Chat is one registered Telegram chat with its notification settings.
type Chat struct {
	ID                   int64     `db:"id"`
	Name                 string    `db:"name"`
	UserID               int64     `db:"user_id"`
	LastCommand          string    `db:"last_command"`
	MinAmountUSD         float64   `db:"min_amount_usd"`
	FarmChangeGap        float64   `db:"farm_change_gap"`
	WatchedAddress       string    `db:"watched_address"`
	ImportantEvents      bool      `db:"important_events"`
	LastFarmPrice        float64   `db:"last_farm_price"`
	LastImportantEventID string    `db:"last_important_event_id"`
	CreatedAt            time.Time `db:"created_at"`
}

// Info renders the chat's current settings as plain text for the /info command.
func (c *Chat) Info() string {
	pending := c.LastCommand
	if pending == "" {
		pending = "none"
	}
	addr := c.WatchedAddress
	if addr == "" {
		addr = "not set"
	}
	important := "off"
	if c.ImportantEvents {
		important = "on"
	}
	return fmt.Sprintf(
		"Your settings:\n"+
			"Minimum amount: %.2f USD\n"+
			"FARM change gap: %.2f USD\n"+
			"Watched address: %s\n"+
			"Important events: %s\n"+
			"Pending command: %s",
		c.MinAmountUSD, c.FarmChangeGap, addr, important, pending,
	)
}
