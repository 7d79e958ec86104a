// Package commands holds the static command table of the notifier bot.
// Entries are immutable at runtime; matching is prefix-based in declared
// order, so entries sharing a prefix resolve to the first one listed.
package commands

import "strings"

// Reserved commands handled by the router itself, checked before the table.
const (
	Help = "/help"
	Info = "/info"
)

// Domain commands. Each one arms a pending value for the chat.
const (
	MinimumAmount    = "/minimum_amount"
	FarmChange       = "/farm_change"
	SubscribeAddress = "/subscribe_address"
	ImportantEvents  = "/important_events"
)

// UnknownCommand is the sentinel response for unmatched command text.
const UnknownCommand = "Unknown command, use " + Help

// WelcomeMessage greets a chat on first contact.
const WelcomeMessage = "Welcome to the Harvest notifier bot! " +
	"You will receive vault event notifications here. Use " + Help + " to tune them."

// ErrorText is sent when handling an update fails for any reason.
const ErrorText = "Error while handling your request, use correct syntax. " + Help

// HelpText enumerates everything the bot understands.
const HelpText = "Commands:\n" +
	Help + " - show this message\n" +
	Info + " - show your current settings\n" +
	MinimumAmount + " - set the minimum USD amount for vault notifications\n" +
	FarmChange + " - set the FARM price change gap in USD\n" +
	SubscribeAddress + " - follow activity of one owner address\n" +
	ImportantEvents + " - toggle important event notifications (on/off)"

// Entry pairs a command with its response text and menu description.
type Entry struct {
	Command     string
	Response    string
	Description string
}

// Table lists the domain commands in match order.
var Table = []Entry{
	{
		Command:     MinimumAmount,
		Response:    "Type the minimum USD amount for deposit and withdraw notifications",
		Description: "set minimum USD amount",
	},
	{
		Command:     FarmChange,
		Response:    "Type the FARM price change gap in USD",
		Description: "set FARM price change gap",
	},
	{
		Command:     SubscribeAddress,
		Response:    "Type the owner address you want to follow (0x...)",
		Description: "follow an owner address",
	},
	{
		Command:     ImportantEvents,
		Response:    "Type on or off to toggle important event notifications",
		Description: "toggle important events",
	},
}

// Lookup returns the first table entry whose command prefixes text.
func Lookup(text string) (Entry, bool) {
	for _, e := range Table {
		if strings.HasPrefix(text, e.Command) {
			return e, true
		}
	}
	return Entry{}, false
}

// ResponseFor returns the response text for a command message,
// or UnknownCommand when nothing in the table matches.
func ResponseFor(text string) string {
	if e, ok := Lookup(text); ok {
		return e.Response
	}
	return UnknownCommand
}
