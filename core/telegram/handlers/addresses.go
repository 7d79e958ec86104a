package handlers

import (
	"context"
	"strings"

	"tgnotifier/core/chats"
	"tgnotifier/core/events"
)

// AddressesChecker notifies a chat about activity of its watched address
// regardless of amount thresholds. Stateless.
type AddressesChecker struct{}

// NewAddressesChecker builds the checker.
func NewAddressesChecker() *AddressesChecker {
	return &AddressesChecker{}
}

// Name implements Checker.
func (c *AddressesChecker) Name() string { return "addresses" }

// Check implements Checker.
func (c *AddressesChecker) Check(_ context.Context, chat *chats.Chat, event events.Event) (*Result, error) {
	if chat.WatchedAddress == "" {
		return nil, nil
	}
	ev, ok := event.(*events.HarvestEvent)
	if !ok || ev.Owner == "" {
		return nil, nil
	}
	if !strings.EqualFold(ev.Owner, chat.WatchedAddress) {
		return nil, nil
	}
	return &Result{Message: "Address activity: " + ev.Print()}, nil
}
