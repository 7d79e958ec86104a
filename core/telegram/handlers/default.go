package handlers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tgnotifier/core/chats"
	"tgnotifier/core/events"
)

// DefaultChecker notifies on large vault movements and FARM price swings.
// It owns the min_amount_usd, farm_change_gap and last_farm_price settings.
type DefaultChecker struct {
	tracker Tracker
}

// NewDefaultChecker builds the checker over the given watermark store.
func NewDefaultChecker(tracker Tracker) *DefaultChecker {
	return &DefaultChecker{tracker: tracker}
}

// Name implements Checker.
func (c *DefaultChecker) Name() string { return "default" }

// Check implements Checker.
func (c *DefaultChecker) Check(ctx context.Context, chat *chats.Chat, event events.Event) (*Result, error) {
	ev, ok := event.(*events.HarvestEvent)
	if !ok {
		return nil, nil
	}

	var lines []string
	if chat.MinAmountUSD > 0 && ev.AmountUSD >= chat.MinAmountUSD {
		lines = append(lines, ev.Print())
	}

	farmLine, err := c.checkFarmPrice(ctx, chat, ev)
	if err != nil {
		return nil, err
	}
	if farmLine != "" {
		lines = append(lines, farmLine)
	}

	if len(lines) == 0 {
		return nil, nil
	}
	return &Result{Message: strings.Join(lines, "\n")}, nil
}

// checkFarmPrice tracks the FARM token price seen on harvest events.
// The first observed price only seeds the watermark; notifications start
// once the price drifts by at least the chat's configured gap.
func (c *DefaultChecker) checkFarmPrice(ctx context.Context, chat *chats.Chat, ev *events.HarvestEvent) (string, error) {
	if chat.FarmChangeGap <= 0 || ev.FarmPrice <= 0 {
		return "", nil
	}
	if chat.LastFarmPrice == 0 {
		return "", c.tracker.SetLastFarmPrice(ctx, chat.ID, ev.FarmPrice)
	}
	diff := ev.FarmPrice - chat.LastFarmPrice
	if math.Abs(diff) < chat.FarmChangeGap {
		return "", nil
	}
	if err := c.tracker.SetLastFarmPrice(ctx, chat.ID, ev.FarmPrice); err != nil {
		return "", err
	}
	direction := "up"
	if diff < 0 {
		direction = "down"
	}
	return fmt.Sprintf("FARM price %s: %.2f USD to %.2f USD", direction, chat.LastFarmPrice, ev.FarmPrice), nil
}
