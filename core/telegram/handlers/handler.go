// Package handlers holds the per-chat event checkers. Each checker owns
// a disjoint slice of chat settings and decides independently whether an
// event produces a notification for that chat.
package handlers

import (
	"context"

	"tgnotifier/core/chats"
	"tgnotifier/core/events"
)

// Result is a notification produced by a checker for one chat.
type Result struct {
	Message string
}

// Checker inspects an event against one chat's settings.
// A nil result with a nil error means no notification.
type Checker interface {
	Name() string
	Check(ctx context.Context, chat *chats.Chat, event events.Event) (*Result, error)
}

// Tracker persists the per-chat watermarks checkers use to avoid
// repeating notifications across events.
type Tracker interface {
	SetLastFarmPrice(ctx context.Context, chatID int64, price float64) error
	SetLastImportantEventID(ctx context.Context, chatID int64, eventID string) error
}
