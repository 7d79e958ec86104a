package handlers

import (
	"context"

	"tgnotifier/core/chats"
	"tgnotifier/core/events"
)

// ImportantEventsChecker relays token mints and strategy changes to chats
// that opted in. The last_important_event_id watermark keeps a redelivered
// event from notifying the same chat twice.
type ImportantEventsChecker struct {
	tracker Tracker
}

// NewImportantEventsChecker builds the checker over the given watermark store.
func NewImportantEventsChecker(tracker Tracker) *ImportantEventsChecker {
	return &ImportantEventsChecker{tracker: tracker}
}

// Name implements Checker.
func (c *ImportantEventsChecker) Name() string { return "important" }

// Check implements Checker.
func (c *ImportantEventsChecker) Check(ctx context.Context, chat *chats.Chat, event events.Event) (*Result, error) {
	if !chat.ImportantEvents {
		return nil, nil
	}

	var id, message string
	switch ev := event.(type) {
	case *events.TokenMintEvent:
		id = ev.ID
		message = ev.Print()
	case *events.HarvestEvent:
		if !ev.IsStrategyChange() {
			return nil, nil
		}
		id = ev.ID
		message = "Strategy change: " + ev.Print()
	default:
		return nil, nil
	}

	if id != "" && id == chat.LastImportantEventID {
		return nil, nil
	}
	if id != "" {
		if err := c.tracker.SetLastImportantEventID(ctx, chat.ID, id); err != nil {
			return nil, err
		}
	}
	return &Result{Message: message}, nil
}
