// Package broadcast fans a domain event out to every registered chat.
// Each chat is an isolation boundary: a failing or panicking checker
// skips that chat only, and the pass always reaches the remaining chats.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"tgnotifier/core/chats"
	"tgnotifier/core/events"
	"tgnotifier/core/logger"
	"tgnotifier/core/telegram/handlers"
)

// Registry is the chat lookup surface the dispatcher needs.
type Registry interface {
	FindAllChats(ctx context.Context) ([]chats.Chat, error)
}

// Sender delivers one rendered notification to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Dispatcher runs registered checkers over all chats for each event.
type Dispatcher struct {
	registry Registry
	sender   Sender
	checkers []handlers.Checker
}

// NewDispatcher wires the dispatcher. Checker order is delivery order
// within a chat's notification.
func NewDispatcher(registry Registry, sender Sender, checkers ...handlers.Checker) *Dispatcher {
	return &Dispatcher{registry: registry, sender: sender, checkers: checkers}
}

// SendDTO broadcasts the event to every registered chat. A nil event is
// a no-op. The returned error aggregates per-chat failures; a non-nil
// error still means every chat was attempted.
func (d *Dispatcher) SendDTO(ctx context.Context, event events.Event) error {
	if event == nil {
		return nil
	}

	ctx = logger.WithRID(ctx, uuid.NewString())
	start := time.Now()

	all, err := d.registry.FindAllChats(ctx)
	if err != nil {
		logger.Error(ctx, "bcast", "bcast.chats.fail",
			slog.String("event_kind", event.Kind()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("broadcast: list chats: %w", err)
	}

	var (
		errs *multierror.Error
		sent int
	)
	for i := range all {
		chat := &all[i]
		chatCtx := logger.WithChatID(ctx, chat.ID)
		delivered, chatErr := d.processChat(chatCtx, chat, event)
		if chatErr != nil {
			errs = multierror.Append(errs, fmt.Errorf("chat %d: %w", chat.ID, chatErr))
			continue
		}
		if delivered {
			sent++
		}
	}

	logger.Info(ctx, "bcast", "bcast.done",
		slog.String("event_kind", event.Kind()),
		slog.Int("chats", len(all)),
		slog.Int("sent", sent),
		slog.Int("skipped", len(all)-sent),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return errs.ErrorOrNil()
}

// processChat runs every checker for one chat and sends the collected
// messages. A checker panic is converted into the chat's error.
func (d *Dispatcher) processChat(ctx context.Context, chat *chats.Chat, event events.Event) (delivered bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("checker panic: %v", r)
			logger.Error(ctx, "bcast", "bcast.chat.panic",
				slog.Int64("chat_id", chat.ID),
				slog.String("payload", logger.SanitizeLimit(event.Print(), 128)),
				slog.String("err", fmt.Sprint(r)),
			)
		}
	}()

	for _, checker := range d.checkers {
		res, checkErr := checker.Check(logger.WithHandler(ctx, checker.Name()), chat, event)
		if checkErr != nil {
			logger.Error(ctx, "bcast", "bcast.chat.fail",
				slog.Int64("chat_id", chat.ID),
				slog.String("handler", checker.Name()),
				slog.String("payload", logger.SanitizeLimit(event.Print(), 128)),
				slog.String("err", checkErr.Error()),
			)
			return delivered, fmt.Errorf("%s: %w", checker.Name(), checkErr)
		}
		if res == nil || res.Message == "" {
			continue
		}
		if sendErr := d.sender.Send(ctx, chat.ID, res.Message); sendErr != nil {
			return delivered, fmt.Errorf("%s: send: %w", checker.Name(), sendErr)
		}
		delivered = true
	}
	return delivered, nil
}
