// Package router turns batches of incoming Telegram updates into chat
// registry mutations and replies. Every update is an isolation boundary:
// a failing or panicking update never affects the rest of its batch.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"tgnotifier/core/chats"
	"tgnotifier/core/logger"
	"tgnotifier/core/telegram/commands"
)

// Registry is the chat state surface the router mutates.
type Registry interface {
	IsKnownChatID(ctx context.Context, id int64) (bool, error)
	SaveNewChat(ctx context.Context, id int64, name string, userID int64) error
	FindByID(ctx context.Context, id int64) (*chats.Chat, error)
	UpdateLastCommand(ctx context.Context, id int64, command string) error
	ApplyValue(ctx context.Context, id int64, value string) (string, error)
}

// Sender delivers reply text to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Router drives the conversation flow: register, command, value.
type Router struct {
	registry Registry
	sender   Sender
	limiter  *chatLimiter
}

// New builds a router. A zero rate interval disables rate limiting.
func New(registry Registry, sender Sender, rateInterval time.Duration) *Router {
	return &Router{
		registry: registry,
		sender:   sender,
		limiter:  newChatLimiter(rateInterval),
	}
}

// ProcessBatch routes every update in the batch. Malformed or failing
// updates are logged and skipped; the batch always completes.
func (r *Router) ProcessBatch(ctx context.Context, updates []tele.Update) {
	if len(updates) == 0 {
		return
	}
	start := time.Now()
	handled := 0
	for i := range updates {
		if r.Route(ctx, &updates[i]) {
			handled++
		}
	}
	// Per-batch debug lines are high volume: sample them.
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "tg", "batch.done",
			batchAttrs(len(updates), handled, time.Since(start))...,
		)
	}
}

// Route handles one update under a recover boundary and reports whether
// it was handled rather than skipped.
func (r *Router) Route(ctx context.Context, u *tele.Update) (handled bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID == 0 {
		logger.Debug(ctx, "tg", "update.skip.malformed", updateIDAttr(u.ID))
		return false
	}

	chatID := msg.Chat.ID
	ctx = logger.WithUpdateMeta(ctx, u.ID, senderID(msg), chatID)
	ctx = logger.WithRID(ctx, logger.BuildRID(u.ID, chatID, senderID(msg)))
	ctx = logger.WithLogger(ctx, logger.Component("tg"))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "tg", "update.panic", errAttr(fmt.Errorf("%v", rec)))
			_ = r.sender.Send(ctx, chatID, commands.ErrorText)
			handled = false
		}
	}()

	if !r.limiter.Allow(chatID) {
		logger.Warn(ctx, "tg", "tg.rate_limit")
		return false
	}

	start := time.Now()
	handler, err := r.route(ctx, msg)
	logUpdateSummary(ctx, handler, start, err)
	if err != nil {
		_ = r.sender.Send(ctx, chatID, commands.ErrorText)
		return false
	}
	return true
}

// route dispatches a well-formed message and returns the handler name
// used for the summary log line.
func (r *Router) route(ctx context.Context, msg *tele.Message) (string, error) {
	chatID := msg.Chat.ID

	known, err := r.registry.IsKnownChatID(ctx, chatID)
	if err != nil {
		return "register", err
	}
	if !known {
		// First contact consumes the update: register and greet only.
		if err := r.registry.SaveNewChat(ctx, chatID, chatName(msg), senderID(msg)); err != nil {
			return "register", err
		}
		return "register", r.sender.Send(ctx, chatID, commands.WelcomeMessage)
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return r.handleCommand(ctx, chatID, text)
	}
	return "value", r.handleValue(ctx, chatID, text)
}

func (r *Router) handleCommand(ctx context.Context, chatID int64, text string) (string, error) {
	// Reserved commands never arm a pending value.
	switch {
	case strings.HasPrefix(text, commands.Help):
		return "help", r.sender.Send(ctx, chatID, commands.HelpText)
	case strings.HasPrefix(text, commands.Info):
		chat, err := r.registry.FindByID(ctx, chatID)
		if err != nil {
			return "info", err
		}
		return "info", r.sender.Send(ctx, chatID, chat.Info())
	}

	entry, ok := commands.Lookup(text)
	if !ok {
		return "unknown_command", r.sender.Send(ctx, chatID, commands.UnknownCommand)
	}
	// Only recognized commands move the conversation state.
	if err := r.registry.UpdateLastCommand(ctx, chatID, entry.Command); err != nil {
		return handlerName(entry.Command), err
	}
	return handlerName(entry.Command), r.sender.Send(ctx, chatID, entry.Response)
}

func (r *Router) handleValue(ctx context.Context, chatID int64, text string) error {
	result, err := r.registry.ApplyValue(ctx, chatID, text)
	if err != nil {
		return err
	}
	return r.sender.Send(ctx, chatID, result+". "+commands.HelpText)
}

func senderID(msg *tele.Message) int64 {
	if msg.Sender == nil {
		return 0
	}
	return msg.Sender.ID
}

func chatName(msg *tele.Message) string {
	if msg.Chat.Title != "" {
		return msg.Chat.Title
	}
	if msg.Chat.Username != "" {
		return msg.Chat.Username
	}
	return strings.TrimSpace(msg.Chat.FirstName + " " + msg.Chat.LastName)
}

func handlerName(command string) string {
	return strings.TrimPrefix(command, "/")
}
