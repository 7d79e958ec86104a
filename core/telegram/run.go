// Package telegram wires the telebot transport: bot construction, the
// update listener that groups raw updates into batches, and the command
// menu. Conversation semantics live in the router; this package only
// moves updates and messages.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "tgnotifier/core/config"
	"tgnotifier/core/logger"
	"tgnotifier/core/telegram/commands"
	tgsender "tgnotifier/core/telegram/sender"
)

const (
	defaultBatchWait = 200 * time.Millisecond
	maxBatchSize     = 100
	updateQueueSize  = 256
)

// Batcher consumes grouped inbound updates.
type Batcher interface {
	ProcessBatch(ctx context.Context, updates []tele.Update)
}

// Runtime exposes transport components to wiring callbacks and hooks.
type Runtime struct {
	Bot    *tele.Bot
	Sender *tgsender.Dispatcher
}

// RunOptions controls Run.
type RunOptions struct {
	Config *coreconfig.Config

	SenderOptions tgsender.Options

	// NewBatcher builds the update consumer once the outbound sender
	// exists. Required.
	NewBatcher func(rt Runtime) Batcher

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

func (o RunOptions) validate() error {
	if o.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if o.NewBatcher == nil {
		return errors.New("telegram: NewBatcher is required")
	}
	return nil
}

// Run starts the bot and blocks until the context is cancelled.
func Run(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := opts.validate(); err != nil {
		return err
	}
	cfg := opts.Config

	poller := BuildPoller(cfg)

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, cfg, poller, time.Since(buildStart))

	if !opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		if err := deleteWebhook(cfg.Telegram.Token); err != nil {
			logger.Warn(ctx, "tg.wire", "delete_webhook", slog.String("err", err.Error()))
		}
	}

	dispatcher := tgsender.NewDispatcher(func(chatID int64, text string) error {
		_, sendErr := bot.Send(&tele.Chat{ID: chatID}, text)
		return sendErr
	}, opts.SenderOptions)

	rt := Runtime{Bot: bot, Sender: dispatcher}
	batcher := opts.NewBatcher(rt)
	if batcher == nil {
		dispatcher.Close()
		return errors.New("telegram: NewBatcher returned nil")
	}

	setupCommandMenu(ctx, bot)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			dispatcher.Close()
			return err
		}
	}

	runErr := listen(ctx, bot, batcher, batchWait(cfg))

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	dispatcher.Close()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// listen drives the poller directly and feeds grouped updates to the
// batcher. Grouping waits at most batchWait after the first update and
// never exceeds maxBatchSize per batch.
func listen(ctx context.Context, bot *tele.Bot, batcher Batcher, wait time.Duration) error {
	updates := make(chan tele.Update, updateQueueSize)
	stop := make(chan struct{})
	pollDone := make(chan struct{})
	go func() {
		bot.Poller.Poll(bot, updates, stop)
		close(pollDone)
	}()
	defer func() {
		close(stop)
		<-pollDone
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case first := <-updates:
			batch := collectBatch(ctx, updates, first, wait)
			batcher.ProcessBatch(ctx, batch)
		}
	}
}

func collectBatch(ctx context.Context, updates <-chan tele.Update, first tele.Update, wait time.Duration) []tele.Update {
	batch := []tele.Update{first}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for len(batch) < maxBatchSize {
		select {
		case <-ctx.Done():
			return batch
		case <-timer.C:
			return batch
		case u := <-updates:
			batch = append(batch, u)
		}
	}
	return batch
}

func batchWait(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.BatchWaitMS > 0 {
		return time.Duration(cfg.Telegram.BatchWaitMS) * time.Millisecond
	}
	return defaultBatchWait
}

func logMode(ctx context.Context, cfg *coreconfig.Config, poller tele.Poller, took time.Duration) {
	switch p := poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	default:
		timeoutSec := cfg.Telegram.LongPollTimeoutSeconds
		if timeoutSec <= 0 {
			timeoutSec = 10
		}
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", timeoutSec),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	}
}

// setupCommandMenu publishes the command table to the Telegram menu.
func setupCommandMenu(ctx context.Context, bot *tele.Bot) {
	menu := []tele.Command{
		{Text: strings.TrimPrefix(commands.Help, "/"), Description: "show available commands"},
		{Text: strings.TrimPrefix(commands.Info, "/"), Description: "show your current settings"},
	}
	for _, e := range commands.Table {
		menu = append(menu, tele.Command{
			Text:        strings.TrimPrefix(e.Command, "/"),
			Description: e.Description,
		})
	}
	if err := bot.SetCommands(menu); err != nil {
		logger.Error(ctx, "tg.wire", "register.commands.set_failed", slog.String("err", err.Error()))
	}
}

func deleteWebhook(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("drop_pending_updates=false"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
