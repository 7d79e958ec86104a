// Package sender delivers outbound Telegram messages asynchronously.
// Callers hand off a chat id and text; a small worker pool retries
// transient failures with linear backoff under a per-job deadline.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"tgnotifier/core/logger"
)

var (
	// ErrQueueClosed is returned when a send is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// SendFunc performs one delivery attempt to the given chat.
type SendFunc func(chatID int64, text string) error

// Options controls queue sizing and the retry policy.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the total time spent on a single message.
	MaxDuration time.Duration
}

type job struct {
	ctx    context.Context
	chatID int64
	text   string
}

// Dispatcher fans outbound messages over a bounded queue and worker pool.
type Dispatcher struct {
	send SendFunc
	opts Options

	// mu orders enqueues against Close so the jobs channel is never
	// written after it is closed.
	mu     sync.RWMutex
	closed bool
	jobs   chan job

	wg   sync.WaitGroup
	errs atomic.Uint64
}

// NewDispatcher starts the worker pool. Zeroed options get sane defaults.
func NewDispatcher(send SendFunc, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		send: send,
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Send enqueues text for the chat. When the queue is saturated the
// message is delivered inline on the caller's goroutine instead of
// being dropped.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return nil
	}

	j := job{ctx: ctx, chatID: chatID, text: text}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrQueueClosed
	}
	select {
	case d.jobs <- j:
		d.mu.RUnlock()
		return nil
	default:
	}
	d.mu.RUnlock()

	logger.Warn(ctx, "tg.sender", "send.queue.full", slog.Int64("chat_id", chatID))
	d.handleJob(j)
	return nil
}

// ErrorCount returns the number of messages that exhausted all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting work and waits for queued messages to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := deadlineCtx.Err(); err != nil {
			lastErr = err
			break
		}

		err := d.send(j.chatID, j.text)
		if err == nil {
			if !logger.ShouldSampleDebug() {
				return
			}
			logger.Debug(ctx, "tg.sender", "send.success",
				slog.Int64("chat_id", j.chatID),
				slog.Int("attempt", attempt),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
			return
		}
		lastErr = err
		if !shouldRetry(err) || attempt == attempts {
			break
		}

		delay := retryDelay(err, d.opts.RetryBackoff*time.Duration(attempt))
		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			lastErr = deadlineCtx.Err()
			attempt = attempts
		case <-timer.C:
			logger.Debug(ctx, "tg.sender", "send.retry",
				slog.Int64("chat_id", j.chatID),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
			)
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail",
		slog.Int64("chat_id", j.chatID),
		slog.Int("attempts", attempts),
		slog.String("err", sanitizeErrorMessage(lastErr)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
}

// shouldRetry reports whether a delivery error is worth another attempt:
// transient dial/timeout failures and Telegram flood limits.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return shouldRetry(urlErr.Err)
		}
	}

	return false
}

// retryDelay prefers the server-provided flood wait over linear backoff.
func retryDelay(err error, fallback time.Duration) time.Duration {
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) && floodErr.RetryAfter > 0 {
		return time.Duration(floodErr.RetryAfter) * time.Second
	}
	return fallback
}

// sanitizeErrorMessage prevents accidental leakage of bot tokens in logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
