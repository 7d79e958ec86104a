package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tgnotifier/core/logger"

	"log/slog"
)

// Broadcaster consumes decoded events, typically the broadcast dispatcher.
type Broadcaster interface {
	SendDTO(ctx context.Context, ev Event) error
}

// SubscriberOptions configures the feed polling loop.
type SubscriberOptions struct {
	URL          string
	PollInterval time.Duration
	Client       *http.Client
}

// Subscriber polls an HTTP JSON feed for new domain events and hands each
// decoded event to the broadcaster. Transport failures are logged and retried
// on the next tick; the loop only stops with its context.
type Subscriber struct {
	opts   SubscriberOptions
	sink   Broadcaster
	lastID string
}

// NewSubscriber builds a Subscriber with sane defaults for zeroed options.
func NewSubscriber(opts SubscriberOptions, sink Broadcaster) *Subscriber {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Subscriber{opts: opts, sink: sink}
}

type envelope struct {
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Run polls the feed until ctx is done.
func (s *Subscriber) Run(ctx context.Context) {
	if s.opts.URL == "" || s.sink == nil {
		return
	}
	logger.Info(ctx, "feed", "feed.start",
		slog.String("url", s.opts.URL),
		slog.Duration("interval", s.opts.PollInterval),
	)
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "feed", "feed.stop")
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				logger.Warn(ctx, "feed", "feed.poll.fail",
					slog.String("err", err.Error()),
				)
			}
		}
	}
}

func (s *Subscriber) poll(ctx context.Context) error {
	envs, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	for i := range envs {
		ev, err := decodeEvent(envs[i])
		if err != nil {
			logger.Warn(ctx, "feed", "feed.decode.skip",
				slog.String("event_kind", envs[i].Kind),
				slog.String("err", err.Error()),
			)
			continue
		}
		if envs[i].ID != "" {
			s.lastID = envs[i].ID
		}
		// Broadcast failures are per-chat and already logged; the feed
		// cursor still advances so the event is not replayed forever.
		if err := s.sink.SendDTO(ctx, ev); err != nil {
			logger.Warn(ctx, "feed", "feed.broadcast.fail",
				slog.String("event_kind", ev.Kind()),
				slog.String("err", err.Error()),
			)
		}
	}
	if len(envs) > 0 {
		logger.Debug(ctx, "feed", "feed.poll",
			slog.Int("count", len(envs)),
		)
	}
	return nil
}

func (s *Subscriber) fetch(ctx context.Context) ([]envelope, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("feed url: %w", err)
	}
	if s.lastID != "" {
		q := u.Query()
		q.Set("after", s.lastID)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed status: %s", resp.Status)
	}

	var envs []envelope
	if err := json.NewDecoder(resp.Body).Decode(&envs); err != nil {
		return nil, fmt.Errorf("feed decode: %w", err)
	}
	return envs, nil
}

func decodeEvent(env envelope) (Event, error) {
	switch env.Kind {
	case KindHarvest:
		var ev HarvestEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		if ev.ID == "" {
			ev.ID = env.ID
		}
		return &ev, nil
	case KindTokenMint:
		var ev TokenMintEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		if ev.ID == "" {
			ev.ID = env.ID
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
