package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"tgnotifier/core/bootstrap"
	"tgnotifier/core/cmd"
	coreconfig "tgnotifier/core/config"
	"tgnotifier/core/events"
	"tgnotifier/core/telegram"
	"tgnotifier/core/telegram/broadcast"
	"tgnotifier/core/telegram/handlers"
	"tgnotifier/core/telegram/router"
)

type app struct {
	cfg  *coreconfig.Config
	boot *bootstrap.Result
}

func (a *app) TelegramRunOptions() (telegram.RunOptions, error) {
	return telegram.RunOptions{
		Config: a.cfg,
		NewBatcher: func(rt telegram.Runtime) telegram.Batcher {
			interval := time.Duration(a.cfg.RateLimit.IntervalMS) * time.Millisecond
			return router.New(a.boot.Chats, rt.Sender, interval)
		},
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			dispatcher := broadcast.NewDispatcher(a.boot.Chats, rt.Sender,
				handlers.NewDefaultChecker(a.boot.Chats),
				handlers.NewAddressesChecker(),
				handlers.NewImportantEventsChecker(a.boot.Chats),
			)
			if a.cfg.Feed.URL != "" {
				sub := events.NewSubscriber(events.SubscriberOptions{
					URL:          a.cfg.Feed.URL,
					PollInterval: time.Duration(a.cfg.Feed.PollIntervalSeconds) * time.Second,
					Client:       telegram.BuildHTTPClient(),
				}, dispatcher)
				go sub.Run(ctx)
			}
			return nil
		},
		OnStop: func(context.Context, telegram.Runtime) error {
			return a.boot.Close()
		},
	}, nil
}

func main() {
	// Values from .env never override variables already set in the environment.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        coreconfig.Load,
		Bootstrap: func(cfg *coreconfig.Config) (cmd.App, error) {
			res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return &app{cfg: cfg, boot: res}, nil
		},
	})
	if err != nil {
		log.Fatalf("tgnotifier: %v", err)
	}
}
