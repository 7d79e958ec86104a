package router

import (
	"context"
	"log/slog"
	"time"

	"tgnotifier/core/logger"
)

func logUpdateSummary(ctx context.Context, handlerName string, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("handler", handlerName),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Info(ctx, "tg", "update.handled", attrs...)
}

func batchAttrs(size, handled int, took time.Duration) []slog.Attr {
	return []slog.Attr{
		slog.Int("batch", size),
		slog.Int("count", handled),
		slog.Duration("duration", logger.RoundMS(took)),
	}
}

func updateIDAttr(id int) slog.Attr {
	return slog.Int("update_id", id)
}

func errAttr(err error) slog.Attr {
	return slog.String("err", logger.SanitizeLimit(err.Error(), 256))
}
