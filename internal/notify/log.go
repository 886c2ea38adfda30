package notify

import (
	"context"
	"log/slog"

	"mentorship-platform/pkg/logger"
)

func logFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l := logger.From(ctx); l != slog.Default() {
		return l
	}
	return fallback
}
