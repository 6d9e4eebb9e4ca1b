package stage

import (
	"context"
	"log/slog"

	"heicrop/internal/logging"
	"heicrop/internal/services"
)

// Enter stamps ctx with the stage name and returns a logger carrying the
// context fields, so every line a stage emits is attributable.
func Enter(ctx context.Context, logger *slog.Logger, name string) (context.Context, *slog.Logger) {
	ctx = services.WithStage(ctx, name)
	return ctx, logging.WithContext(ctx, logger)
}

// Summarize collects health records from the provided stages.
func Summarize(ctx context.Context, checkers ...HealthChecker) []Health {
	out := make([]Health, 0, len(checkers))
	for _, c := range checkers {
		if c == nil {
			continue
		}
		out = append(out, c.HealthCheck(ctx))
	}
	return out
}
