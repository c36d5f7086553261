package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// ClickCounter is the part of shortener.Repository CountClicks needs.
type ClickCounter interface {
	IncrementClicks(ctx context.Context, code shortener.Code) error
}

// CountClicks increments the click counter for every access event. Events
// for unknown codes are dropped rather than redelivered.
func CountClicks(counter ClickCounter) messaging.Handler[URLAccessedEvent] {
	return func(ctx context.Context, event *URLAccessedEvent) error {
		err := counter.IncrementClicks(ctx, shortener.Code(event.Code))
		if errors.Is(err, shortener.ErrNotFound) {
			return messaging.Permanent(fmt.Errorf("count click for %q: %w", event.Code, err))
		}

		return err
	}
}

// LogCreated logs every creation event.
func LogCreated(logger *zap.Logger) messaging.Handler[URLCreatedEvent] {
	return func(_ context.Context, event *URLCreatedEvent) error {
		logger.Info("url created",
			zap.Uint64("id", event.ID),
			zap.String("code", event.Code),
			zap.String("originalUrl", event.OriginalURL),
			zap.Time("createdAt", event.CreatedAt),
			zap.String("clientIp", event.ClientIP),
			zap.String("requestId", event.RequestID),
		)

		return nil
	}
}
