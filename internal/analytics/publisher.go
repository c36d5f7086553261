package analytics

import (
	"context"
	"time"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
)

// ClickPublisher records clicks by publishing URLAccessedEvent. The counter is
// incremented later by a CountClicks consumer.
type ClickPublisher struct {
	publish messaging.Publish[URLAccessedEvent]
	now     func() time.Time
}

// NewClickPublisher creates a click recorder backed by publish.
func NewClickPublisher(publish messaging.Publish[URLAccessedEvent]) *ClickPublisher {
	return &ClickPublisher{publish: publish, now: time.Now}
}

func (p *ClickPublisher) RecordClick(ctx context.Context, code shortener.Code) error {
	meta := RequestMetaFromContext(ctx)

	return p.publish(ctx, &URLAccessedEvent{
		Code:       string(code),
		AccessedAt: p.now().UTC(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
		RequestID:  meta.RequestID,
	})
}

// NewURLCreatedEvent builds the creation event for url using request metadata from ctx.
func NewURLCreatedEvent(ctx context.Context, url *shortener.ShortURL) *URLCreatedEvent {
	meta := RequestMetaFromContext(ctx)

	return &URLCreatedEvent{
		ID:          url.ID,
		Code:        string(url.Code),
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		RequestID:   meta.RequestID,
	}
}

var _ shortener.ClickRecorder = (*ClickPublisher)(nil)
