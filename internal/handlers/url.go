package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the service the URL handlers drive.
type Shortener interface {
	Shorten(ctx context.Context, rawURL string) (*shortener.ShortURL, error)
	Resolve(ctx context.Context, code shortener.Code) (string, error)
	Top(ctx context.Context, n int) ([]*shortener.ShortURL, error)
	Stats(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service           Shortener
	baseURL           string
	publishURLCreated messaging.Publish[analytics.URLCreatedEvent]
	logger            *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service Shortener,
	baseURL string,
	publishURLCreated messaging.Publish[analytics.URLCreatedEvent],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:           service,
		baseURL:           baseURL,
		publishURLCreated: publishURLCreated,
		logger:            logger,
	}
}

func (h *URLHandler) shortURL(code shortener.Code) string {
	return h.baseURL + "/" + string(code)
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	shortURL, err := h.service.Shorten(ctx, req.Body.URL)
	if err != nil {
		return nil, h.toHTTPError(ctx, "shorten", err)
	}

	event := analytics.NewURLCreatedEvent(ctx, shortURL)
	if err := h.publishURLCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish analytics event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	full := h.shortURL(shortURL.Code)

	resp := &CreateShortURLResponse{Status: http.StatusCreated, Location: full}
	resp.Body.Code = string(shortURL.Code)
	resp.Body.ShortURL = full
	resp.Body.OriginalURL = shortURL.OriginalURL

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	url, err := h.service.Resolve(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.toHTTPError(ctx, "resolve", err)
	}

	return &RedirectResponse{
		Status:       http.StatusFound,
		Location:     url,
		CacheControl: "no-store",
	}, nil
}

func (h *URLHandler) TopURLs(ctx context.Context, req *TopRequest) (*TopResponse, error) {
	urls, err := h.service.Top(ctx, req.N)
	if err != nil {
		return nil, h.toHTTPError(ctx, "top", err)
	}

	resp := &TopResponse{Body: make([]TopEntry, 0, len(urls))}

	for _, url := range urls {
		resp.Body = append(resp.Body, TopEntry{
			Code:        string(url.Code),
			ShortURL:    h.shortURL(url.Code),
			OriginalURL: url.OriginalURL,
			ClickCount:  url.ClickCount,
		})
	}

	return resp, nil
}

func (h *URLHandler) URLStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	url, err := h.service.Stats(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.toHTTPError(ctx, "stats", err)
	}

	resp := &StatsResponse{}
	resp.Body.Code = string(url.Code)
	resp.Body.ShortURL = h.shortURL(url.Code)
	resp.Body.OriginalURL = url.OriginalURL
	resp.Body.CreatedAt = url.CreatedAt
	resp.Body.ClickCount = url.ClickCount

	return resp, nil
}

// toHTTPError maps service errors to status codes. Unexpected errors are
// logged here and never leak their cause to the client.
func (h *URLHandler) toHTTPError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidInput):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("short url not found")
	default:
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", analytics.RequestMetaFromContext(ctx).RequestID),
			zap.Error(err),
		)

		return huma.Error500InternalServerError("internal error")
	}
}
