package handlers

import "time"

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL string `doc:"The URL to shorten; http:// is assumed when no scheme is given" example:"https://example.com/very/long/path" json:"url"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Status   int
	Location string `doc:"The short URL" header:"Location"`
	Body     struct {
		Code        string `doc:"The short code"     example:"b"                                  json:"code"`
		ShortURL    string `doc:"The full short URL" example:"http://localhost:8888/b"            json:"shortUrl"`
		OriginalURL string `doc:"The original URL"   example:"https://example.com/very/long/path" json:"originalUrl"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"b" path:"code"`
}

// RedirectResponse redirects to the original URL. It is never cacheable so
// every visit reaches the service and is counted.
type RedirectResponse struct {
	Status       int
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
}

// TopRequest is the request for the most visited short URLs.
type TopRequest struct {
	N int `default:"10" doc:"How many entries to return (at most 100)" query:"n"`
}

// TopEntry is one leaderboard row.
type TopEntry struct {
	Code        string `json:"code"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	ClickCount  uint64 `json:"clickCount"`
}

// TopResponse lists short URLs by click count.
type TopResponse struct {
	Body []TopEntry
}

// StatsRequest is the request for a short URL's statistics.
type StatsRequest struct {
	Code string `doc:"The short code" example:"b" path:"code"`
}

// StatsResponse holds a short URL's statistics.
type StatsResponse struct {
	Body struct {
		Code        string    `json:"code"`
		ShortURL    string    `json:"shortUrl"`
		OriginalURL string    `json:"originalUrl"`
		CreatedAt   time.Time `json:"createdAt"`
		ClickCount  uint64    `json:"clickCount"`
	}
}
