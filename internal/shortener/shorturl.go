package shortener

import "time"

// Code represents a short URL code.
type Code string

// ShortURL is the durable shortening record.
type ShortURL struct {
	ID          uint64
	Code        Code // empty while the record is pending
	OriginalURL string
	CreatedAt   time.Time
	ClickCount  uint64
}

// Pending reports whether the record has an identifier but no code yet.
func (s *ShortURL) Pending() bool {
	return s.Code == ""
}
