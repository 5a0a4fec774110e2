// Package model defines the domain types used across the application.
package model

import (
	"net/url"
	"time"
)

// Announcement represents a single entry from the vendor's "what's new"
// feed. Fields are immutable once parsed.
type Announcement struct {
	// ID is the dedup key: the canonical link URL when the entry has
	// one, otherwise a content hash. Deterministic for the same
	// upstream entry.
	ID          string
	Title       string
	Body        string
	Link        string
	PublishedAt time.Time
}

// SeenEntry records an announcement that was delivered to every
// configured destination. Entries are never updated or deleted.
type SeenEntry struct {
	ID          string
	Title       string
	PublishedAt time.Time
	DeliveredAt time.Time
}

// Destination is a single webhook endpoint. The URL carries an embedded
// secret, so it must never be logged verbatim.
type Destination struct {
	URL string
}

// Redacted returns a loggable form of the destination: scheme and host
// only, with the secret path dropped.
func (d Destination) Redacted() string {
	u, err := url.Parse(d.URL)
	if err != nil || u.Host == "" {
		return "invalid-destination"
	}
	return u.Scheme + "://" + u.Host
}
