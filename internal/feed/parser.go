package feed

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"release_relay/internal/model"
)

const (
	maxBodyLen = 300

	// Entries older than this are ignored when falling back to RSS;
	// the search API already limits itself to the latest page.
	rssWindow = 12 * time.Hour
)

type searchAPIDoc struct {
	Items []struct {
		Item struct {
			AdditionalFields struct {
				Headline     string `json:"headline"`
				HeadlineURL  string `json:"headlineUrl"`
				PostDateTime string `json:"postDateTime"`
				PostSummary  string `json:"postSummary"`
			} `json:"additionalFields"`
		} `json:"item"`
	} `json:"items"`
}

// Parser converts raw feed payloads into announcement records. Parsing
// is pure: no I/O, and source order is preserved.
type Parser struct {
	baseURL string
	strip   *bluemonday.Policy
}

// NewParser creates a Parser. Relative links from the search API are
// resolved against siteBaseURL.
func NewParser(siteBaseURL string) *Parser {
	return &Parser{
		baseURL: strings.TrimRight(siteBaseURL, "/"),
		strip:   bluemonday.StrictPolicy(),
	}
}

// ParseSearchAPI decodes the search API response. The API returns
// entries newest-first; they are reversed so callers process them in
// chronological order.
func (p *Parser) ParseSearchAPI(raw []byte) ([]model.Announcement, error) {
	var doc searchAPIDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Source: "search api", Err: err}
	}

	anns := make([]model.Announcement, 0, len(doc.Items))
	for i := len(doc.Items) - 1; i >= 0; i-- {
		af := doc.Items[i].Item.AdditionalFields
		if af.Headline == "" || af.HeadlineURL == "" {
			return nil, &ParseError{
				Source: "search api",
				Err:    fmt.Errorf("item %d missing headline or headlineUrl", i),
			}
		}
		link := p.resolveLink(af.HeadlineURL)
		anns = append(anns, model.Announcement{
			ID:          AnnouncementID(link, af.Headline),
			Title:       strings.TrimSpace(af.Headline),
			Body:        p.cleanBody(af.PostSummary),
			Link:        link,
			PublishedAt: parseAPITime(af.PostDateTime),
		})
	}
	return anns, nil
}

// ParseRSS decodes an RSS payload, keeping only entries published
// within the last twelve hours relative to now.
func (p *Parser) ParseRSS(raw []byte, now time.Time) ([]model.Announcement, error) {
	parsed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil, &ParseError{Source: "rss", Err: err}
	}

	var anns []model.Announcement
	for _, item := range parsed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		if now.Sub(*item.PublishedParsed) >= rssWindow {
			continue
		}
		anns = append(anns, model.Announcement{
			ID:          AnnouncementID(item.Link, item.Title),
			Title:       strings.TrimSpace(item.Title),
			Body:        p.cleanBody(item.Description),
			Link:        item.Link,
			PublishedAt: item.PublishedParsed.UTC(),
		})
	}
	return anns, nil
}

// AnnouncementID returns the dedup key for an entry: the canonical
// link URL when present, otherwise a SHA-256 hash of the title.
func AnnouncementID(link, title string) string {
	if link != "" {
		return link
	}
	h := sha256.Sum256([]byte(title + "|" + link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

func (p *Parser) resolveLink(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return p.baseURL + u
}

// cleanBody strips markup from a summary and bounds its length so the
// chat message stays short.
func (p *Parser) cleanBody(s string) string {
	s = html.UnescapeString(p.strip.Sanitize(s))
	s = strings.TrimSpace(s)
	if len(s) > maxBodyLen {
		s = s[:maxBodyLen] + "..."
	}
	return s
}

func parseAPITime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	// Descriptive field only; a missing timestamp is not fatal.
	return time.Time{}
}
