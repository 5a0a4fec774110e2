// Package pipeline wires fetching, parsing, dedup, and delivery into
// one invocation of the relay.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"release_relay/internal/feed"
	"release_relay/internal/model"
	"release_relay/internal/secrets"
	"release_relay/internal/store"
	"release_relay/internal/webhook"
)

// Summary is the outcome of one invocation.
type Summary struct {
	Delivered int
	Skipped   int
	Failed    int
}

// Deps are the collaborators a Runner needs.
type Deps struct {
	Fetcher      *feed.Fetcher
	Parser       *feed.Parser
	Seen         store.SeenStore
	Dispatcher   *webhook.Dispatcher
	Destinations secrets.Provider
	SearchAPIURL string
	FeedURL      string
	Log          *slog.Logger
}

// Runner executes the fetch -> parse -> filter-seen -> deliver ->
// record-seen cycle once per Run call. It holds no mutable state
// between runs; the seen store is the only cross-invocation memory.
type Runner struct {
	deps Deps
	now  func() time.Time
}

// New creates a Runner.
func New(deps Deps) *Runner {
	return &Runner{
		deps: deps,
		now:  time.Now,
	}
}

// Run processes one invocation. Configuration, fetch, and parse
// failures abort the run and are returned to the caller. Per-record
// delivery and store failures are counted in the Summary and logged,
// but never stop the remaining records.
//
// Commit policy: an announcement is marked seen only after delivery to
// ALL destinations succeeded. A transient failure on one destination
// therefore causes the next cycle to redeliver to every destination,
// including ones that already received the message; the alternative
// would let a destination miss an announcement permanently.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	dests, err := r.deps.Destinations.Destinations(ctx)
	if err != nil {
		return sum, err
	}

	anns, err := r.loadAnnouncements(ctx)
	if err != nil {
		return sum, err
	}

	log := r.deps.Log
	for _, ann := range anns {
		if ctx.Err() != nil {
			// Unprocessed records stay unmarked and are retried next
			// cycle.
			break
		}

		seen, err := r.deps.Seen.Has(ctx, ann.ID)
		if err != nil {
			log.Error("check seen", "id", ann.ID, "error", err)
			sum.Failed++
			continue
		}
		if seen {
			sum.Skipped++
			continue
		}

		res := r.deps.Dispatcher.Dispatch(ctx, ann, dests)
		if !res.AllDelivered() {
			for _, f := range res.Failed {
				log.Error("deliver announcement",
					"id", ann.ID, "destination", f.Destination.Redacted(), "error", f)
			}
			sum.Failed++
			continue
		}

		entry := model.SeenEntry{
			ID:          ann.ID,
			Title:       ann.Title,
			PublishedAt: ann.PublishedAt,
			DeliveredAt: r.now().UTC(),
		}
		if err := r.deps.Seen.MarkSeen(ctx, entry); err != nil {
			// Delivered but uncommitted: the next cycle resends rather
			// than risk losing the dedup record.
			log.Error("mark seen", "id", ann.ID, "error", err)
			sum.Failed++
			continue
		}

		sum.Delivered++
		log.Info("delivered announcement", "id", ann.ID, "title", ann.Title)
	}

	return sum, nil
}

// loadAnnouncements tries the search API first and falls back to the
// RSS feed when the API cannot be fetched or parsed. Both failing
// aborts the invocation.
func (r *Runner) loadAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	raw, err := r.deps.Fetcher.Fetch(ctx, r.deps.SearchAPIURL)
	if err == nil {
		anns, perr := r.deps.Parser.ParseSearchAPI(raw)
		if perr == nil {
			return anns, nil
		}
		err = perr
	}
	r.deps.Log.Warn("search api unusable, falling back to rss", "error", err)

	raw, ferr := r.deps.Fetcher.Fetch(ctx, r.deps.FeedURL)
	if ferr != nil {
		return nil, ferr
	}
	return r.deps.Parser.ParseRSS(raw, r.now())
}
