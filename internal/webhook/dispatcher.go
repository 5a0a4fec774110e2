package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"release_relay/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// How many destinations are posted to at once.
const defaultFanout = 4

// DeliveryError reports a failed POST to a single destination.
type DeliveryError struct {
	Destination model.Destination
	StatusCode  int
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver to %s: status %d", e.Destination.Redacted(), e.StatusCode)
	}
	return fmt.Sprintf("deliver to %s: %v", e.Destination.Redacted(), e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Result describes the outcome of one announcement's fan-out. Partial
// success is representable: some destinations delivered, some failed.
type Result struct {
	Delivered []model.Destination
	Failed    []*DeliveryError
}

// AllDelivered reports whether every destination received the message.
func (r Result) AllDelivered() bool {
	return len(r.Failed) == 0 && len(r.Delivered) > 0
}

// Dispatcher sends formatted announcements to webhook endpoints.
type Dispatcher struct {
	client HTTPClient
	fanout int
}

// NewDispatcher creates a Dispatcher with the given HTTP client.
func NewDispatcher(client HTTPClient) *Dispatcher {
	return &Dispatcher{
		client: client,
		fanout: defaultFanout,
	}
}

// Dispatch posts the announcement to every destination independently,
// with bounded concurrency. There is no atomic multi-destination
// guarantee; each outcome is recorded separately in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, ann model.Announcement, dests []model.Destination) Result {
	payload, err := json.Marshal(NewMessage(ann))
	if err != nil {
		// Unreachable with the fixed message shape, but a marshal
		// failure must still count every destination as failed.
		res := Result{}
		for _, dest := range dests {
			res.Failed = append(res.Failed, &DeliveryError{Destination: dest, Err: err})
		}
		return res
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.fanout)
	for _, dest := range dests {
		dest := dest
		g.Go(func() error {
			err := d.post(ctx, dest, payload)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var de *DeliveryError
				if !errors.As(err, &de) {
					de = &DeliveryError{Destination: dest, Err: err}
				}
				res.Failed = append(res.Failed, de)
				return nil
			}
			res.Delivered = append(res.Delivered, dest)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (d *Dispatcher) post(ctx context.Context, dest model.Destination, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.URL, bytes.NewReader(payload))
	if err != nil {
		return &DeliveryError{Destination: dest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &DeliveryError{Destination: dest, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{Destination: dest, StatusCode: resp.StatusCode}
	}
	return nil
}
