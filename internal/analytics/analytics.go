// Package analytics reports query outcomes as Measurement Protocol events.
package analytics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultEndpoint = "https://www.google-analytics.com/collect"

type Event struct {
	Category string
	Action   string
	Label    string
	ClientID string
}

// Reporter records events. Implementations must not block the caller on
// network I/O and never surface delivery errors.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

type NopReporter struct{}

func (NopReporter) Report(context.Context, Event) {}

// MeasurementReporter posts events in the background.
type MeasurementReporter struct {
	trackingID string
	endpoint   string
	httpClient *http.Client
	wg         sync.WaitGroup
}

type Options struct {
	TrackingID string
	Endpoint   string
	Timeout    time.Duration
}

// New returns a NopReporter when no tracking id is configured.
func New(opts Options) Reporter {
	if opts.TrackingID == "" {
		return NopReporter{}
	}
	return NewMeasurementReporter(opts)
}

func NewMeasurementReporter(opts Options) *MeasurementReporter {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return &MeasurementReporter{
		trackingID: opts.TrackingID,
		endpoint:   opts.Endpoint,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// Report sends ev asynchronously. The request is detached from ctx so that
// it outlives the request that produced it.
func (r *MeasurementReporter) Report(ctx context.Context, ev Event) {
	if ev.ClientID == "" {
		ev.ClientID = uuid.NewString()
	}
	form := r.payload(ev)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.post(context.WithoutCancel(ctx), form); err != nil {
			log.Warn().
				Err(err).
				Str("category", ev.Category).
				Str("action", ev.Action).
				Msg("Failed to report analytics event")
		}
	}()
}

// Wait blocks until every event reported so far has been delivered or has failed.
func (r *MeasurementReporter) Wait() {
	r.wg.Wait()
}

// Flush is Wait bounded by ctx. It reports whether every event finished.
func (r *MeasurementReporter) Flush(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Flusher is implemented by reporters that deliver in the background.
type Flusher interface {
	Flush(ctx context.Context) bool
}

// Flush drains r when it is a Flusher. Other reporters have nothing in
// flight and return true at once.
func Flush(ctx context.Context, r Reporter) bool {
	if f, ok := r.(Flusher); ok {
		return f.Flush(ctx)
	}
	return true
}

func (r *MeasurementReporter) payload(ev Event) url.Values {
	form := url.Values{}
	form.Set("v", "1")
	form.Set("tid", r.trackingID)
	form.Set("cid", ev.ClientID)
	form.Set("t", "event")
	form.Set("ec", ev.Category)
	form.Set("ea", ev.Action)
	if ev.Label != "" {
		form.Set("el", ev.Label)
	}
	return form
}

func (r *MeasurementReporter) post(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
