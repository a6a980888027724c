package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/rapidryde/internal/models"
	"github.com/example/rapidryde/internal/observability"
)

// Sink delivers ride events somewhere. Errors are reported to the caller
// but never block the ride store.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev models.RideEvent) error
}

// Fanout hands every event to each sink in turn and logs failures.
type Fanout struct {
	Sinks  []Sink
	Logger *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	return &Fanout{Sinks: sinks, Logger: logger}
}

func (f *Fanout) Notify(ctx context.Context, ev models.RideEvent) {
	for _, s := range f.Sinks {
		if err := s.Send(ctx, ev); err != nil {
			observability.EventsPublished.WithLabelValues(s.Name(), "error").Inc()
			if f.Logger != nil {
				f.Logger.Warn("event delivery failed", "sink", s.Name(), "ride_id", ev.RideID, "type", ev.Type, "error", err)
			}
			continue
		}
		observability.EventsPublished.WithLabelValues(s.Name(), "ok").Inc()
	}
}

// LogSink writes one structured line per event.
type LogSink struct {
	Logger *slog.Logger
}

func (LogSink) Name() string { return "log" }

func (l LogSink) Send(_ context.Context, ev models.RideEvent) error {
	l.Logger.Info("ride_event", "type", ev.Type, "ride_id", ev.RideID, "status", ev.Status,
		"user_id", ev.UserID, "driver_id", ev.DriverID, "title", ev.Title, "message", ev.Message)
	return nil
}

// WebhookSink posts each event as JSON to an HTTP endpoint.
type WebhookSink struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookSink(endpoint string) *WebhookSink {
	return &WebhookSink{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

func (*WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Send(ctx context.Context, ev models.RideEvent) error {
	if w.Client == nil {
		w.Client = &http.Client{Timeout: 2 * time.Second}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: status %d", w.Endpoint, resp.StatusCode)
	}
	return nil
}
