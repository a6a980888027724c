package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/rapidryde/internal/models"
)

type fakeConn struct {
	sent   []models.RideEvent
	fail   bool
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	f.sent = append(f.sent, v.(models.RideEvent))
	return nil
}

func (f *fakeConn) Close() error { f.closed = true; return nil }

type countSink struct {
	n   int
	err error
}

func (c *countSink) Name() string { return "count" }
func (c *countSink) Send(context.Context, models.RideEvent) error {
	c.n++
	return c.err
}

func TestWSRegistryRoutesToParticipants(t *testing.T) {
	reg := NewWSRegistry()
	user, driver, admin, stranger := &fakeConn{}, &fakeConn{}, &fakeConn{}, &fakeConn{}
	reg.Add("u1", user)
	reg.Add("d1", driver)
	reg.Add(AdminIdentity, admin)
	reg.Add("u2", stranger)

	ev := models.RideEvent{Type: models.EventRideAccepted, RideID: "r1", UserID: "u1", DriverID: "d1"}
	if err := reg.Send(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(user.sent) != 1 || len(driver.sent) != 1 || len(admin.sent) != 1 {
		t.Fatalf("participants missed the event: %d %d %d", len(user.sent), len(driver.sent), len(admin.sent))
	}
	if len(stranger.sent) != 0 {
		t.Fatalf("unrelated user received the event")
	}
}

func TestWSRegistryDropsBrokenSessions(t *testing.T) {
	reg := NewWSRegistry()
	bad := &fakeConn{fail: true}
	reg.Add("u1", bad)
	if err := reg.Send(context.Background(), models.RideEvent{RideID: "r1", UserID: "u1"}); err == nil {
		t.Fatalf("expected write error")
	}
	if reg.Count("u1") != 0 || !bad.closed {
		t.Fatalf("broken session was kept")
	}
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	failing := &countSink{err: errors.New("down")}
	ok := &countSink{}
	f := NewFanout(slog.New(slog.NewTextHandler(io.Discard, nil)), failing, ok)
	f.Notify(context.Background(), models.RideEvent{RideID: "r1"})
	if failing.n != 1 || ok.n != 1 {
		t.Fatalf("expected both sinks called, got %d %d", failing.n, ok.n)
	}
}

func TestWebhookSink(t *testing.T) {
	var got int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got++
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	s := NewWebhookSink(srv.URL)
	if err := s.Send(context.Background(), models.RideEvent{RideID: "r1"}); err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("expected one delivery, got %d", got)
	}
}
