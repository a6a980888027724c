package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/rapidryde/internal/dispatch"
	"github.com/example/rapidryde/internal/lifecycle"
	"github.com/example/rapidryde/internal/models"
	"github.com/example/rapidryde/internal/ridestore"
	"github.com/example/rapidryde/internal/storage"
)

var start = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *lifecycle.ManualClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := lifecycle.NewManualClock(start)
	reg := dispatch.NewWSRegistry()
	store := ridestore.Open(context.Background(), storage.NewMemoryKV(), ridestore.Options{
		Clock:    clk,
		Logger:   logger,
		Notifier: dispatch.NewFanout(logger, reg),
	})
	t.Cleanup(store.Close)
	return NewServer(store, reg, logger), clk
}

func do(t *testing.T, s http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeRide(t *testing.T, rec *httptest.ResponseRecorder) models.Ride {
	t.Helper()
	var r models.Ride
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatalf("decode ride: %v (%s)", err, rec.Body.String())
	}
	return r
}

var user = map[string]string{"id": "user123", "name": "Una"}

func TestRideFlowOverHTTP(t *testing.T) {
	s, clk := newTestServer(t)

	rec := do(t, s, "POST", "/api/v1/rides", map[string]any{"pickup": "A", "dropoff": "B", "user": user})
	if rec.Code != 201 {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
	ride := decodeRide(t, rec)

	rec = do(t, s, "GET", "/api/v1/rides/pending", nil)
	if !strings.Contains(rec.Body.String(), ride.ID) {
		t.Fatalf("pending list missing ride: %s", rec.Body.String())
	}

	rec = do(t, s, "POST", "/api/v1/rides/"+ride.ID+"/accept", map[string]string{"driver_id": "driver007"})
	if rec.Code != 200 {
		t.Fatalf("accept: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeRide(t, rec); got.Status != models.StatusDriverAssigned || got.Driver.ETA == "" {
		t.Fatalf("unexpected accepted ride %+v", got)
	}

	rec = do(t, s, "POST", "/api/v1/rides/"+ride.ID+"/complete", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("premature complete: expected 409, got %d", rec.Code)
	}

	clk.Advance(11 * time.Second)
	rec = do(t, s, "GET", "/api/v1/users/user123/current-ride", nil)
	if got := decodeRide(t, rec); got.Status != models.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}

	rec = do(t, s, "POST", "/api/v1/rides/"+ride.ID+"/complete", nil)
	if rec.Code != 200 {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, "POST", "/api/v1/rides/"+ride.ID+"/rating", map[string]any{"driver_id": "driver007", "user_id": "user123", "rating": 5})
	if rec.Code != 200 {
		t.Fatalf("rating: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, "GET", "/api/v1/leaderboard", nil)
	var board []ridestore.LeaderboardEntry
	if err := json.NewDecoder(rec.Body).Decode(&board); err != nil {
		t.Fatal(err)
	}
	if board[0].DriverID != "driver007" || board[0].Tier != models.TierDiamond {
		t.Fatalf("unexpected leaderboard head %+v", board[0])
	}

	rec = do(t, s, "GET", "/api/v1/users/user123/current-ride", nil)
	if !strings.Contains(rec.Body.String(), `"idle"`) {
		t.Fatalf("expected idle after completion, got %s", rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, "POST", "/api/v1/rides", map[string]any{"pickup": "", "dropoff": "B", "user": user})
	if rec.Code != 400 {
		t.Fatalf("missing pickup: expected 400, got %d", rec.Code)
	}
	rec = do(t, s, "POST", "/api/v1/rides/schedule", map[string]any{"pickup": "A", "dropoff": "B", "user": user, "date_time": start.Add(-time.Hour)})
	if rec.Code != 400 {
		t.Fatalf("past schedule: expected 400, got %d", rec.Code)
	}
	rec = do(t, s, "POST", "/api/v1/rides/nope/cancel", nil)
	if rec.Code != 404 {
		t.Fatalf("unknown ride: expected 404, got %d", rec.Code)
	}
	rec = do(t, s, "GET", "/api/v1/drivers/ghost/board", nil)
	if rec.Code != 404 {
		t.Fatalf("unknown driver board: expected 404, got %d", rec.Code)
	}
}

func TestBusyDriverCannotAcceptSecondRide(t *testing.T) {
	s, _ := newTestServer(t)
	first := decodeRide(t, do(t, s, "POST", "/api/v1/rides", map[string]any{"pickup": "A", "dropoff": "B", "user": user}))
	second := decodeRide(t, do(t, s, "POST", "/api/v1/rides", map[string]any{"pickup": "C", "dropoff": "D", "user": map[string]string{"id": "user9", "name": "N"}}))
	if rec := do(t, s, "POST", "/api/v1/rides/"+first.ID+"/accept", map[string]string{"driver_id": "driver1"}); rec.Code != 200 {
		t.Fatalf("accept: %d", rec.Code)
	}
	if rec := do(t, s, "POST", "/api/v1/rides/"+second.ID+"/accept", map[string]string{"driver_id": "driver1"}); rec.Code != http.StatusConflict {
		t.Fatalf("busy driver: expected 409, got %d", rec.Code)
	}
	rec := do(t, s, "GET", "/api/v1/drivers/driver1/board", nil)
	if !strings.Contains(rec.Body.String(), `"can_accept":false`) {
		t.Fatalf("board should block accepting: %s", rec.Body.String())
	}
}

func TestScheduleOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)
	when := start.Add(3 * time.Hour)
	rec := do(t, s, "POST", "/api/v1/rides/schedule", map[string]any{"pickup": "A", "dropoff": "B", "user": user, "date_time": when})
	if rec.Code != 201 {
		t.Fatalf("schedule: %d %s", rec.Code, rec.Body.String())
	}
	r := decodeRide(t, rec)
	if r.Status != models.StatusScheduled || r.ScheduledTime == nil || !r.ScheduledTime.Equal(when) {
		t.Fatalf("unexpected scheduled ride %+v", r)
	}
}

func TestWebsocketReceivesRideEvents(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/user123"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.WSReg.Count("user123") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if rec := do(t, s, "POST", "/api/v1/rides", map[string]any{"pickup": "A", "dropoff": "B", "user": user}); rec.Code != 201 {
		t.Fatalf("book: %d", rec.Code)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.RideEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != models.EventBookingRequested || ev.UserID != "user123" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
