package lifecycle

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/example/rapidryde/internal/models"
)

var allStatuses = []models.RideStatus{
	models.StatusSearching, models.StatusPendingApproval, models.StatusScheduled,
	models.StatusDriverAssigned, models.StatusEnRoutePickup, models.StatusArrivedPickup,
	models.StatusInProgress, models.StatusCompleted, models.StatusCancelled,
}

func rideIn(s models.RideStatus) models.Ride {
	r := models.Ride{ID: "ride-1", PickupLocation: "A", DropoffLocation: "B", Status: s, User: models.User{ID: "u1", Name: "U"}}
	if s != models.StatusPendingApproval && s != models.StatusScheduled && s != models.StatusSearching {
		r.Driver = &models.Driver{ID: "d1", Name: "D", ETA: "5 mins"}
	}
	return r
}

func TestAcceptOnlyFromPendingApproval(t *testing.T) {
	drv := models.Driver{ID: "d1", Name: "D"}
	for _, s := range allStatuses {
		in := rideIn(s)
		out, ok := Accept(in, drv, "3 mins")
		if s == models.StatusPendingApproval {
			if !ok || out.Status != models.StatusDriverAssigned || out.Driver == nil || out.Driver.ETA == "" {
				t.Fatalf("accept from pending: ok=%v ride=%+v", ok, out)
			}
			continue
		}
		if ok || !reflect.DeepEqual(in, out) {
			t.Fatalf("accept from %s should be a no-op", s)
		}
	}
}

func TestAdvanceChain(t *testing.T) {
	r := rideIn(models.StatusDriverAssigned)
	r, ok := Advance(r)
	if !ok || r.Status != models.StatusEnRoutePickup || r.Driver.ETA != EnRouteETA {
		t.Fatalf("step 1: %+v", r)
	}
	r, ok = Advance(r)
	if !ok || r.Status != models.StatusArrivedPickup || r.Driver.ETA != "" {
		t.Fatalf("step 2: %+v", r)
	}
	r, ok = Advance(r)
	if !ok || r.Status != models.StatusInProgress {
		t.Fatalf("step 3: %+v", r)
	}
	if _, ok = Advance(r); ok {
		t.Fatalf("in_progress must not advance automatically")
	}
}

func TestCompleteOnlyFromInProgress(t *testing.T) {
	for _, s := range allStatuses {
		out, ok := Complete(rideIn(s))
		if s == models.StatusInProgress {
			if !ok || out.Status != models.StatusCompleted || out.Driver == nil {
				t.Fatalf("complete: ok=%v ride=%+v", ok, out)
			}
			continue
		}
		if ok || out.Status != s {
			t.Fatalf("complete from %s should be a no-op", s)
		}
	}
}

func TestCancelFromEveryNonTerminal(t *testing.T) {
	for _, s := range allStatuses {
		out, ok := Cancel(rideIn(s))
		if s.IsTerminal() {
			if ok || out.Status != s {
				t.Fatalf("cancel from %s should be a no-op", s)
			}
			continue
		}
		if !ok || out.Status != models.StatusCancelled {
			t.Fatalf("cancel from %s failed", s)
		}
	}
}

func TestRateRequiresCompleted(t *testing.T) {
	if _, ok := Rate(rideIn(models.StatusInProgress), 4); ok {
		t.Fatalf("rating before completion should be rejected")
	}
	out, ok := Rate(rideIn(models.StatusCompleted), 4)
	if !ok || out.RatingGiven == nil || *out.RatingGiven != 4 {
		t.Fatalf("rate: %+v", out)
	}
}

func TestTransitionsDoNotAlias(t *testing.T) {
	in := rideIn(models.StatusDriverAssigned)
	out, _ := Advance(in)
	if in.Driver.ETA != "5 mins" || out.Driver == in.Driver {
		t.Fatalf("advance mutated its input")
	}
}

func TestRandomETA(t *testing.T) {
	for i := 0; i < 50; i++ {
		eta := RandomETA()
		if !strings.HasSuffix(eta, " mins") {
			t.Fatalf("unexpected eta %q", eta)
		}
	}
}

func TestDelaysFor(t *testing.T) {
	d := DefaultDelays()
	if v, ok := d.For(models.StatusArrivedPickup); !ok || v != 3*time.Second {
		t.Fatalf("arrived delay = %v %v", v, ok)
	}
	if _, ok := d.For(models.StatusInProgress); ok {
		t.Fatalf("in_progress has no automatic delay")
	}
}
