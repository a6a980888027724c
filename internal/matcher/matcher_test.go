package matcher

import (
	"testing"

	"github.com/example/rapidryde/internal/models"
)

type fakeRides struct {
	drivers []models.Driver
	rides   []models.Ride
}

func (f *fakeRides) Drivers() []models.Driver { return f.drivers }

func (f *fakeRides) PendingRides() []models.Ride {
	var out []models.Ride
	for _, r := range f.rides {
		if r.Status == models.StatusPendingApproval {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRides) ActiveDriverRides(id string) []models.Ride {
	var out []models.Ride
	for _, r := range f.rides {
		if r.Driver != nil && r.Driver.ID == id && r.Status.Active() {
			out = append(out, r)
		}
	}
	return out
}

func TestBusyDriverCannotAccept(t *testing.T) {
	f := &fakeRides{
		drivers: []models.Driver{{ID: "A"}, {ID: "B"}},
		rides: []models.Ride{
			{ID: "r1", Status: models.StatusEnRoutePickup, Driver: &models.Driver{ID: "A"}},
			{ID: "r2", Status: models.StatusPendingApproval},
		},
	}
	s := &Service{Rides: f}
	a := s.Board("A")
	if a.CanAccept || a.ActiveRide == nil || a.ActiveRide.ID != "r1" {
		t.Fatalf("unexpected board for A: %+v", a)
	}
	b := s.Board("B")
	if !b.CanAccept || len(b.Pending) != 1 || b.Pending[0].ID != "r2" {
		t.Fatalf("unexpected board for B: %+v", b)
	}
}

func TestAvailablePrefersHigherRating(t *testing.T) {
	f := &fakeRides{
		drivers: []models.Driver{
			{ID: "A", AverageRating: 4.0},
			{ID: "B", AverageRating: 5.0},
			{ID: "C", AverageRating: 5.0, Ratings: make([]models.Rating, 3)},
			{ID: "D", AverageRating: 4.9},
		},
		rides: []models.Ride{{ID: "r1", Status: models.StatusInProgress, Driver: &models.Driver{ID: "D"}}},
	}
	got := (&Service{Rides: f}).Available()
	if len(got) != 3 || got[0].ID != "C" || got[1].ID != "B" || got[2].ID != "A" {
		t.Fatalf("unexpected order %+v", got)
	}
}
