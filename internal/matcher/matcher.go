package matcher

import (
	"sort"

	"github.com/example/rapidryde/internal/models"
)

// Rides is the read side of the ride store the matcher needs.
type Rides interface {
	Drivers() []models.Driver
	PendingRides() []models.Ride
	ActiveDriverRides(driverID string) []models.Ride
}

// Board is what a driver sees: their active ride, if any, and the requests
// waiting for acceptance.
type Board struct {
	DriverID   string        `json:"driver_id"`
	ActiveRide *models.Ride  `json:"active_ride,omitempty"`
	Pending    []models.Ride `json:"pending"`
	CanAccept  bool          `json:"can_accept"`
}

type Service struct {
	Rides Rides
}

// Board builds the driver dashboard. A driver already carrying an active
// ride may not accept another one.
func (s *Service) Board(driverID string) Board {
	b := Board{DriverID: driverID, Pending: s.Rides.PendingRides()}
	if active := s.Rides.ActiveDriverRides(driverID); len(active) > 0 {
		r := active[0]
		b.ActiveRide = &r
	}
	b.CanAccept = b.ActiveRide == nil
	return b
}

// CanAccept reports whether the driver is free to take a new ride.
func (s *Service) CanAccept(driverID string) bool {
	return len(s.Rides.ActiveDriverRides(driverID)) == 0
}

// Available lists drivers with no active ride, best rated first. Drivers
// with more ratings win ties.
func (s *Service) Available() []models.Driver {
	drivers := s.Rides.Drivers()
	out := make([]models.Driver, 0, len(drivers))
	for _, d := range drivers {
		if s.CanAccept(d.ID) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return len(out[i].Ratings) > len(out[j].Ratings)
	})
	return out
}
