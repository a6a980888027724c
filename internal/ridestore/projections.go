package ridestore

import (
	"sort"
	"strings"

	"github.com/example/rapidryde/internal/models"
	"github.com/example/rapidryde/internal/rating"
)

// LeaderboardEntry is one ranked row of the driver leaderboard.
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	DriverID      string          `json:"driver_id"`
	Name          string          `json:"name"`
	VehicleModel  string          `json:"vehicle_model"`
	AverageRating float64         `json:"average_rating"`
	RatingCount   int             `json:"rating_count"`
	Tier          models.TierName `json:"tier"`
	TierIcon      string          `json:"tier_icon"`
}

// Rides returns every ride, most recently booked first.
func (s *Store) Rides() []models.Ride {
	s.mu.Lock()
	out := cloneRides(s.rides, nil)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out
}

func (s *Store) Ride(id string) (models.Ride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.rideIndexLocked(id); i >= 0 {
		return s.rides[i].Clone(), true
	}
	return models.Ride{}, false
}

func (s *Store) Drivers() []models.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Driver, len(s.drivers))
	for i, d := range s.drivers {
		out[i] = d.Clone()
	}
	return out
}

func (s *Store) Driver(id string) (models.Driver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.driverIndexLocked(id); i >= 0 {
		return s.drivers[i].Clone(), true
	}
	return models.Driver{}, false
}

// CurrentRide is the user's first ride that is neither completed nor cancelled.
func (s *Store) CurrentRide(userID string) (models.Ride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rides {
		if r.User.ID == userID && r.Status.Active() {
			return r.Clone(), true
		}
	}
	return models.Ride{}, false
}

// ActiveDriverRides lists the non-terminal rides assigned to a driver.
func (s *Store) ActiveDriverRides(driverID string) []models.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRides(s.rides, func(r models.Ride) bool {
		return r.Driver != nil && r.Driver.ID == driverID && r.Status.Active()
	})
}

// PendingRides lists rides waiting for a driver to accept them.
func (s *Store) PendingRides() []models.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRides(s.rides, func(r models.Ride) bool { return r.Status == models.StatusPendingApproval })
}

// Leaderboard ranks drivers by average rating, then number of ratings, then name.
func (s *Store) Leaderboard() []LeaderboardEntry {
	return RankDrivers(s.Drivers())
}

// RankDrivers orders drivers for the leaderboard. Ties on average rating go to
// the driver with more ratings, then to the lexicographically smaller name.
func RankDrivers(drivers []models.Driver) []LeaderboardEntry {
	sorted := append([]models.Driver(nil), drivers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if len(a.Ratings) != len(b.Ratings) {
			return len(a.Ratings) > len(b.Ratings)
		}
		return strings.Compare(a.Name, b.Name) < 0
	})
	out := make([]LeaderboardEntry, len(sorted))
	for i, d := range sorted {
		tier := rating.TierFor(d.AverageRating)
		out[i] = LeaderboardEntry{
			Rank:          i + 1,
			DriverID:      d.ID,
			Name:          d.Name,
			VehicleModel:  d.VehicleModel,
			AverageRating: d.AverageRating,
			RatingCount:   len(d.Ratings),
			Tier:          tier.Name,
			TierIcon:      tier.Icon,
		}
	}
	return out
}

func cloneRides(rides []models.Ride, keep func(models.Ride) bool) []models.Ride {
	out := make([]models.Ride, 0, len(rides))
	for _, r := range rides {
		if keep == nil || keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
