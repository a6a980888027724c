package storage

import (
	"encoding/json"
	"fmt"

	"github.com/example/rapidryde/internal/models"
)

// Dates are encoded by time.Time's RFC 3339 marshaller with nanosecond
// precision, so decoding yields time.Time values rather than strings.

func EncodeRides(rides []models.Ride) (string, error) {
	if rides == nil {
		rides = []models.Ride{}
	}
	b, err := json.Marshal(rides)
	if err != nil {
		return "", fmt.Errorf("encode rides: %w", err)
	}
	return string(b), nil
}

func DecodeRides(s string) ([]models.Ride, error) {
	var rides []models.Ride
	if err := json.Unmarshal([]byte(s), &rides); err != nil {
		return nil, fmt.Errorf("decode rides: %w", err)
	}
	for _, r := range rides {
		if !r.Status.Valid() {
			return nil, fmt.Errorf("decode rides: ride %s has unknown status %q", r.ID, r.Status)
		}
	}
	return rides, nil
}

func EncodeDrivers(drivers []models.Driver) (string, error) {
	if drivers == nil {
		drivers = []models.Driver{}
	}
	b, err := json.Marshal(drivers)
	if err != nil {
		return "", fmt.Errorf("encode drivers: %w", err)
	}
	return string(b), nil
}

func DecodeDrivers(s string) ([]models.Driver, error) {
	var drivers []models.Driver
	if err := json.Unmarshal([]byte(s), &drivers); err != nil {
		return nil, fmt.Errorf("decode drivers: %w", err)
	}
	for i := range drivers {
		if drivers[i].Ratings == nil {
			drivers[i].Ratings = []models.Rating{}
		}
		if drivers[i].Tier == "" {
			drivers[i].Tier = models.TierUnranked
		}
	}
	return drivers, nil
}
