package ridestore

import "github.com/example/rapidryde/internal/models"

// SeedDrivers is the fixed driver roster used when storage holds none.
func SeedDrivers() []models.Driver {
	base := []models.Driver{
		{ID: "driver1", Name: "John Doe", VehicleModel: "Toyota Prius", LicensePlate: "XYZ 123"},
		{ID: "driver2", Name: "Jane Smith", VehicleModel: "Honda Civic", LicensePlate: "ABC 789"},
		{ID: "driver007", Name: "James Bond", VehicleModel: "Aston Martin DB5", LicensePlate: "BMT 216A"},
		{ID: "driver4", Name: "Sarah Connor", VehicleModel: "Jeep Wrangler", LicensePlate: "TERM 84"},
		{ID: "driver5", Name: "Kyle Reese", VehicleModel: "Ford Pinto", LicensePlate: "SAVE SC"},
	}
	for i := range base {
		base[i].Ratings = []models.Rating{}
		base[i].Tier = models.TierUnranked
	}
	return base
}
