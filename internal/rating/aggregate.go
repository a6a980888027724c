package rating

import (
	"math"

	"github.com/example/rapidryde/internal/models"
)

// Upsert replaces the rating left by the same user for the same ride, or
// appends it when there is none. The input slice is not modified.
func Upsert(ratings []models.Rating, r models.Rating) []models.Rating {
	out := make([]models.Rating, len(ratings), len(ratings)+1)
	copy(out, ratings)
	for i := range out {
		if out[i].RideID == r.RideID && out[i].UserID == r.UserID {
			out[i].Rating = r.Rating
			return out
		}
	}
	return append(out, r)
}

// Average is the mean of all ratings rounded to two decimals, 0 when empty.
func Average(ratings []models.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r.Rating
	}
	return math.Round(float64(total)/float64(len(ratings))*100) / 100
}

// Apply folds r into the driver's ratings and recomputes average and tier.
func Apply(d models.Driver, r models.Rating) models.Driver {
	out := d.Clone()
	out.Ratings = Upsert(d.Ratings, r)
	out.AverageRating = Average(out.Ratings)
	out.Tier = ClassifyTier(out.AverageRating)
	return out
}
