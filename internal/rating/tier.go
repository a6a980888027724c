package rating

import "github.com/example/rapidryde/internal/models"

// Tier describes one rung of the driver tier ladder.
type Tier struct {
	Name      models.TierName `json:"name"`
	MinRating float64         `json:"min_rating"`
	Icon      string          `json:"icon"`
}

// ladder is ordered highest to lowest; the first rung whose MinRating is met wins.
var ladder = []Tier{
	{Name: models.TierDiamond, MinRating: 4.8, Icon: "💎"},
	{Name: models.TierPlatinum, MinRating: 4.5, Icon: "💠"},
	{Name: models.TierGold, MinRating: 4.0, Icon: "🌟"},
	{Name: models.TierSilver, MinRating: 3.5, Icon: "🥈"},
	{Name: models.TierBronze, MinRating: 0, Icon: "🥉"},
}

var unranked = Tier{Name: models.TierUnranked, MinRating: 0, Icon: "⚫"}

// Tiers returns the ranked tiers, highest first, followed by Unranked.
func Tiers() []Tier {
	out := make([]Tier, 0, len(ladder)+1)
	out = append(out, ladder...)
	return append(out, unranked)
}

// TierFor returns the tier definition for an average rating.
// An average of exactly 0 means the driver has no ratings yet.
func TierFor(avg float64) Tier {
	if avg == 0 {
		return unranked
	}
	for _, t := range ladder {
		if avg >= t.MinRating {
			return t
		}
	}
	// negative averages cannot come out of Average
	return ladder[len(ladder)-1]
}

// ClassifyTier maps an average rating to its tier name.
func ClassifyTier(avg float64) models.TierName { return TierFor(avg).Name }

// Rank orders tiers by prestige: Unranked is 0, Diamond is highest.
// Unknown names rank as Unranked.
func Rank(name models.TierName) int {
	for i, t := range ladder {
		if t.Name == name {
			return len(ladder) - i
		}
	}
	return 0
}
