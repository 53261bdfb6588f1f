package buildings

import "padwatch/models"

// Score estimates how likely units in a building are rent stabilized,
// from its residential unit count and construction year. Pre-1974
// buildings of 6+ units fall under the stabilization law directly;
// 1974-1984 buildings commonly opted in through tax abatements; large
// post-1984 buildings often carry 421-a style agreements.
func Score(b *models.BuildingRecord) (models.StabilizationStatus, *float64) {
	if b == nil {
		return models.StabilizationUnknown, nil
	}

	if b.ResidentialUnits == 0 {
		// Registry rows missing a unit count can't support any claim.
		return models.StabilizationUnlikely, probability(0.0)
	}

	if b.ResidentialUnits < 6 {
		return models.StabilizationUnlikely, probability(0.05)
	}

	switch {
	case b.YearBuilt > 0 && b.YearBuilt < 1974:
		return models.StabilizationConfirmed, probability(0.95)
	case b.YearBuilt >= 1974 && b.YearBuilt <= 1984:
		return models.StabilizationProbable, probability(0.70)
	case b.ResidentialUnits >= 50:
		return models.StabilizationProbable, probability(0.75)
	default:
		return models.StabilizationUnlikely, probability(0.20)
	}
}

func probability(p float64) *float64 {
	return &p
}
