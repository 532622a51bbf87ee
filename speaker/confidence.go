package speaker

// ConfidenceBand is a display hint. No confidence value is ever rejected.
type ConfidenceBand string

const (
	BandNone   ConfidenceBand = "none"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

const (
	LowConfidenceBelow    = 0.5
	MediumConfidenceBelow = 0.8
)

// BandFor classifies a confidence score.
func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence < LowConfidenceBelow:
		return BandLow
	case confidence < MediumConfidenceBelow:
		return BandMedium
	default:
		return BandNone
	}
}
