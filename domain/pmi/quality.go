package pmi

// QualityLabel is the rating band of a quality score
type QualityLabel string

const (
	QualityExcellent QualityLabel = "excellent"
	QualityGood      QualityLabel = "good"
	QualityFair      QualityLabel = "fair"
	QualityPoor      QualityLabel = "poor"
)

// LabelFor bands a 0-100 score: excellent >= 90, good >= 70, fair >= 50, poor below.
func LabelFor(score float64) QualityLabel {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 70:
		return QualityGood
	case score >= 50:
		return QualityFair
	default:
		return QualityPoor
	}
}

// ClampScore bounds a score to [0, 100]
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
