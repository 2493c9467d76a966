package pmi

// HoursPerDay converts between daily and hourly values
const HoursPerDay = 24.0

// Unit is the development-unit currency a model works in
type Unit string

const (
	UnitADD Unit = "ADD"
	UnitADH Unit = "ADH"
)

// Estimate is one single-specimen PMI result. Values are in hours.
type Estimate struct {
	Method         Method       `json:"method"`
	Hours          float64      `json:"pmi_hours"`
	LowHours       float64      `json:"confidence_low_hours"`
	HighHours      float64      `json:"confidence_high_hours"`
	QualityScore   float64      `json:"quality_score"`
	Quality        QualityLabel `json:"data_quality"`
	Warnings       []string     `json:"validation_warnings"`
	RequiredUnits  float64      `json:"required_units"`
	Unit           Unit         `json:"unit"`
	EffectiveTempC float64      `json:"effective_temp_c"`
	IntervalSource string       `json:"interval_source"`
}

// Days returns the point estimate in days
func (e Estimate) Days() float64 {
	return e.Hours / HoursPerDay
}

// LowDays returns the lower confidence bound in days
func (e Estimate) LowDays() float64 {
	return e.LowHours / HoursPerDay
}

// HighDays returns the upper confidence bound in days
func (e Estimate) HighDays() float64 {
	return e.HighHours / HoursPerDay
}

// Interval sources
const (
	IntervalFixedBand  = "fixed_band"
	IntervalAnalytical = "analytical"
	IntervalMonteCarlo = "monte_carlo"
)

// FixedBand is the default relative half-width of an estimate's interval
const FixedBand = 0.20

// Band returns value*(1-frac) and value*(1+frac), with the low bound floored at 0
func Band(value, frac float64) (low, high float64) {
	low = value * (1 - frac)
	if low < 0 {
		low = 0
	}
	return low, value * (1 + frac)
}
