package species

// Family of the fly; decides the colonization pattern
type Family string

const (
	Calliphoridae Family = "calliphoridae"
	Sarcophagidae Family = "sarcophagidae"
)

// Valid reports whether the family is one the table models
func (f Family) Valid() bool {
	return f == Calliphoridae || f == Sarcophagidae
}

// ConfidenceTier ranks how well a species' development data is documented
type ConfidenceTier string

const (
	TierWellStudied ConfidenceTier = "well_studied"
	TierDocumented  ConfidenceTier = "documented"
)

// Valid reports whether the tier is one of the known tiers
func (t ConfidenceTier) Valid() bool {
	return t == TierWellStudied || t == TierDocumented
}

// Range is a closed numeric interval
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies in [Min, Max]
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Distance returns how far v lies outside the range, 0 when inside
func (r Range) Distance(v float64) float64 {
	switch {
	case v < r.Min:
		return r.Min - v
	case v > r.Max:
		return v - r.Max
	}
	return 0
}

// Span returns Max - Min
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Threshold holds the development units (ADD) needed to reach the end of a stage
type Threshold struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Mid float64 `json:"mid"`
}

// StageData is the per-stage reference record
type StageData struct {
	Threshold Threshold `json:"threshold"`
	LengthMM  Range     `json:"length_mm"`
}

// Profile is the immutable development profile of one species
type Profile struct {
	ID                 string              `json:"id"`
	CommonName         string              `json:"common_name"`
	Family             Family              `json:"family"`
	BaseTempC          float64             `json:"base_temp_c"`
	Tier               ConfidenceTier      `json:"confidence_tier"`
	RateIntercept      float64             `json:"rate_intercept"`
	ValidatedRangeC    Range               `json:"validated_range_c"`
	ColonizationWindow Range               `json:"colonization_window_days"`
	Stages             map[Stage]StageData `json:"stages"`
}

// Threshold returns the development units for the stage
func (p *Profile) Threshold(stage Stage) (Threshold, bool) {
	sd, ok := p.Stages[stage]
	return sd.Threshold, ok
}

// Length returns the typical length range for the stage
func (p *Profile) Length(stage Stage) (Range, bool) {
	sd, ok := p.Stages[stage]
	return sd.LengthMM, ok
}

// CompleteDevelopment is the unit total needed to finish the pupal stage
func (p *Profile) CompleteDevelopment() float64 {
	return p.Stages[Pupa].Threshold.Max
}

// EffectiveTemp returns ambient minus the species base temperature
func (p *Profile) EffectiveTemp(ambientC float64) float64 {
	return ambientC - p.BaseTempC
}

// WellStudied reports whether the species sits in the well-studied tier
func (p *Profile) WellStudied() bool {
	return p.Tier == TierWellStudied
}
