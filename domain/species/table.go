package species

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"pmiengine/domain/core"
)

//go:embed species.yaml
var referenceYAML []byte

// Table is the read-only species lookup. Build it once and share the pointer.
type Table struct {
	profiles map[string]*Profile
	ids      []string
}

type yamlDocument struct {
	Species []yamlSpecies `yaml:"species"`
}

type yamlSpecies struct {
	ID                 string               `yaml:"id"`
	CommonName         string               `yaml:"common_name"`
	Family             Family               `yaml:"family"`
	BaseTempC          float64              `yaml:"base_temp_c"`
	Tier               ConfidenceTier       `yaml:"confidence_tier"`
	RateIntercept      float64              `yaml:"rate_intercept"`
	ValidatedRangeC    Range                `yaml:"validated_range_c"`
	ColonizationWindow Range                `yaml:"colonization_window_days"`
	Stages             map[string]yamlStage `yaml:"stages"`
}

type yamlStage struct {
	ADD      Range `yaml:"add"`
	LengthMM Range `yaml:"length_mm"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded reference table, parsed on first use.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load()
	})
	return defaultTable, defaultErr
}

// MustDefault is Default for program start-up paths
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load parses the embedded reference data
func Load() (*Table, error) {
	return Parse(referenceYAML)
}

// Parse builds a table from a YAML document and checks every profile.
func Parse(data []byte) (*Table, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse species reference data: %w", err)
	}
	if len(doc.Species) == 0 {
		return nil, fmt.Errorf("species reference data is empty")
	}

	t := &Table{profiles: make(map[string]*Profile, len(doc.Species))}
	for _, ys := range doc.Species {
		p, err := ys.profile()
		if err != nil {
			return nil, err
		}
		if _, dup := t.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate species %q", p.ID)
		}
		t.profiles[p.ID] = p
		t.ids = append(t.ids, p.ID)
	}
	sort.Strings(t.ids)
	return t, nil
}

func (ys yamlSpecies) profile() (*Profile, error) {
	if ys.ID == "" {
		return nil, fmt.Errorf("species entry without id")
	}
	p := &Profile{
		ID:                 ys.ID,
		CommonName:         ys.CommonName,
		Family:             ys.Family,
		BaseTempC:          ys.BaseTempC,
		Tier:               ys.Tier,
		RateIntercept:      ys.RateIntercept,
		ValidatedRangeC:    ys.ValidatedRangeC,
		ColonizationWindow: ys.ColonizationWindow,
		Stages:             make(map[Stage]StageData, len(Stages)),
	}
	if !p.Family.Valid() {
		return nil, fmt.Errorf("species %s: unknown family %q", p.ID, p.Family)
	}
	if !p.Tier.Valid() {
		return nil, fmt.Errorf("species %s: unknown confidence tier %q", p.ID, p.Tier)
	}
	if p.RateIntercept < 0 {
		return nil, fmt.Errorf("species %s: negative rate intercept", p.ID)
	}

	prevMax := 0.0
	for _, stage := range Stages {
		raw, ok := ys.Stages[string(stage)]
		if !ok {
			return nil, fmt.Errorf("species %s: missing stage %s", p.ID, stage)
		}
		if raw.ADD.Min <= 0 || raw.ADD.Max <= raw.ADD.Min {
			return nil, fmt.Errorf("species %s stage %s: invalid threshold %v", p.ID, stage, raw.ADD)
		}
		if raw.ADD.Min < prevMax {
			return nil, fmt.Errorf("species %s stage %s: thresholds must increase across stages", p.ID, stage)
		}
		if raw.LengthMM.Max <= raw.LengthMM.Min {
			return nil, fmt.Errorf("species %s stage %s: invalid length range %v", p.ID, stage, raw.LengthMM)
		}
		prevMax = raw.ADD.Max
		p.Stages[stage] = StageData{
			Threshold: Threshold{
				Min: raw.ADD.Min,
				Max: raw.ADD.Max,
				Mid: (raw.ADD.Min + raw.ADD.Max) / 2,
			},
			LengthMM: raw.LengthMM,
		}
	}
	return p, nil
}

// Lookup returns the profile for a species id
func (t *Table) Lookup(id string) (*Profile, error) {
	p, ok := t.profiles[id]
	if !ok {
		return nil, core.NewUnknownSpeciesError(id)
	}
	return p, nil
}

// IDs returns every species id in sorted order
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Len returns the number of species
func (t *Table) Len() int {
	return len(t.ids)
}
