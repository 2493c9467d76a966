package specimen

import (
	"fmt"
	"strconv"

	"pmiengine/domain/core"
)

// Batch is the specimen batch input document
type Batch struct {
	Specimens []Input  `json:"specimens"`
	AmbientC  *float64 `json:"ambient_c,omitempty"`
	Method    string   `json:"method,omitempty"`
}

// TemperatureFor returns the per-specimen override when present, else the batch value.
func (b Batch) TemperatureFor(i int, fallback TemperatureContext) TemperatureContext {
	if i >= 0 && i < len(b.Specimens) && b.Specimens[i].AmbientC != nil {
		return Manual(*b.Specimens[i].AmbientC)
	}
	if b.AmbientC != nil {
		return Manual(*b.AmbientC)
	}
	return fallback
}

// Fingerprint identifies the batch contents in input order
func (b Batch) Fingerprint() core.BatchFingerprint {
	rows := make([][]string, len(b.Specimens))
	for i, s := range b.Specimens {
		rows[i] = []string{s.SpecimenID, s.Species, s.Stage, formatOptional(s.LengthMM), formatOptional(s.AmbientC)}
	}
	if b.AmbientC != nil {
		rows = append(rows, []string{"ambient", formatOptional(b.AmbientC)})
	}
	return core.ComputeBatchFingerprint(rows)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// String is a short description for logs
func (b Batch) String() string {
	return fmt.Sprintf("batch(%d specimens)", len(b.Specimens))
}
