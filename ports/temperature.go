package ports

import (
	"context"
	"time"

	"pmiengine/domain/specimen"
)

// TemperatureRequest describes what is known about the scene temperature
type TemperatureRequest struct {
	// ManualC is an operator-supplied ambient temperature; it wins when set
	ManualC *float64 `json:"manual_c,omitempty"`
	// DailyMeanC is a daily mean to be adjusted for the time of discovery
	DailyMeanC *float64  `json:"daily_mean_c,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// TemperatureResolver turns scene information into the single ambient value the
// estimators consume
type TemperatureResolver interface {
	Resolve(ctx context.Context, req TemperatureRequest) (specimen.TemperatureContext, error)
}
