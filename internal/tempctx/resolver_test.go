package tempctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmiengine/domain/core"
	"pmiengine/domain/specimen"
	"pmiengine/ports"
)

func TestOffsetForHour(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{0, -6}, {5, -6}, {6, -3}, {8, -3}, {9, 0}, {11, 0},
		{12, 4}, {16, 4}, {17, 1}, {19, 1}, {20, -2}, {23, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OffsetForHour(tt.hour), "hour %d", tt.hour)
	}
}

func TestResolve(t *testing.T) {
	manual, mean := 21.5, 18.0
	afternoon := time.Date(2024, 7, 3, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  ports.TemperatureRequest
		want specimen.TemperatureContext
	}{
		{"manual wins", ports.TemperatureRequest{ManualC: &manual, DailyMeanC: &mean, ObservedAt: afternoon}, specimen.Manual(21.5)},
		{"afternoon", ports.TemperatureRequest{DailyMeanC: &mean, ObservedAt: afternoon}, specimen.TemperatureContext{AmbientC: 22, Source: specimen.SourceTimeOfDay}},
		{"night", ports.TemperatureRequest{DailyMeanC: &mean, ObservedAt: afternoon.Add(-12 * time.Hour)}, specimen.TemperatureContext{AmbientC: 12, Source: specimen.SourceTimeOfDay}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver().Resolve(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	mean := 18.0
	_, err := NewResolver().Resolve(context.Background(), ports.TemperatureRequest{})
	assert.True(t, core.IsInputValidationError(err))

	_, err = NewResolver().Resolve(context.Background(), ports.TemperatureRequest{DailyMeanC: &mean})
	assert.True(t, core.IsInputValidationError(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewResolver().Resolve(ctx, ports.TemperatureRequest{DailyMeanC: &mean})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "22.0°C (time_of_day)", Describe(specimen.TemperatureContext{AmbientC: 22, Source: specimen.SourceTimeOfDay}))
}
