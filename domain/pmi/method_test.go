package pmi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmiengine/domain/core"
)

func TestParseMethodRoundTrip(t *testing.T) {
	for _, m := range AllMethods() {
		parsed, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	assert.Len(t, AllMethods(), int(MethodCount))
}

func TestParseMethodDefaultsAndErrors(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, ADDStandard, m)

	_, err = ParseMethod("linear_guess")
	require.Error(t, err)
	assert.True(t, core.IsUnknownMethodError(err))
}

func TestMethodNamesComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range AllMethods() {
		name := m.String()
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	assert.Equal(t, "unknown", Method(99).String())
}

func TestMethodJSON(t *testing.T) {
	data, err := json.Marshal(ThermalSummation)
	require.NoError(t, err)
	assert.Equal(t, `"thermal_summation"`, string(data))

	var m Method
	require.NoError(t, json.Unmarshal([]byte(`"adh_method"`), &m))
	assert.Equal(t, ADHMethod, m)
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &m))
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  QualityLabel
	}{
		{100, QualityExcellent},
		{90, QualityExcellent},
		{89.9, QualityGood},
		{70, QualityGood},
		{69, QualityFair},
		{50, QualityFair},
		{49.99, QualityPoor},
		{0, QualityPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelFor(tt.score), "score %v", tt.score)
	}
}

func TestBandFloorsAtZero(t *testing.T) {
	low, high := Band(10, 0.2)
	assert.InDelta(t, 8.0, low, 1e-12)
	assert.InDelta(t, 12.0, high, 1e-12)

	low, _ = Band(10, 1.5)
	assert.Zero(t, low)
}
