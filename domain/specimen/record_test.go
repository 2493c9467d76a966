package specimen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmiengine/domain/core"
	"pmiengine/domain/species"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewRecord(t *testing.T) {
	table := species.MustDefault()

	tests := []struct {
		name        string
		input       Input
		expectError bool
		check       func(error) bool
	}{
		{
			name:  "minimal valid specimen",
			input: Input{SpecimenID: "S-1", Species: "lucilia_sericata", Stage: "3rd_instar"},
		},
		{
			name:  "species is normalised",
			input: Input{SpecimenID: "S-2", Species: "  Lucilia_Sericata ", Stage: "pupa", LengthMM: floatPtr(10)},
		},
		{
			name:        "missing species",
			input:       Input{Stage: "pupa"},
			expectError: true,
			check:       core.IsInputValidationError,
		},
		{
			name:        "unknown species",
			input:       Input{Species: "musca_domestica", Stage: "pupa"},
			expectError: true,
			check:       func(err error) bool { return assert.ErrorIs(t, err, core.ErrUnknownSpecies) },
		},
		{
			name:        "unknown stage",
			input:       Input{Species: "lucilia_sericata", Stage: "egg"},
			expectError: true,
			check:       func(err error) bool { return assert.ErrorIs(t, err, core.ErrUnknownStage) },
		},
		{
			name:        "negative length",
			input:       Input{Species: "lucilia_sericata", Stage: "pupa", LengthMM: floatPtr(-1)},
			expectError: true,
			check:       func(err error) bool { return assert.ErrorIs(t, err, core.ErrLengthRange) },
		},
		{
			name:        "implausible length",
			input:       Input{Species: "lucilia_sericata", Stage: "pupa", LengthMM: floatPtr(80)},
			expectError: true,
			check:       func(err error) bool { return assert.ErrorIs(t, err, core.ErrLengthRange) },
		},
		{
			name:        "oversized notes",
			input:       Input{Species: "lucilia_sericata", Stage: "pupa", Notes: strings.Repeat("x", 5000)},
			expectError: true,
			check:       core.IsInputValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := New(tt.input, 0, table)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, tt.check(err), "unexpected error kind: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.input.Species)), rec.Species)
			assert.True(t, rec.Stage.Valid())
		})
	}
}

func TestNewRecordDerivesID(t *testing.T) {
	table := species.MustDefault()
	in := Input{Species: "calliphora_vicina", Stage: "pupa"}

	a, err := New(in, 3, table)
	require.NoError(t, err)
	b, err := New(in, 3, table)
	require.NoError(t, err)

	assert.NotEmpty(t, a.SpecimenID)
	assert.Equal(t, a.SpecimenID, b.SpecimenID)
}

func TestNewRecordCopiesLength(t *testing.T) {
	table := species.MustDefault()
	length := 14.0
	rec, err := New(Input{Species: "lucilia_sericata", Stage: "3rd_instar", LengthMM: &length}, 0, table)
	require.NoError(t, err)

	length = 99
	assert.True(t, rec.HasLength())
	assert.Equal(t, 14.0, rec.Length())
}

func TestBatchTemperatureFor(t *testing.T) {
	b := Batch{
		AmbientC: floatPtr(22),
		Specimens: []Input{
			{Species: "lucilia_sericata", Stage: "pupa"},
			{Species: "lucilia_sericata", Stage: "pupa", AmbientC: floatPtr(18)},
		},
	}
	fallback := Manual(10)

	assert.Equal(t, 22.0, b.TemperatureFor(0, fallback).AmbientC)
	assert.Equal(t, 18.0, b.TemperatureFor(1, fallback).AmbientC)

	b.AmbientC = nil
	assert.Equal(t, fallback, b.TemperatureFor(0, fallback))
}

func TestBatchFingerprint(t *testing.T) {
	a := Batch{Specimens: []Input{{Species: "a", Stage: "pupa"}, {Species: "b", Stage: "pupa"}}}
	b := Batch{Specimens: []Input{{Species: "b", Stage: "pupa"}, {Species: "a", Stage: "pupa"}}}
	assert.Equal(t, a.Fingerprint(), a.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
