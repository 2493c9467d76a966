package comparator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
	"pmiengine/domain/specimen"
	"pmiengine/internal/quality"
	"pmiengine/internal/workers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAgreementFor(t *testing.T) {
	tests := []struct {
		cv   float64
		want AgreementLevel
	}{
		{0, AgreementExcellent},
		{9.99, AgreementExcellent},
		{10, AgreementGood},
		{19.9, AgreementGood},
		{20, AgreementModerate},
		{34.9, AgreementModerate},
		{35, AgreementPoor},
		{120, AgreementPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AgreementFor(tt.cv), "cv %v", tt.cv)
	}
}

func TestEveryMethodHasFactors(t *testing.T) {
	for _, m := range pmi.AllMethods() {
		assert.Positive(t, BandFactor(m), m.String())
		assert.Positive(t, Reliability(m), m.String())
	}
	assert.Zero(t, BandFactor(pmi.MethodCount))
	assert.Zero(t, Reliability(pmi.Method(-1)))
}

func TestCompareSericataThirdInstar(t *testing.T) {
	c := New(species.MustDefault(), nil, workers.NewPool(3))
	rec := specimen.Record{SpecimenID: "S1", Species: "lucilia_sericata", Stage: species.ThirdInstar}

	res, err := c.Compare(context.Background(), rec, specimen.Manual(20))
	require.NoError(t, err)

	require.Len(t, res.Estimates, int(pmi.MethodCount))
	want := []float64{6.5, 4.0, 9.0, 6.5, 6.5, 6.5, 0.39 / 0.064}
	var weightSum float64
	for i, e := range res.Estimates {
		assert.Equal(t, pmi.Method(i), e.Method)
		assert.InDelta(t, want[i], e.Days(), 1e-9, e.Method.String())
		assert.LessOrEqual(t, e.LowDays(), e.Days())
		assert.GreaterOrEqual(t, e.HighDays(), e.Days())
		weightSum += e.Weight
	}
	assert.InDelta(t, 1, weightSum, 1e-12)
	assert.Greater(t, res.Estimates[pmi.ADDOptimistic].Weight, res.Estimates[pmi.ADDConservative].Weight)

	assert.Equal(t, core.SpecimenID("S1"), res.SpecimenID)
	assert.InDelta(t, 6.441964, res.MeanDays, 1e-6)
	assert.InDelta(t, 1.343846, res.StdDevDays, 1e-6)
	assert.InDelta(t, 20.860817, res.CVPercent, 1e-6)
	assert.InDelta(t, 5.0, res.RangeDays, 1e-9)
	assert.Equal(t, AgreementModerate, res.Agreement)
	assert.Empty(t, res.OutlierMethods)
	assert.InDelta(t, 6.249827, res.WeightedDays, 1e-6)
	assert.InDelta(t, 4.952825, res.WeightedLowDays, 1e-6)
}

func TestCompareScoresEveryMethod(t *testing.T) {
	c := New(species.MustDefault(), nil, nil)
	rec := specimen.Record{SpecimenID: "S1", Species: "lucilia_sericata", Stage: species.ThirdInstar}

	res, err := c.Compare(context.Background(), rec, specimen.Manual(20))
	require.NoError(t, err)

	for _, e := range res.Estimates {
		assert.GreaterOrEqual(t, e.QualityScore, 0.0, e.Method.String())
		assert.LessOrEqual(t, e.QualityScore, 100.0, e.Method.String())
		assert.Equal(t, pmi.LabelFor(e.QualityScore), e.Quality, e.Method.String())
		assert.Equal(t, pmi.IntervalFixedBand, e.IntervalSource)
		assert.InDelta(t, 12.0, e.EffectiveTempC, 1e-9)
		assert.Equal(t, Reliability(e.Method), e.Reliability)
	}
	// only the length model pays for the missing measurement
	assert.Equal(t, 100.0, res.Estimates[pmi.ADDStandard].QualityScore)
	assert.Equal(t, 95.0, res.Estimates[pmi.IsomegalenMethod].QualityScore)
	assert.Equal(t, pmi.QualityExcellent, res.Estimates[pmi.IsomegalenMethod].Quality)
	assert.Len(t, res.Estimates[pmi.IsomegalenMethod].Warnings, 1)
	assert.Empty(t, res.Estimates[pmi.ADDStandard].Warnings)
}

func TestCompareDisagreementPenalisesEveryMethod(t *testing.T) {
	c := New(species.MustDefault(), quality.NewScorer(quality.Config{CVThreshold: 5}), nil)
	rec := specimen.Record{SpecimenID: "S1", Species: "lucilia_sericata", Stage: species.ThirdInstar}

	res, err := c.Compare(context.Background(), rec, specimen.Manual(20))
	require.NoError(t, err)
	assert.Equal(t, 90.0, res.Estimates[pmi.ADDStandard].QualityScore)
	assert.Equal(t, 85.0, res.Estimates[pmi.IsomegalenMethod].QualityScore)
}

func TestCompareReliabilityAndRecommendations(t *testing.T) {
	c := New(species.MustDefault(), nil, nil)
	rec := specimen.Record{SpecimenID: "S1", Species: "lucilia_sericata", Stage: species.ThirdInstar}

	res, err := c.Compare(context.Background(), rec, specimen.Manual(20))
	require.NoError(t, err)

	want := Assessment{
		Overall:                (550.0/7 + 94 + 20) / 3,
		AverageMethod:          550.0 / 7,
		TemperatureSuitability: 94,
		MethodDiversity:        20,
		MethodCount:            7,
	}
	assert.InDelta(t, want.Overall, res.Reliability.Overall, 1e-9)
	assert.InDelta(t, want.AverageMethod, res.Reliability.AverageMethod, 1e-9)
	assert.InDelta(t, want.TemperatureSuitability, res.Reliability.TemperatureSuitability, 1e-9)
	assert.Equal(t, want.MethodDiversity, res.Reliability.MethodDiversity)
	assert.Equal(t, want.MethodCount, res.Reliability.MethodCount)

	assert.Equal(t, []string{
		"Prioritize add_standard method (reliability: 100/100)",
		"Large PMI range (5.0 days) indicates significant uncertainty",
	}, res.Recommendations)
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name string
		res  MultiMethodResult
		want []string
	}{
		{
			name: "poor agreement at a cold scene",
			res: MultiMethodResult{CVPercent: 40, Agreement: AgreementPoor, MeanDays: 10, RangeDays: 2,
				Reliability: Assessment{Overall: 50, TemperatureSuitability: 40}},
			want: []string{
				"Poor method agreement (CV: 40.0%) - interpret results with caution",
				"Consider environmental factors that may affect different methods differently",
				"Low overall reliability - collect additional data if possible",
				"Temperature conditions are suboptimal for accurate PMI estimation",
			},
		},
		{
			name: "excellent agreement",
			res: MultiMethodResult{CVPercent: 4, Agreement: AgreementExcellent, MeanDays: 10, RangeDays: 1,
				Reliability: Assessment{Overall: 90, TemperatureSuitability: 100}},
			want: []string{"Excellent method agreement (CV: 4.0%) - high confidence in results"},
		},
		{
			name: "nothing to say",
			res: MultiMethodResult{CVPercent: 15, Agreement: AgreementGood, MeanDays: 10, RangeDays: 5,
				Reliability: Assessment{Overall: 80, TemperatureSuitability: 90}},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recommend(tt.res))
		})
	}
}

func TestCompareIndependentOfPoolWidth(t *testing.T) {
	rec := specimen.Record{SpecimenID: "S2", Species: "chrysomya_rufifacies", Stage: species.Pupa}

	a, err := New(species.MustDefault(), nil, nil).Compare(context.Background(), rec, specimen.Manual(28))
	require.NoError(t, err)
	b, err := New(species.MustDefault(), nil, workers.NewPool(7)).Compare(context.Background(), rec, specimen.Manual(28))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompareRejectsInvalidInput(t *testing.T) {
	c := New(species.MustDefault(), nil, nil)

	_, err := c.Compare(context.Background(), specimen.Record{Species: "nope", Stage: species.Pupa}, specimen.Manual(20))
	assert.True(t, core.IsInputValidationError(err))

	_, err = c.Compare(context.Background(), specimen.Record{Species: "lucilia_sericata", Stage: species.Pupa}, specimen.Manual(7))
	assert.True(t, core.IsNonViableTemperatureError(err))
}

func TestOutliers(t *testing.T) {
	assert.Equal(t, []int{3}, outliers([]float64{1, 1.1, 0.9, 5}, 1.05, 1.0))
	assert.Empty(t, outliers([]float64{1, 2, 3}, 2, 1))
}

func TestEvidence(t *testing.T) {
	res := MultiMethodResult{
		CVPercent:      12,
		OutlierMethods: []pmi.Method{pmi.DevelopmentRate},
		Estimates: []MethodEstimate{
			{Estimate: pmi.Estimate{Method: pmi.ADDStandard}},
			{Estimate: pmi.Estimate{Method: pmi.IsomegalenMethod}},
		},
	}
	ev := res.Evidence()
	assert.Equal(t, 12.0, ev.CVPercent)
	assert.Equal(t, []string{"development_rate"}, ev.OutlierMethods)
	assert.Equal(t, []float64{1.0, 0.6}, ev.Reliabilities)
}
