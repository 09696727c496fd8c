package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPowerModelLinearClosedForm(t *testing.T) {
	model, err := NewPowerModel(PowerModel{
		CPUModelType: -1,
		CPUPMin:      100,
		CPUPMax:      300,
	})
	require.NoError(t, err)

	got := model.Consumption(0.5, 0, true, 0)
	want := (100 + 0.5*200) * 1e-9 / 3600
	require.InDelta(t, want, got, 1e-15)
}

func TestPowerModelPiecewiseLinearInterpolation(t *testing.T) {
	model, err := NewPowerModel(PowerModel{
		CPUModelType: 1,
		NumPoints:    3,
		CPUBins:      []float64{0, 0.5, 1},
		CPUP:         []float64{100, 150, 300},
	})
	require.NoError(t, err)

	got := model.Consumption(0.25, 0, true, 0)
	want := (125.0) * 1e-9 / 3600
	require.InDelta(t, want, got, 1e-15)
}

func TestPowerModelPiecewiseLinearExtrapolation(t *testing.T) {
	model, err := NewPowerModel(PowerModel{
		CPUModelType: 1,
		NumPoints:    2,
		CPUBins:      []float64{0, 1},
		CPUP:         []float64{100, 300},
	})
	require.NoError(t, err)

	below := model.Consumption(-0.1, 0, true, 0)
	wantBelow := (100 + (300-100)*(-0.1-0)/(1-0)) * 1e-9 / 3600
	require.InDelta(t, wantBelow, below, 1e-15)
}

func TestPowerModelSleepPower(t *testing.T) {
	model, err := NewPowerModel(PowerModel{
		CPUModelType:   -1,
		CPUPMin:        100,
		CPUPMax:        300,
		CPUC:           10,
		HasAccelerator: true,
		AccC:           2,
	})
	require.NoError(t, err)

	got := model.Consumption(0.9, 0.9, false, 3)
	want := (10 + 3*2) * 1e-9 / 3600
	require.InDelta(t, want, got, 1e-15)
}

func TestPowerModelAcceleratorLinear(t *testing.T) {
	model, err := NewPowerModel(PowerModel{
		CPUModelType:   -1,
		CPUPMin:        0,
		CPUPMax:        0,
		HasAccelerator: true,
		AccPMin:        10,
		AccPMax:        50,
	})
	require.NoError(t, err)

	got := model.Consumption(0, 0.5, true, 2)
	want := (2*10 + 0.5*(50-10)*2) * 1e-9 / 3600
	require.InDelta(t, want, got, 1e-15)
}

func TestPowerModelBinLookupRejectsMismatchedLengths(t *testing.T) {
	_, err := NewPowerModel(PowerModel{
		CPUModelType: 3,
		NumPoints:    3,
		CPUBins:      []float64{0, 0.5},
		CPUP:         []float64{1, 2, 3},
	})
	require.Error(t, err)
	require.IsType(t, &InputError{}, err)
}

func TestPowerModelNaNUtilizationPanics(t *testing.T) {
	model, err := NewPowerModel(PowerModel{CPUModelType: -1, CPUPMin: 0, CPUPMax: 100})
	require.NoError(t, err)
	require.Panics(t, func() {
		model.Consumption(nan(), 0, true, 0)
	})
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestPowerModelCubicSplineInterpolatesThroughKnownPoints(t *testing.T) {
	model, err := NewPowerModel(PowerModel{
		CPUModelType: 2,
		NumPoints:    4,
		CPUBins:      []float64{0, 0.33, 0.66, 1.0},
		CPUP:         []float64{80, 140, 210, 300},
	})
	require.NoError(t, err)

	// A natural cubic spline reproduces its own knot values exactly.
	for i, bin := range model.CPUBins {
		got := model.Consumption(bin, 0, true, 0)
		want := model.CPUP[i] * 1e-9 / 3600
		require.InDelta(t, want, got, 1e-9)
	}
}
