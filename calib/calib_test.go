// Copyright © 2024 Fluorologger Authors

package calib

import (
	"math"
	"testing"
	"testing/quick"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitRecoversLine(t *testing.T) {
	volts := []float64{0.1, 0.5, 1.0, 1.5, 2.0}
	conc := make([]float64, len(volts))
	for i, v := range volts {
		conc[i] = 42.0*v + 3.5
	}

	cal, r2, err := Fit(conc, volts)
	if err != nil {
		t.Fatal(err)
	}
	if !floatEquals(cal.Slope, 42.0) {
		t.Error("bad slope", cal.Slope)
	}
	if !floatEquals(cal.Intercept, 3.5) {
		t.Error("bad intercept", cal.Intercept)
	}
	if !floatEquals(r2, 1.0) {
		t.Error("perfect line should have r2 of 1, got", r2)
	}
}

func TestFitNoisy(t *testing.T) {
	volts := []float64{0.0, 1.0, 2.0, 3.0}
	conc := []float64{0.1, 0.9, 2.1, 2.9}

	cal, r2, err := Fit(conc, volts)
	if err != nil {
		t.Fatal(err)
	}
	if cal.Slope < 0.9 || cal.Slope > 1.1 {
		t.Error("slope out of range", cal.Slope)
	}
	if r2 <= 0.9 || r2 > 1.0 {
		t.Error("r2 out of range", r2)
	}
}

func TestFitErrors(t *testing.T) {
	if _, _, err := Fit([]float64{1}, []float64{1}); err == nil {
		t.Error("single pair should fail")
	}
	if _, _, err := Fit([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("mismatched lengths should fail")
	}
	if _, _, err := Fit([]float64{1, 2}, []float64{0.5, 0.5}); err == nil {
		t.Error("degenerate voltages should fail")
	}
}

func TestConcentration(t *testing.T) {
	cal := Calibration{Slope: 2, Intercept: -1}
	if err := quick.Check(func(v float64) bool {
		// Skip inputs whose expected value overflows; Inf-Inf is NaN
		// and would fail the comparison below.
		if math.IsNaN(v) || math.IsInf(2*v, 0) {
			return true
		}
		return floatEquals(cal.Concentration(v), 2*v-1)
	}, nil); err != nil {
		t.Error(err)
	}
}

func TestValid(t *testing.T) {
	if (Calibration{}).Valid() {
		t.Error("zero calibration should not be valid")
	}
	if !(Calibration{Slope: 1}).Valid() {
		t.Error("calibration with slope should be valid")
	}
}
