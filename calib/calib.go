// Copyright © 2024 Fluorologger Authors

// Package calib converts raw fluorometer voltages to rhodamine
// concentration using a linear calibration determined offline against
// reference solutions. The live pipeline persists raw voltage only;
// calibration is applied at the display layer.
package calib

import (
	"errors"
	"math"
)

type Calibration struct {
	Slope     float64
	Intercept float64
}

// Valid reports whether a usable calibration has been configured.
func (c Calibration) Valid() bool {
	return c.Slope != 0
}

// Concentration converts an averaged voltage to concentration (ppb).
func (c Calibration) Concentration(volts float64) float64 {
	return c.Slope*volts + c.Intercept
}

// Fit computes the least-squares line mapping measured voltage to known
// concentration. It returns the calibration and the coefficient of
// determination r².
func Fit(concentration, volts []float64) (Calibration, float64, error) {
	if len(concentration) != len(volts) {
		return Calibration{}, 0, errors.New("calib: mismatched pair counts")
	}
	if len(volts) < 2 {
		return Calibration{}, 0, errors.New("calib: need at least two calibration pairs")
	}

	n := float64(len(volts))
	var sumX, sumY float64
	for i := range volts {
		sumX += volts[i]
		sumY += concentration[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy, syy float64
	for i := range volts {
		dx := volts[i] - meanX
		dy := concentration[i] - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return Calibration{}, 0, errors.New("calib: all voltages identical")
	}

	cal := Calibration{
		Slope: sxy / sxx,
	}
	cal.Intercept = meanY - cal.Slope*meanX

	r2 := 1.0
	if syy != 0 {
		var ssRes float64
		for i := range volts {
			r := concentration[i] - cal.Concentration(volts[i])
			ssRes += r * r
		}
		r2 = 1 - ssRes/syy
	}
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}
	return cal, r2, nil
}
