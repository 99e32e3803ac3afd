// Package formulas implements the statistical building blocks for the
// metrics engine. All percentage-valued results are in percent units
// (x100) and rounded to 4 decimal places.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// TradingDaysPerYear is the annualization factor for daily series.
	TradingDaysPerYear = 252

	// MinObservations is the floor below which ratio metrics are undefined.
	MinObservations = 60

	// MinDownsideObservations is the floor of negative returns for Sortino.
	MinDownsideObservations = 10
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// CalculateReturns converts a NAV series to simple daily returns.
// Returns[i] = (Nav[i+1] - Nav[i]) / Nav[i], in decimal units.
func CalculateReturns(navs []float64) []float64 {
	if len(navs) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(navs)-1)
	for i := 1; i < len(navs); i++ {
		if navs[i-1] != 0 {
			returns[i-1] = (navs[i] - navs[i-1]) / navs[i-1]
		}
	}

	return returns
}

// Round4 rounds to 4 decimal places, the precision every stored metric uses.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round4Ptr rounds through a pointer, preserving nil.
func Round4Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round4(*v)
	return &r
}

func ptr(v float64) *float64 {
	return &v
}
