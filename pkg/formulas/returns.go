package formulas

import "math"

// PeriodReturn is the simple return over a NAV window, in percent.
// Formula: (nav[last]/nav[first] - 1) * 100
func PeriodReturn(navs []float64) *float64 {
	if len(navs) < 2 {
		return nil
	}

	start := navs[0]
	end := navs[len(navs)-1]
	if start <= 0 {
		return nil
	}

	return ptr(Round4((end/start - 1) * 100))
}

// AnnualizedReturn compounds the window's total return to a yearly
// rate, in percent. N observations are treated as N/252 years.
// Formula: ((1+total)^(252/N) - 1) * 100
func AnnualizedReturn(navs []float64) *float64 {
	if len(navs) < MinObservations {
		return nil
	}

	start := navs[0]
	end := navs[len(navs)-1]
	if start <= 0 {
		return nil
	}

	total := end/start - 1
	years := float64(len(navs)) / TradingDaysPerYear
	annual := math.Pow(1+total, 1/years) - 1

	return ptr(Round4(annual * 100))
}

// AnnualizedVolatility is stdev of daily returns scaled by sqrt(252),
// in percent. Needs a minimally meaningful window.
func AnnualizedVolatility(dailyReturns []float64) *float64 {
	if len(dailyReturns) < 30 {
		return nil
	}

	vol := StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
	return ptr(Round4(vol * 100))
}
