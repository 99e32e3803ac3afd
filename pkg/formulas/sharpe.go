package formulas

import "math"

// CalculateSharpe computes the annualized Sharpe ratio from daily
// returns (decimal units) against an annual risk-free rate.
//
//	Sharpe = (mean(returns)*252 - riskFree) / (stdev(returns)*sqrt(252))
//
// Returns nil with fewer than MinObservations returns. A zero-volatility
// window yields exactly 0, not nil: the window is long enough to judge,
// and a flat series has no excess-return signal either way.
func CalculateSharpe(returns []float64, riskFreeRate float64) *float64 {
	if len(returns) < MinObservations {
		return nil
	}

	meanAnnual := Mean(returns) * TradingDaysPerYear
	stdAnnual := StdDev(returns) * math.Sqrt(TradingDaysPerYear)

	if stdAnnual == 0 {
		return ptr(0)
	}

	return ptr(Round4((meanAnnual - riskFreeRate) / stdAnnual))
}

// CalculateSortino computes the annualized Sortino ratio: the Sharpe
// numerator over the annualized stdev of negative daily returns only.
// Requires MinObservations returns and MinDownsideObservations negative
// ones; otherwise the downside estimate is too noisy and nil is returned.
func CalculateSortino(returns []float64, riskFreeRate float64) *float64 {
	if len(returns) < MinObservations {
		return nil
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if len(downside) < MinDownsideObservations {
		return nil
	}

	downsideStd := StdDev(downside) * math.Sqrt(TradingDaysPerYear)
	if downsideStd == 0 {
		return nil
	}

	meanAnnual := Mean(returns) * TradingDaysPerYear
	return ptr(Round4((meanAnnual - riskFreeRate) / downsideStd))
}

// CalculateCalmar is annualized return over absolute max drawdown, both
// over the same window. Nil when the drawdown is zero or positive (no
// decline to normalize by) or when either input is unavailable.
func CalculateCalmar(navs []float64) *float64 {
	if len(navs) < TradingDaysPerYear {
		return nil
	}

	annualReturn := AnnualizedReturn(navs)
	maxDD := CalculateMaxDrawdown(navs)

	if annualReturn == nil || maxDD == nil || *maxDD >= 0 {
		return nil
	}

	return ptr(Round4(*annualReturn / math.Abs(*maxDD)))
}
