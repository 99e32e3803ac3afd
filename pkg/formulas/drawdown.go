package formulas

// CalculateMaxDrawdown is the largest peak-to-trough decline of a NAV
// series, as a percentage that is always <= 0.
//
//	drawdown[t] = (nav[t] - runningMax(nav[0..t])) / runningMax(nav[0..t])
//	max drawdown = min over t, * 100
//
// A monotonically non-decreasing series returns exactly 0.
func CalculateMaxDrawdown(navs []float64) *float64 {
	if len(navs) < 2 {
		return nil
	}

	maxDD := 0.0
	peak := navs[0]

	for _, nav := range navs {
		if nav > peak {
			peak = nav
		}
		if peak > 0 {
			dd := (nav - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}

	return ptr(Round4(maxDD * 100))
}
