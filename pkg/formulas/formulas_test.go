package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReturns(t *testing.T) {
	tests := []struct {
		name  string
		navs  []float64
		want  []float64
		delta float64
	}{
		{
			name:  "simple series",
			navs:  []float64{1.00, 1.05, 0.95, 1.10},
			want:  []float64{0.05, -0.095238, 0.157895},
			delta: 1e-5,
		},
		{
			name: "too short",
			navs: []float64{1.0},
			want: []float64{},
		},
		{
			name:  "flat series",
			navs:  []float64{2.0, 2.0, 2.0},
			want:  []float64{0, 0},
			delta: 1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateReturns(tt.navs)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], tt.delta)
			}
		})
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	t.Run("monotonic non-decreasing series has zero drawdown", func(t *testing.T) {
		navs := []float64{1.0, 1.0, 1.1, 1.2, 1.2, 1.5}
		dd := CalculateMaxDrawdown(navs)
		require.NotNil(t, dd)
		assert.Equal(t, 0.0, *dd)
	})

	t.Run("known series", func(t *testing.T) {
		// Peak 1.05, trough 0.95: (0.95-1.05)/1.05 = -9.5238%
		navs := []float64{1.00, 1.05, 0.95, 1.10}
		dd := CalculateMaxDrawdown(navs)
		require.NotNil(t, dd)
		assert.InDelta(t, -9.5238, *dd, 1e-4)
	})

	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, CalculateMaxDrawdown([]float64{1.0}))
	})

	t.Run("always non-positive", func(t *testing.T) {
		navs := []float64{1.0, 0.5, 2.0, 0.1, 3.0}
		dd := CalculateMaxDrawdown(navs)
		require.NotNil(t, dd)
		assert.LessOrEqual(t, *dd, 0.0)
	})
}

func TestCalculateSharpe(t *testing.T) {
	riskFree := 0.025

	t.Run("nil below minimum observations", func(t *testing.T) {
		returns := make([]float64, MinObservations-1)
		assert.Nil(t, CalculateSharpe(returns, riskFree))
	})

	t.Run("zero volatility yields exactly zero", func(t *testing.T) {
		returns := make([]float64, MinObservations) // all zero, stdev 0
		sharpe := CalculateSharpe(returns, riskFree)
		require.NotNil(t, sharpe)
		assert.Equal(t, 0.0, *sharpe)
	})

	t.Run("positive excess return gives positive sharpe", func(t *testing.T) {
		returns := make([]float64, 252)
		for i := range returns {
			returns[i] = 0.001
			if i%2 == 0 {
				returns[i] = 0.002
			}
		}
		sharpe := CalculateSharpe(returns, riskFree)
		require.NotNil(t, sharpe)
		assert.Greater(t, *sharpe, 0.0)
	})
}

func TestCalculateSortino(t *testing.T) {
	riskFree := 0.025

	t.Run("nil with too few negative observations", func(t *testing.T) {
		returns := make([]float64, 100)
		for i := range returns {
			returns[i] = 0.001
		}
		// Fewer than MinDownsideObservations negatives
		returns[0] = -0.01
		returns[1] = -0.02
		assert.Nil(t, CalculateSortino(returns, riskFree))
	})

	t.Run("defined with enough downside", func(t *testing.T) {
		returns := make([]float64, 120)
		for i := range returns {
			if i%3 == 0 {
				// Varying losses keep the downside deviation nonzero.
				returns[i] = -0.003 - 0.001*float64(i%4)
			} else {
				returns[i] = 0.004
			}
		}
		sortino := CalculateSortino(returns, riskFree)
		require.NotNil(t, sortino)
	})

	t.Run("nil when every loss is identical", func(t *testing.T) {
		returns := make([]float64, 120)
		for i := range returns {
			if i%3 == 0 {
				returns[i] = -0.005
			} else {
				returns[i] = 0.004
			}
		}
		// Zero downside deviation makes the ratio undefined.
		assert.Nil(t, CalculateSortino(returns, riskFree))
	})
}

func TestCalculateCalmar(t *testing.T) {
	t.Run("nil below one year of observations", func(t *testing.T) {
		navs := make([]float64, 100)
		for i := range navs {
			navs[i] = 1.0
		}
		assert.Nil(t, CalculateCalmar(navs))
	})

	t.Run("nil when drawdown is zero", func(t *testing.T) {
		navs := make([]float64, 300)
		for i := range navs {
			navs[i] = 1.0 + float64(i)*0.001 // monotonic, no drawdown
		}
		assert.Nil(t, CalculateCalmar(navs))
	})

	t.Run("positive for rising series with a dip", func(t *testing.T) {
		navs := make([]float64, 300)
		for i := range navs {
			navs[i] = 1.0 + float64(i)*0.002
		}
		navs[150] = navs[149] * 0.9 // one sharp dip
		calmar := CalculateCalmar(navs)
		require.NotNil(t, calmar)
		assert.Greater(t, *calmar, 0.0)
	})
}

func TestAnnualizedReturn(t *testing.T) {
	t.Run("nil below minimum observations", func(t *testing.T) {
		assert.Nil(t, AnnualizedReturn([]float64{1.0, 1.1}))
	})

	t.Run("252 observations annualize to the total return", func(t *testing.T) {
		navs := make([]float64, 252)
		for i := range navs {
			navs[i] = 1.0 + float64(i)*(0.10/251)
		}
		ret := AnnualizedReturn(navs)
		require.NotNil(t, ret)
		assert.InDelta(t, 10.0, *ret, 0.1)
	})
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 1.2346, Round4(1.23456))
	assert.Equal(t, -9.5238, Round4(-9.52381))
	assert.Nil(t, Round4Ptr(nil))
}
