package screener

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrSingular is returned when an ADF regression's design matrix is not
	// of full rank, e.g. for a constant series.
	ErrSingular = errors.New("singular regression")
	// ErrTooShort is returned for series too short to test.
	ErrTooShort = errors.New("series too short")
)

// CriticalValues are the MacKinnon (2010) ADF critical values for a test
// with a constant, adjusted for sample size.
type CriticalValues struct {
	OnePct  float64
	FivePct float64
	TenPct  float64
}

// ADFResult is the outcome of an augmented Dickey-Fuller test.
type ADFResult struct {
	Stat     float64
	PValue   float64
	UsedLag  int
	NObs     int
	Critical CriticalValues
	BestAIC  float64
}

// DefaultMaxLag is the Schwert rule 12*(n/100)^(1/4), rounded up.
func DefaultMaxLag(n int) int {
	return int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
}

// ADF runs an augmented Dickey-Fuller unit-root test with a constant on x:
//
//	Δx_t = c + γ·x_{t-1} + Σ_{j=1..p} φ_j·Δx_{t-j} + ε_t
//
// The lag order p is chosen by minimum AIC over 0..maxLag, with every
// candidate fitted on the common maxLag sample, and the chosen order is then
// refitted on all available observations. The statistic is the t-value of γ.
// maxLag <= 0 selects DefaultMaxLag; it is capped so the regression keeps
// positive degrees of freedom.
func ADF(x []float64, maxLag int) (ADFResult, error) {
	n := len(x)
	if maxLag <= 0 {
		maxLag = DefaultMaxLag(n)
	}
	// One trend term (the constant).
	maxLag = min(maxLag, n/2-2)
	if maxLag < 0 {
		return ADFResult{}, fmt.Errorf("adf: %w: %d observations", ErrTooShort, n)
	}

	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	bestLag, bestAIC := -1, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		y, design := adfDesign(x, dx, maxLag, lag)
		fit, err := ols(y, design)
		if err != nil {
			continue
		}
		if fit.aic < bestAIC {
			bestLag, bestAIC = lag, fit.aic
		}
	}
	if bestLag < 0 {
		return ADFResult{}, fmt.Errorf("adf: %w", ErrSingular)
	}

	y, design := adfDesign(x, dx, bestLag, bestLag)
	fit, err := ols(y, design)
	if err != nil {
		return ADFResult{}, fmt.Errorf("adf: %w", err)
	}
	stat := fit.tvalue(1)
	return ADFResult{
		Stat:     stat,
		PValue:   MacKinnonP(stat),
		UsedLag:  bestLag,
		NObs:     len(y),
		Critical: MacKinnonCrit(len(y)),
		BestAIC:  bestAIC,
	}, nil
}

// adfDesign builds the regression for lag order lag on the sample that
// leaves room for sampleLag lagged differences. Columns are the constant,
// the lagged level, then lag lagged differences.
func adfDesign(x, dx []float64, sampleLag, lag int) ([]float64, *mat.Dense) {
	nobs := len(dx) - sampleLag
	k := 2 + lag
	y := make([]float64, nobs)
	design := mat.NewDense(nobs, k, nil)
	for r := 0; r < nobs; r++ {
		t := r + sampleLag // dx[t] = x[t+1] - x[t]
		y[r] = dx[t]
		design.Set(r, 0, 1)
		design.Set(r, 1, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(r, 1+j, dx[t-j])
		}
	}
	return y, design
}

type olsFit struct {
	coef []float64
	se   []float64
	aic  float64
}

func (f olsFit) tvalue(i int) float64 { return f.coef[i] / f.se[i] }

// ols fits y on design by the normal equations.
func ols(y []float64, design *mat.Dense) (olsFit, error) {
	nobs, k := design.Dims()
	if nobs <= k {
		return olsFit{}, fmt.Errorf("%w: %d observations for %d regressors", ErrSingular, nobs, k)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, design.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return olsFit{}, ErrSingular
	}

	yv := mat.NewVecDense(nobs, y)
	var xty, beta mat.VecDense
	xty.MulVec(design.T(), yv)
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return olsFit{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(design, &beta)
	var ssr float64
	for i := 0; i < nobs; i++ {
		r := y[i] - fitted.AtVec(i)
		ssr += r * r
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return olsFit{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	sigma2 := ssr / float64(nobs-k)
	fit := olsFit{
		coef: make([]float64, k),
		se:   make([]float64, k),
	}
	for i := 0; i < k; i++ {
		fit.coef[i] = beta.AtVec(i)
		fit.se[i] = math.Sqrt(sigma2 * inv.At(i, i))
	}

	// Gaussian log-likelihood at the OLS estimate.
	fn := float64(nobs)
	llf := -fn / 2 * (math.Log(2*math.Pi) + math.Log(ssr/fn) + 1)
	fit.aic = -2*llf + 2*float64(k)
	return fit, nil
}

// MacKinnon (1994) response-surface coefficients for the constant-only
// Dickey-Fuller distribution with one variable.
const (
	tauMax  = 2.74
	tauMin  = -18.83
	tauStar = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
	// MacKinnon (2010) finite-sample critical value surfaces, 1/5/10%.
	tauCrit = [3][4]float64{
		{-3.43035, -6.5393, -16.786, -79.433},
		{-2.86154, -2.8903, -4.234, -40.040},
		{-2.56677, -1.5384, -2.809, 0},
	}
)

// MacKinnonP is the approximate p-value of an ADF statistic for a test with a
// constant.
func MacKinnonP(stat float64) float64 {
	switch {
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}
	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(poly(coef, stat))
}

// MacKinnonCrit returns critical values for a regression with nobs
// observations.
func MacKinnonCrit(nobs int) CriticalValues {
	inv := 1 / float64(nobs)
	return CriticalValues{
		OnePct:  poly(tauCrit[0][:], inv),
		FivePct: poly(tauCrit[1][:], inv),
		TenPct:  poly(tauCrit[2][:], inv),
	}
}

// poly evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func poly(c []float64, x float64) float64 {
	var v float64
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
