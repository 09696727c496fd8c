package sim

import "math"

// PowerModel is a tagged closed enumeration over the CPU power model
// types (spec §4.4): negative values are closed-form polynomials over
// [cpu_pmin, cpu_pmax]; positive values are piecewise/spline/bin-lookup
// interpolators over an explicit (bins, values) curve. Accelerator power
// is always the single linear model.
type PowerModel struct {
	CPUModelType int

	CPUPMin float64
	CPUPMax float64
	CPUC    float64 // sleep power

	NumPoints int
	CPUBins   []float64
	CPUP      []float64

	HasAccelerator bool
	AccPMin        float64
	AccPMax        float64
	AccC           float64 // sleep power

	// Natural cubic spline coefficients, precomputed at construction when
	// CPUModelType == 2 (grounded on power.py:_compute_cubic_spline).
	splineA []float64
	splineB []float64
	splineC []float64
	splineD []float64
}

// NewPowerModel constructs a PowerModel, precomputing cubic spline
// coefficients up front if CPUModelType == 2, so Consumption never
// allocates or solves a tridiagonal system on the hot path.
func NewPowerModel(cfg PowerModel) (*PowerModel, error) {
	p := cfg
	if p.CPUModelType > 0 {
		if p.NumPoints < 2 || len(p.CPUBins) != p.NumPoints || len(p.CPUP) != p.NumPoints {
			return nil, &InputError{Field: "power_model", Msg: "bins/values length must equal num_of_points >= 2"}
		}
		if p.CPUModelType == 2 {
			p.computeCubicSpline()
		}
	}
	return &p, nil
}

// computeCubicSpline solves the natural-boundary tridiagonal system for
// second-derivative coefficients, following power.py:_compute_cubic_spline
// line for line: the boundary rows encode a not-a-knot-like extrapolation
// of the second derivative rather than the textbook S''=0 condition.
func (p *PowerModel) computeCubicSpline() {
	n := p.NumPoints
	p.splineA = make([]float64, n-1)
	p.splineB = make([]float64, n-1)
	p.splineC = make([]float64, n)
	p.splineD = make([]float64, n-1)

	copy(p.splineA, p.CPUP[:n-1])

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = p.CPUBins[i+1] - p.CPUBins[i]
	}

	s := make([]float64, n)
	for i := 1; i < n-1; i++ {
		s[i] = 3.0*(p.CPUP[i+1]-p.CPUP[i])/h[i] - 3.0*(p.CPUP[i]-p.CPUP[i-1])/h[i-1]
	}
	s[0] = -h[0] * s[1]
	s[n-1] = -h[n-2] * s[n-2]

	tb := make([]float64, n)
	tb[0] = h[1]*h[1] - h[0]*h[0]
	for i := 1; i < n-1; i++ {
		tb[i] = 2.0 * (h[i-1] + h[i])
	}
	tb[n-1] = h[n-3]*h[n-3] - h[n-2]*h[n-2]

	tc := make([]float64, n)
	tc[0] = -2.0*h[0]*h[0] - 3.0*h[0]*h[1] - h[1]*h[1]
	for i := 1; i < n-1; i++ {
		tc[i] = h[i]
	}

	ta := make([]float64, n)
	for i := 1; i < n-1; i++ {
		ta[i] = h[i-1]
	}
	ta[n-1] = -2.0*h[n-2]*h[n-2] - 3.0*h[n-3]*h[n-2] - h[n-3]*h[n-3]

	tc[0] = tc[0] / tb[0]
	for i := 1; i < n-1; i++ {
		tc[i] = tc[i] / (tb[i] - ta[i]*tc[i-1])
	}

	s[0] = s[0] / tb[0]
	for i := 1; i < n; i++ {
		s[i] = (s[i] - ta[i]*s[i-1]) / (tb[i] - ta[i]*tc[i-1])
	}

	p.splineC[n-1] = s[n-1]
	for i := n - 2; i >= 0; i-- {
		p.splineC[i] = s[i] - tc[i]*p.splineC[i+1]
	}

	for i := 0; i < n-1; i++ {
		p.splineD[i] = (p.splineC[i+1] - p.splineC[i]) / (3.0 * h[i])
	}

	for i := 0; i < n-1; i++ {
		p.splineB[i] = (p.CPUP[i+1]-p.CPUP[i])/h[i] - p.splineC[i]*h[i] - p.splineD[i]*h[i]*h[i]
	}
}

// modelCPU evaluates instantaneous CPU watts at utilization u.
func (p *PowerModel) modelCPU(u float64) float64 {
	switch p.CPUModelType {
	case -1:
		return p.CPUPMin + (p.CPUPMax-p.CPUPMin)*u
	case -2:
		return p.CPUPMin + (p.CPUPMax-p.CPUPMin)*u*u
	case -3:
		return p.CPUPMin + (p.CPUPMax-p.CPUPMin)*u*u*u
	case -4:
		pmid := p.CPUPMin + (p.CPUPMax-p.CPUPMin)/2
		return cubicBlend(p.CPUPMin, p.CPUPMax, pmid, u)
	case -5:
		pmid := 5.0 * p.CPUPMax / 9.0
		return cubicBlend(p.CPUPMin, p.CPUPMax, pmid, u)
	case 1:
		return p.piecewiseLinear(u)
	case 2:
		return p.cubicSpline(u)
	case 3:
		return p.binLookup(u)
	default:
		return 0
	}
}

// cubicBlend is the shared closed form used by model types -4 and -5:
// a cubic in u anchored at pmin/pmax with a configurable midpoint pmid.
func cubicBlend(pmin, pmax, pmid, u float64) float64 {
	c0 := 4.0/3.0*pmid - pmin/6.0 - pmax/3.0
	c1 := 4.0/3.0*pmid - 2.0*pmin/3.0 - pmax/3.0
	c2 := 2.0*pmax + 2.0*pmin - 4.0*pmid
	c3 := 4.0/3.0*pmid - 7.0/6.0*pmin - pmax/3.0
	t := 2.0*u - 1.0
	return c0 + c1*u + c2*u*u + c3*t*t*t
}

func (p *PowerModel) piecewiseLinear(u float64) float64 {
	n := p.NumPoints
	if u < p.CPUBins[0] {
		return p.CPUP[0] + (p.CPUP[1]-p.CPUP[0])*(u-p.CPUBins[0])/(p.CPUBins[1]-p.CPUBins[0])
	}
	if u > p.CPUBins[n-1] {
		return p.CPUP[n-2] + (p.CPUP[n-1]-p.CPUP[n-2])*(u-p.CPUBins[n-2])/(p.CPUBins[n-1]-p.CPUBins[n-2])
	}
	i := 1
	for idx := 1; idx < n; idx++ {
		if u <= p.CPUBins[idx] {
			i = idx
			break
		}
	}
	return p.CPUP[i-1] + (p.CPUP[i]-p.CPUP[i-1])*(u-p.CPUBins[i-1])/(p.CPUBins[i]-p.CPUBins[i-1])
}

func (p *PowerModel) cubicSpline(u float64) float64 {
	n := p.NumPoints
	if u < p.CPUBins[0] {
		du := u - p.CPUBins[0]
		return p.splineA[0] + p.splineB[0]*du + p.splineC[0]*du*du + p.splineD[0]*du*du*du
	}
	if u > p.CPUBins[n-1] {
		du := u - p.CPUBins[n-2]
		return p.splineA[n-2] + p.splineB[n-2]*du + p.splineC[n-2]*du*du + p.splineD[n-2]*du*du*du
	}
	i := 0
	for idx := 1; idx < n; idx++ {
		if u <= p.CPUBins[idx] {
			i = idx - 1
			break
		}
	}
	du := u - p.CPUBins[i]
	return p.splineA[i] + p.splineB[i]*du + p.splineC[i]*du*du + p.splineD[i]*du*du*du
}

func (p *PowerModel) binLookup(u float64) float64 {
	ii := int(math.Floor(u * 10))
	if ii >= p.NumPoints-1 {
		ii = p.NumPoints - 2
	}
	return p.CPUP[ii] + (p.CPUP[ii+1]-p.CPUP[ii])*(u-0.1*float64(ii))/(0.1*float64(ii+1)-0.1*float64(ii))
}

// modelAcc is the single linear accelerator power model (spec §4.4).
func (p *PowerModel) modelAcc(rho float64, numAcc int) float64 {
	if !p.HasAccelerator {
		return 0
	}
	n := float64(numAcc)
	return p.AccPMin*n + rho*(p.AccPMax-p.AccPMin)*n
}

// Consumption returns energy for one simulation second in GWh, combining
// CPU and accelerator power when active, or sleep power when not. u must
// be finite; a NaN reaching here is an InvariantViolation per spec §7.
func (p *PowerModel) Consumption(u, rho float64, active bool, numAcc int) float64 {
	if math.IsNaN(u) || math.IsNaN(rho) {
		invariantViolation("power model: NaN utilization reached consumption()")
	}
	const wattsToGWhPerSecond = 1.0e-9 / 3600
	if active {
		return (p.modelCPU(u) + p.modelAcc(rho, numAcc)) * wattsToGWhPerSecond
	}
	return (p.CPUC + float64(numAcc)*p.AccC) * wattsToGWhPerSecond
}
