// Package sosm implements the three-level hierarchical admission broker
// (vRM / pSwitch / pRouter) described in spec §4.5-§4.7, and registers
// itself with sim.RegisterBroker under the name "SOSM". Grounded on
// vrm.py, sosm_broker.py, pswitch.py, and prouter.py.
package sosm

import (
	"math"
	"math/rand"
)

// spmsa indices, matching the glossary's 8-tuple layout.
const (
	idxAvailProc = 0
	idxTotalProc = 1
	idxAvailMem  = 2
	idxTotalMem  = 3
	idxAvailSto  = 4
	idxTotalSto  = 5
	idxAvailAcc  = 6
	idxTotalAcc  = 7
)

// assessment holds the s_pmsa aggregate, suitability index, and the
// normalization constants shared by every level of the hierarchy (spec
// §3 "Broker assessment state").
type assessment struct {
	spmsa [8]float64
	fs    []float64
	ws    []float64
	si    float64

	c  float64
	p  float64
	pi float64

	numResources int
	optNumRes    int

	rng *rand.Rand
}

func newAssessment(numFunctions int, weights []float64, c, p, pi float64, optNumRes int, rng *rand.Rand) assessment {
	return assessment{
		fs:        make([]float64, numFunctions),
		ws:        append([]float64(nil), weights...),
		c:         c,
		p:         p,
		pi:        pi,
		optNumRes: optNumRes,
		rng:       rng,
	}
}

// U, T return the accelerator-aware aggregate pair used throughout
// assessment: when the node has accelerators, headroom is judged on
// accelerator availability, otherwise on processor availability (spec
// §4.5: "U = s_pmsa[6] if total_accelerators > 0 else s_pmsa[0]").
func (a *assessment) uAndT() (u, t float64) {
	if a.spmsa[idxTotalAcc] > 0 {
		return a.spmsa[idxAvailAcc], a.spmsa[idxTotalAcc]
	}
	return a.spmsa[idxAvailProc], a.spmsa[idxTotalProc]
}

// assessFunc evaluates assessment function `choice` (spec §4.5 f0..f4).
func (a *assessment) assessFunc(choice int) float64 {
	u, t := a.uAndT()
	if t <= 0 {
		return 0
	}
	switch choice {
	case 0:
		return a.c * u / t
	case 1:
		if a.spmsa[idxTotalMem] <= 0 {
			return 0
		}
		return a.spmsa[idxAvailMem] / a.spmsa[idxTotalMem]
	case 2:
		denom := a.pi*u + a.p*(t-u)
		if denom <= 0 {
			return 0
		}
		return (a.pi * u) / denom
	case 3:
		return 1.0 - 0.2*(t-u)/t
	case 4:
		if a.optNumRes <= 0 {
			return 0
		}
		return 2.0 / (1.0 + math.Exp(6.0*(float64(a.numResources)/float64(a.optNumRes)-1.0)))
	default:
		return 0
	}
}

// deassessmentDelta is the analytic O(1) delta applied to si on a
// placement (spec §4.5), dnu and dnm carrying the signed (negative on
// deploy, positive on unload) changes to U and total memory headroom.
func (a *assessment) deassessmentDelta(dnu, dnm float64, choice int) float64 {
	_, t := a.uAndT()
	u, _ := a.uAndT()
	switch choice {
	case 0:
		if t <= 0 {
			return 0
		}
		return dnu * a.c / t
	case 1:
		if a.spmsa[idxTotalMem] <= 0 {
			return 0
		}
		return dnm / a.spmsa[idxTotalMem]
	case 2:
		denom := a.p*(t-u) + a.pi*u
		if denom == 0 {
			return 0
		}
		return (dnu * a.pi * a.p * t) / (denom * denom)
	case 3:
		if t <= 0 {
			return 0
		}
		return 0.2 * dnu / t
	default:
		return 0
	}
}

// computeFS recomputes every assessment function from the current spmsa.
func (a *assessment) computeFS() {
	for i := range a.fs {
		a.fs[i] = a.assessFunc(i)
	}
}

// computeSI recomputes si from scratch plus a fresh epsilon tie-break
// (spec §4.5, §9: "seed a single PRNG per broker instance at init").
func (a *assessment) computeSI() {
	a.si = 1e-4 * a.rng.Float64()
	for i, w := range a.ws {
		a.si += w * a.fs[i]
	}
}

// applyDeassessment adds the weighted sum of the first 4 deassessment
// functions to si, the O(1) update used on every deploy/unload (spec
// §4.5's closing paragraph).
func (a *assessment) applyDeassessment(dnu, dnm float64) {
	sum := 0.0
	for i := 0; i < 4 && i < len(a.ws); i++ {
		sum += a.ws[i] * a.deassessmentDelta(dnu, dnm, i)
	}
	a.si += sum
}
