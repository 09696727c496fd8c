// Package improved implements Improved SOSM (spec §4.8): the same
// three-level hierarchy as sim/sosm, but with a single accelerator-aware
// assessment function and sibling-vRM resource migration at the pSwitch
// level when a task's preferred vRM lacks headroom. Registers itself
// under "Improved SOSM". Grounded on improved_vrm.py, improved_pswitch.py,
// improved_prouter.py, improved_sosm_broker.py.
package improved

import "math/rand"

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

// assessment is the shared accelerator-aware si/deassessment state for
// every level of the Improved hierarchy. Unlike sim/sosm's four weighted
// assessment functions, Improved SOSM folds processor and accelerator
// power cost into one closed form (spec §4.8, improved_vrm.py:assess_funcs).
type assessment struct {
	spmsa [8]float64
	si    float64

	c, p, pi          float64
	cAcc, pAcc, piAcc float64
	w0                float64

	rng *rand.Rand
}

func newAssessment(c, cAcc, p, pAcc, pi, piAcc float64, weights []float64, rng *rand.Rand) assessment {
	w0 := 0.0
	if len(weights) > 0 {
		w0 = weights[0]
	}
	return assessment{c: c, cAcc: cAcc, p: p, pAcc: pAcc, pi: pi, piAcc: piAcc, w0: w0, rng: rng}
}

// assessFunc computes f0 from the current spmsa (improved_vrm.py:assess_funcs).
func (a *assessment) assessFunc() float64 {
	totProc, availProc := a.spmsa[idxTotalProc], a.spmsa[idxAvailProc]
	totAcc, availAcc := a.spmsa[idxTotalAcc], a.spmsa[idxAvailAcc]
	numerator := a.c*totProc + a.cAcc*totAcc
	denominator := a.pi*totProc + (a.p-a.pi)*(totProc-availProc) + a.piAcc*availAcc + a.pAcc*(totAcc-availAcc)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// computeSI recomputes si from the current spmsa plus a fresh epsilon
// tie-break (improved_vrm.py:compute_si).
func (a *assessment) computeSI() {
	a.si = 1e-4*a.rng.Float64() + a.w0*a.assessFunc()
}

// deassessDelta is the O(1) analytic delta applied to si on placement
// (improved_vrm.py:deassessment_functions), evaluated against an
// arbitrary (totProc, availProc, totAcc, availAcc) quadruple so callers
// can apply it either to their own spmsa or to a specific child's.
func deassessDelta(c, cAcc, p, pAcc, pi, piAcc, dNu, dAcc, totProc, availProc, totAcc, availAcc float64) float64 {
	ln := pi*totProc + (p-pi)*(totProc-availProc) + piAcc*availAcc + pAcc*(totAcc-availAcc)
	if ln == 0 {
		return 0
	}
	kn := c*totProc + cAcc*totAcc
	return (kn * (dNu*(p-pi) + dAcc*pAcc)) / (ln * ln)
}

func (a *assessment) deassess(dNu, dAcc float64) float64 {
	return deassessDelta(a.c, a.cAcc, a.p, a.pAcc, a.pi, a.piAcc, dNu, dAcc,
		a.spmsa[idxTotalProc], a.spmsa[idxAvailProc], a.spmsa[idxTotalAcc], a.spmsa[idxAvailAcc])
}

func (a *assessment) applyDeassess(dNu, dAcc float64) {
	a.si += a.w0 * a.deassess(dNu, dAcc)
}
