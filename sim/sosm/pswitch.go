package sosm

import (
	"math/rand"

	"github.com/cloudlightning/cellsim/sim"
)

// PSwitch is the mid-level scheduler of spec §4.6: it aggregates a
// fixed band of vRM children, polls their spmsa/si at its own interval,
// and deploys onto whichever child has the highest si with sufficient
// per-child availability. The base SOSM pSwitch never migrates
// resources between children; that is Improved SOSM's job (sim/improved).
// Grounded structurally on prouter.py (the one sibling-level file of
// this shape that the retrieval pack kept), one level down.
type PSwitch struct {
	vrms         []*VRM
	pollInterval float64
	numFunctions int
	ws           []float64
	fs           []float64
	si           float64
	c, p, pi     float64

	availProc, totalProc []float64
	availMem, totalMem   []float64
	availSto, totalSto   []float64
	availAcc, totalAcc   []float64
	sis                  []float64

	spmsa [8]float64
	rng   *rand.Rand
}

// NewPSwitch builds a pSwitch over vrms[start:end].
func NewPSwitch(vrms []*VRM, start, end int, pollInterval float64, c, p, pi float64, numFunctions int, weights []float64, rng *rand.Rand) *PSwitch {
	n := end - start
	ps := &PSwitch{
		vrms:         append([]*VRM(nil), vrms[start:end]...),
		pollInterval: pollInterval,
		numFunctions: numFunctions,
		ws:           append([]float64(nil), weights...),
		fs:           make([]float64, numFunctions),
		c:            c,
		p:            p,
		pi:           pi,
		availProc:    make([]float64, n),
		totalProc:    make([]float64, n),
		availMem:     make([]float64, n),
		totalMem:     make([]float64, n),
		availSto:     make([]float64, n),
		totalSto:     make([]float64, n),
		availAcc:     make([]float64, n),
		totalAcc:     make([]float64, n),
		sis:          make([]float64, n),
		rng:          rng,
	}
	ps.UpdateStateInfo(0)
	return ps
}

// computeFS averages each child vRM's already-computed fs vector
// (populated by that vRM's own UpdateStateInfo, called just before this
// from ps.UpdateStateInfo) rather than recomputing it.
func (ps *PSwitch) computeFS() {
	for i := range ps.fs {
		ps.fs[i] = 0
	}
	for _, v := range ps.vrms {
		for j, f := range v.fs {
			ps.fs[j] += f
		}
	}
	n := float64(len(ps.vrms))
	if n == 0 {
		n = 1
	}
	for j := range ps.fs {
		ps.fs[j] /= n
	}
}

func (ps *PSwitch) computeSI() {
	ps.si = 1e-4 * ps.rng.Float64()
	for i, w := range ps.ws {
		ps.si += w * ps.fs[i]
	}
}

// UpdateStateInfo re-polls every child vRM's spmsa and si, gated by the
// pSwitch's own poll interval (spec §4.6).
func (ps *PSwitch) UpdateStateInfo(t int) {
	if ps.pollInterval > 0 && t%int(ps.pollInterval) != 0 {
		return
	}
	ps.spmsa = [8]float64{}
	for i, v := range ps.vrms {
		v.UpdateStateInfo(t)
		ps.availProc[i] = v.spmsa[idxAvailProc]
		ps.totalProc[i] = v.spmsa[idxTotalProc]
		ps.availMem[i] = v.spmsa[idxAvailMem]
		ps.totalMem[i] = v.spmsa[idxTotalMem]
		ps.availSto[i] = v.spmsa[idxAvailSto]
		ps.totalSto[i] = v.spmsa[idxTotalSto]
		ps.availAcc[i] = v.spmsa[idxAvailAcc]
		ps.totalAcc[i] = v.spmsa[idxTotalAcc]
		ps.sis[i] = v.si
	}
	for i := range ps.vrms {
		ps.spmsa[idxAvailProc] += ps.availProc[i]
		ps.spmsa[idxTotalProc] += ps.totalProc[i]
		ps.spmsa[idxAvailMem] += ps.availMem[i]
		ps.spmsa[idxTotalMem] += ps.totalMem[i]
		ps.spmsa[idxAvailSto] += ps.availSto[i]
		ps.spmsa[idxTotalSto] += ps.totalSto[i]
		ps.spmsa[idxAvailAcc] += ps.availAcc[i]
		ps.spmsa[idxTotalAcc] += ps.totalAcc[i]
	}
	ps.computeFS()
	ps.computeSI()
}

func (ps *PSwitch) SI() float64 { return ps.si }

func (ps *PSwitch) Probe(proc, mem, sto float64, acc int) bool {
	return proc <= ps.spmsa[idxAvailProc] && mem <= ps.spmsa[idxAvailMem] &&
		sto <= ps.spmsa[idxAvailSto] && float64(acc) <= ps.spmsa[idxAvailAcc]
}

func (ps *PSwitch) deassess(dnu, totNu, dnmem, totalMem float64, choice int) float64 {
	switch choice {
	case 0:
		if totNu <= 0 {
			return 0
		}
		return dnu * ps.c / totNu
	case 1:
		if totalMem <= 0 {
			return 0
		}
		return dnmem / totalMem
	case 2:
		denom := ps.p*(totNu-dnu) + ps.pi*dnu
		if denom <= 0 {
			return 0
		}
		return (dnu * ps.pi * ps.p * totNu) / (denom * denom)
	case 3:
		if totNu <= 0 {
			return 0
		}
		return 0.2 * dnu / totNu
	default:
		return 0
	}
}

// Deploy picks the highest-si child vRM with sufficient whole-task
// headroom and forwards placement to it (spec §4.6). No migration: a
// vRM lacking room is simply skipped, unlike Improved SOSM's pSwitch.
func (ps *PSwitch) Deploy(task *sim.Task, network *sim.Network, stats *sim.Statistics) bool {
	reqProc := float64(task.NumVMs) * task.ProcessorsPerVM
	reqMem := float64(task.NumVMs) * task.MemoryPerVM
	reqSto := float64(task.NumVMs) * task.StoragePerVM
	reqAcc := task.NumVMs * task.AcceleratorsPerVM

	choice := -1
	maxSI := 0.0
	for i := range ps.vrms {
		if maxSI < ps.sis[i] && reqProc <= ps.availProc[i] && reqMem <= ps.availMem[i] &&
			reqSto <= ps.availSto[i] && float64(reqAcc) <= ps.availAcc[i] {
			maxSI = ps.sis[i]
			choice = i
		}
	}
	if choice == -1 {
		stats.RejectedTasks++
		return false
	}

	ps.availProc[choice] -= reqProc
	ps.availMem[choice] -= reqMem
	ps.availSto[choice] -= reqSto
	ps.availAcc[choice] -= float64(reqAcc)
	ps.spmsa[idxAvailProc] -= reqProc
	ps.spmsa[idxAvailMem] -= reqMem
	ps.spmsa[idxAvailSto] -= reqSto
	ps.spmsa[idxAvailAcc] -= float64(reqAcc)

	ssum := 0.0
	if reqAcc > 0 {
		for i := 0; i < 4 && i < len(ps.ws); i++ {
			ssum += ps.ws[i] * ps.deassess(-float64(reqAcc), ps.spmsa[idxTotalAcc], -reqMem, ps.spmsa[idxTotalMem], i)
		}
	} else {
		for i := 0; i < 4 && i < len(ps.ws); i++ {
			ssum += ps.ws[i] * ps.deassess(-reqProc, ps.spmsa[idxTotalProc], -reqMem, ps.spmsa[idxTotalMem], i)
		}
	}
	ps.si += ssum

	ssum = 0.0
	if ps.spmsa[idxTotalAcc] > 0 {
		for i := 0; i < 4 && i < len(ps.ws); i++ {
			ssum += ps.ws[i] * ps.deassess(-float64(reqAcc), ps.totalAcc[choice], -reqMem, ps.totalMem[choice], i)
		}
	} else {
		for i := 0; i < 4 && i < len(ps.ws); i++ {
			ssum += ps.ws[i] * ps.deassess(-reqProc, ps.totalProc[choice], -reqMem, ps.totalMem[choice], i)
		}
	}
	ps.sis[choice] += ssum

	return ps.vrms[choice].Deploy(task, network, stats)
}
