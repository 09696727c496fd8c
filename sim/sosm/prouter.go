package sosm

import (
	"math/rand"

	"github.com/cloudlightning/cellsim/sim"
)

// PRouter is the top-of-type scheduler of spec §4.7: one pRouter per
// hardware type, aggregating all of that type's pSwitches. Grounded on
// prouter.py.
type PRouter struct {
	pswitches    []*PSwitch
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

// NewPRouter builds a pRouter over pswitches[start:end] of one
// hardware type.
func NewPRouter(pswitches []*PSwitch, start, end int, pollInterval float64, c, p, pi float64, numFunctions int, weights []float64, rng *rand.Rand) *PRouter {
	n := end - start
	pr := &PRouter{
		pswitches:    append([]*PSwitch(nil), pswitches[start:end]...),
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
	pr.UpdateStateInfo(0)
	return pr
}

func (pr *PRouter) computeFS() {
	for i := range pr.fs {
		pr.fs[i] = 0
	}
	for _, ps := range pr.pswitches {
		for j, f := range ps.fs {
			pr.fs[j] += f
		}
	}
	n := float64(len(pr.pswitches))
	if n == 0 {
		n = 1
	}
	for j := range pr.fs {
		pr.fs[j] /= n
	}
}

func (pr *PRouter) computeSI() {
	pr.si = 1e-4 * pr.rng.Float64()
	for i, w := range pr.ws {
		pr.si += w * pr.fs[i]
	}
}

// UpdateStateInfo re-polls every child pSwitch's spmsa and si, gated by
// the pRouter's own poll interval (spec §4.7).
func (pr *PRouter) UpdateStateInfo(t int) {
	if pr.pollInterval > 0 && t%int(pr.pollInterval) != 0 {
		return
	}
	pr.spmsa = [8]float64{}
	for i, ps := range pr.pswitches {
		ps.UpdateStateInfo(t)
		pr.availProc[i] = ps.spmsa[idxAvailProc]
		pr.totalProc[i] = ps.spmsa[idxTotalProc]
		pr.availMem[i] = ps.spmsa[idxAvailMem]
		pr.totalMem[i] = ps.spmsa[idxTotalMem]
		pr.availSto[i] = ps.spmsa[idxAvailSto]
		pr.totalSto[i] = ps.spmsa[idxTotalSto]
		pr.availAcc[i] = ps.spmsa[idxAvailAcc]
		pr.totalAcc[i] = ps.spmsa[idxTotalAcc]
		pr.sis[i] = ps.si
	}
	for i := range pr.pswitches {
		pr.spmsa[idxAvailProc] += pr.availProc[i]
		pr.spmsa[idxTotalProc] += pr.totalProc[i]
		pr.spmsa[idxAvailMem] += pr.availMem[i]
		pr.spmsa[idxTotalMem] += pr.totalMem[i]
		pr.spmsa[idxAvailSto] += pr.availSto[i]
		pr.spmsa[idxTotalSto] += pr.totalSto[i]
		pr.spmsa[idxAvailAcc] += pr.availAcc[i]
		pr.spmsa[idxTotalAcc] += pr.totalAcc[i]
	}
	pr.computeFS()
	pr.computeSI()
}

func (pr *PRouter) SI() float64 { return pr.si }

func (pr *PRouter) Probe(proc, mem, sto float64, acc int) bool {
	return proc <= pr.spmsa[idxAvailProc] && mem <= pr.spmsa[idxAvailMem] &&
		sto <= pr.spmsa[idxAvailSto] && float64(acc) <= pr.spmsa[idxAvailAcc]
}

func (pr *PRouter) deassess(dnu, totNu, dnmem, totalMem float64, choice int) float64 {
	switch choice {
	case 0:
		if totNu <= 0 {
			return 0
		}
		return dnu * pr.c / totNu
	case 1:
		if totalMem <= 0 {
			return 0
		}
		return dnmem / totalMem
	case 2:
		denom := pr.p*(totNu-dnu) + pr.pi*dnu
		if denom <= 0 {
			return 0
		}
		return (dnu * pr.pi * pr.p * totNu) / (denom * denom)
	case 3:
		if totNu <= 0 {
			return 0
		}
		return 0.2 * dnu / totNu
	default:
		return 0
	}
}

// Deploy picks the highest-si child pSwitch with sufficient whole-task
// headroom and forwards placement to it (spec §4.7).
func (pr *PRouter) Deploy(task *sim.Task, network *sim.Network, stats *sim.Statistics) bool {
	reqProc := float64(task.NumVMs) * task.ProcessorsPerVM
	reqMem := float64(task.NumVMs) * task.MemoryPerVM
	reqSto := float64(task.NumVMs) * task.StoragePerVM
	reqAcc := task.NumVMs * task.AcceleratorsPerVM

	choice := -1
	maxSI := 0.0
	for i := range pr.pswitches {
		if maxSI < pr.sis[i] && reqProc <= pr.availProc[i] && reqMem <= pr.availMem[i] &&
			reqSto <= pr.availSto[i] && float64(reqAcc) <= pr.availAcc[i] {
			maxSI = pr.sis[i]
			choice = i
		}
	}
	if choice == -1 {
		stats.RejectedTasks++
		return false
	}

	pr.availProc[choice] -= reqProc
	pr.availMem[choice] -= reqMem
	pr.availSto[choice] -= reqSto
	pr.availAcc[choice] -= float64(reqAcc)
	pr.spmsa[idxAvailProc] -= reqProc
	pr.spmsa[idxAvailMem] -= reqMem
	pr.spmsa[idxAvailSto] -= reqSto
	pr.spmsa[idxAvailAcc] -= float64(reqAcc)

	ssum := 0.0
	if reqAcc > 0 {
		for i := 0; i < 4 && i < len(pr.ws); i++ {
			ssum += pr.ws[i] * pr.deassess(-float64(reqAcc), pr.spmsa[idxTotalAcc], -reqMem, pr.spmsa[idxTotalMem], i)
		}
	} else {
		for i := 0; i < 4 && i < len(pr.ws); i++ {
			ssum += pr.ws[i] * pr.deassess(-reqProc, pr.spmsa[idxTotalProc], -reqMem, pr.spmsa[idxTotalMem], i)
		}
	}
	pr.si += ssum

	ssum = 0.0
	if pr.spmsa[idxTotalAcc] > 0 {
		for i := 0; i < 4 && i < len(pr.ws); i++ {
			ssum += pr.ws[i] * pr.deassess(-float64(reqAcc), pr.totalAcc[choice], -reqMem, pr.totalMem[choice], i)
		}
	} else {
		for i := 0; i < 4 && i < len(pr.ws); i++ {
			ssum += pr.ws[i] * pr.deassess(-reqProc, pr.totalProc[choice], -reqMem, pr.totalMem[choice], i)
		}
	}
	pr.sis[choice] += ssum

	return pr.pswitches[choice].Deploy(task, network, stats)
}
