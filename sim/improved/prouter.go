package improved

import (
	"math/rand"

	"github.com/cloudlightning/cellsim/sim"
)

// PRouter is the top-of-type scheduler for Improved SOSM (spec §4.8).
// It never migrates: it forwards a task only to a pSwitch whose cached
// aggregate headroom covers the whole task, and any migration happens
// inside that pSwitch's own Deploy. A pRouter simply skips a pSwitch
// lacking headroom, same as sim/sosm.PRouter.
// Grounded on improved_prouter.py.
type PRouter struct {
	pswitches    []*PSwitch
	pollInterval float64
	ws           []float64
	fs           [1]float64
	si                float64
	c, p, pi          float64
	cAcc, pAcc, piAcc float64

	availProc, totalProc []float64
	availMem, totalMem   []float64
	availSto, totalSto   []float64
	availAcc, totalAcc   []float64
	sis                  []float64

	spmsa [8]float64
	rng   *rand.Rand
}

func NewPRouter(pswitches []*PSwitch, start, end int, pollInterval float64, c, cAcc, p, pAcc, pi, piAcc float64, weights []float64, rng *rand.Rand) *PRouter {
	n := end - start
	pr := &PRouter{
		pswitches:    append([]*PSwitch(nil), pswitches[start:end]...),
		pollInterval: pollInterval,
		ws:           append([]float64(nil), weights...),
		c:            c,
		cAcc:         cAcc,
		p:            p,
		pAcc:         pAcc,
		pi:           pi,
		piAcc:        piAcc,
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
	pr.fs[0] = 0
	for _, ps := range pr.pswitches {
		pr.fs[0] += ps.fs[0]
	}
	n := float64(len(pr.pswitches))
	if n == 0 {
		n = 1
	}
	pr.fs[0] /= n
}

func (pr *PRouter) computeSI() {
	pr.si = 1e-4 * pr.rng.Float64()
	if len(pr.ws) > 0 {
		pr.si += pr.ws[0] * pr.fs[0]
	}
}

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

// Deploy picks the highest-si child pSwitch with sufficient whole-task
// headroom and forwards placement to it (improved_prouter.py:deploy).
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

	// Only f0 is deassessed at this level, weighted by ws[0], for both the
	// pRouter's own si and the chosen child's.
	if len(pr.ws) > 0 {
		d := deassessDelta(pr.c, pr.cAcc, pr.p, pr.pAcc, pr.pi, pr.piAcc, -reqProc, -float64(reqAcc),
			pr.spmsa[idxTotalProc], pr.spmsa[idxAvailProc], pr.spmsa[idxTotalAcc], pr.spmsa[idxAvailAcc])
		pr.si += pr.ws[0] * d

		d = deassessDelta(pr.c, pr.cAcc, pr.p, pr.pAcc, pr.pi, pr.piAcc, -reqProc, -float64(reqAcc),
			pr.totalProc[choice], pr.availProc[choice], pr.totalAcc[choice], pr.availAcc[choice])
		pr.sis[choice] += pr.ws[0] * d
	}

	return pr.pswitches[choice].Deploy(task, network, stats)
}
