package improved

import (
	"math/rand"

	"github.com/cloudlightning/cellsim/sim"
)

// PSwitch is Improved SOSM's mid-level scheduler (spec §4.8). Unlike
// sim/sosm.PSwitch, when the highest-si child vRM lacks headroom it
// does not simply skip to the next one: it picks the single highest-si
// child overall as recipient and asks every sibling vRM to donate
// movable servers until the deficit closes, migrating resources across
// vRM boundaries before rejecting the task. Grounded on improved_pswitch.py.
type PSwitch struct {
	vrms         []*VRM
	pollInterval float64
	numFunctions int
	ws           []float64
	fs           []float64
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

func NewPSwitch(vrms []*VRM, start, end int, pollInterval float64, c, cAcc, p, pAcc, pi, piAcc float64, numFunctions int, weights []float64, rng *rand.Rand) *PSwitch {
	n := end - start
	ps := &PSwitch{
		vrms:         append([]*VRM(nil), vrms[start:end]...),
		pollInterval: pollInterval,
		numFunctions: numFunctions,
		ws:           append([]float64(nil), weights...),
		fs:           make([]float64, numFunctions),
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
	ps.UpdateStateInfo(0)
	return ps
}

func (ps *PSwitch) computeFS() {
	for i := range ps.fs {
		ps.fs[i] = 0
	}
	for _, v := range ps.vrms {
		ps.fs[0] += v.assessFunc()
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
		if i == 0 {
			ps.si += w * ps.fs[0]
		}
	}
}

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

// Deploy picks the highest-si child with headroom; failing that, it
// picks the single highest-si child overall as the migration recipient
// and pulls movable servers from siblings (first lower-indexed, then
// higher-indexed) until the deficit is closed, exactly mirroring
// improved_pswitch.py:deploy's two-pass donor order.
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
		choice = ps.highestSI()
		if choice == -1 {
			stats.RejectedTasks++
			return false
		}
		if !ps.migrate(choice, reqProc, reqMem, reqSto, reqAcc) {
			stats.RejectedTasks++
			return false
		}
	}

	ps.applyDeassessTop(reqProc, reqAcc, reqMem)
	ps.applyDeassessChild(choice, reqProc, reqAcc, reqMem)

	ps.availProc[choice] -= reqProc
	ps.availMem[choice] -= reqMem
	ps.availSto[choice] -= reqSto
	ps.availAcc[choice] -= float64(reqAcc)
	ps.spmsa[idxAvailProc] -= reqProc
	ps.spmsa[idxAvailMem] -= reqMem
	ps.spmsa[idxAvailSto] -= reqSto
	ps.spmsa[idxAvailAcc] -= float64(reqAcc)

	return ps.vrms[choice].Deploy(task, network, stats)
}

func (ps *PSwitch) highestSI() int {
	choice := -1
	maxSI := 0.0
	for i, si := range ps.sis {
		if choice == -1 || si > maxSI {
			maxSI = si
			choice = i
		}
	}
	return choice
}

// migrate pulls movable servers from siblings of choice, lower-indexed
// siblings first then higher-indexed, until choice can fit the request
// (improved_pswitch.py:deploy's obtain_resources/attach_resources block).
// If the deficit stays open, every donated server is handed back to its
// donor and nothing is attached to choice.
func (ps *PSwitch) migrate(choice int, reqProc, reqMem, reqSto float64, reqAcc int) bool {
	remProc := reqProc - ps.availProc[choice]
	remMem := reqMem - ps.availMem[choice]
	remSto := reqSto - ps.availSto[choice]
	remAcc := float64(reqAcc) - ps.availAcc[choice]

	var obtained []int
	var donors []int
	var gifts [][]int
	order := make([]int, 0, len(ps.vrms)-1)
	for i := choice - 1; i >= 0; i-- {
		order = append(order, i)
	}
	for i := choice + 1; i < len(ps.vrms); i++ {
		order = append(order, i)
	}

	for _, i := range order {
		if remProc <= 0 && remMem <= 0 && remSto <= 0 && remAcc <= 0 {
			break
		}
		donated := ps.vrms[i].ObtainResources(&remProc, &remMem, &remSto, &remAcc)
		if len(donated) == 0 {
			continue
		}
		obtained = append(obtained, donated...)
		donors = append(donors, i)
		gifts = append(gifts, donated)
		ps.refreshChild(i)
	}

	if len(obtained) == 0 || remProc > 0 || remMem > 0 || remSto > 0 || remAcc > 0 {
		for k, i := range donors {
			ps.vrms[i].AttachResources(gifts[k])
			ps.refreshChild(i)
		}
		return false
	}
	ps.vrms[choice].AttachResources(obtained)
	ps.refreshChild(choice)
	return true
}

func (ps *PSwitch) refreshChild(i int) {
	v := ps.vrms[i]
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

func (ps *PSwitch) applyDeassessTop(reqProc float64, reqAcc int, reqMem float64) {
	d := deassessDelta(ps.c, ps.cAcc, ps.p, ps.pAcc, ps.pi, ps.piAcc, -reqProc, -float64(reqAcc),
		ps.spmsa[idxTotalProc], ps.spmsa[idxAvailProc], ps.spmsa[idxTotalAcc], ps.spmsa[idxAvailAcc])
	_ = reqMem
	ps.si += ps.ws[0] * d
}

func (ps *PSwitch) applyDeassessChild(choice int, reqProc float64, reqAcc int, reqMem float64) {
	d := deassessDelta(ps.c, ps.cAcc, ps.p, ps.pAcc, ps.pi, ps.piAcc, -reqProc, -float64(reqAcc),
		ps.totalProc[choice], ps.availProc[choice], ps.totalAcc[choice], ps.availAcc[choice])
	_ = reqMem
	ps.sis[choice] += ps.ws[0] * d
}
