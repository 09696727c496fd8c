package sosm

import (
	"math/rand"

	"github.com/cloudlightning/cellsim/sim"
)

// VRM is the leaf scheduler of the hierarchy: it owns a set of server
// indices into the cell's arena for one hardware type (spec §9's
// arena+index ownership model — never a copy of the Resource objects
// themselves). Grounded on vrm.py.
type VRM struct {
	assessment

	arena        []*sim.Resource // the cell's full arena for this hardware type (shared, never reassigned)
	indices      []int           // this vRM's current slice of arena indices
	pollInterval int
	deployStrat  int
}

// NewVRM constructs a vRM over arena[start:end] of hardware type
// resources.
func NewVRM(arena []*sim.Resource, start, end int, pollInterval, numFunctions int, weights []float64, c, p, pi float64, optNumRes, deployStrat int, rng *rand.Rand) *VRM {
	indices := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	v := &VRM{
		assessment:   newAssessment(numFunctions, weights, c, p, pi, optNumRes, rng),
		arena:        arena,
		indices:      indices,
		pollInterval: pollInterval,
		deployStrat:  deployStrat,
	}
	v.numResources = len(indices)
	v.UpdateStateInfo(0)
	return v
}

// UpdateStateInfo re-reads per-child capacities from the Resource arena
// and recomputes f/si, gated by the poll interval (spec §4.5).
func (v *VRM) UpdateStateInfo(t int) {
	if v.pollInterval > 0 && t%v.pollInterval != 0 {
		return
	}
	v.spmsa = [8]float64{}
	for _, idx := range v.indices {
		r := v.arena[idx]
		v.spmsa[idxAvailProc] += r.AvailableProcessors
		v.spmsa[idxTotalProc] += r.TotalProcessors
		v.spmsa[idxAvailMem] += r.AvailableMemory
		v.spmsa[idxTotalMem] += r.TotalMemory
		v.spmsa[idxAvailSto] += r.AvailableStorage
		v.spmsa[idxTotalSto] += r.TotalStorage
		v.spmsa[idxAvailAcc] += float64(r.AvailableAccelerators)
		v.spmsa[idxTotalAcc] += float64(r.TotalAccelerators)
	}
	v.numResources = len(v.indices)
	v.computeFS()
	v.computeSI()
}

// Probe reports whether the aggregate has headroom for the whole-task
// demand (spec §4.5).
func (v *VRM) Probe(proc, mem, sto float64, acc int) bool {
	return proc <= v.spmsa[idxAvailProc] && mem <= v.spmsa[idxAvailMem] &&
		sto <= v.spmsa[idxAvailSto] && float64(acc) <= v.spmsa[idxAvailAcc]
}

// SI returns the current suitability index.
func (v *VRM) SI() float64 { return v.si }

// NumResources returns the vRM's current server count.
func (v *VRM) NumResources() int { return len(v.indices) }

// deployStrategy places num_vms VMs according to deployStrat (spec
// §4.5's type 1 "all-same-or-fail" / type 2 "packed first-fit"),
// returning the chosen arena indices, or nil on failure with no
// partial reservation left behind.
func (v *VRM) deployStrategy(numVMs int, proc, mem, sto float64, acc int) []int {
	switch v.deployStrat {
	case 1:
		return v.deployAllFirstFit(numVMs, proc, mem, sto, acc)
	case 2:
		return v.deployPacked(numVMs, proc, mem, sto, acc)
	default:
		return nil
	}
}

func (v *VRM) deployAllFirstFit(numVMs int, proc, mem, sto float64, acc int) []int {
	n := float64(numVMs)
	for _, idx := range v.indices {
		r := v.arena[idx]
		if r.Probe(n*proc, n*mem, n*sto, numVMs*acc) == r.ID {
			ids := make([]int, numVMs)
			for i := range ids {
				ids[i] = idx
			}
			return ids
		}
	}
	return nil
}

// deployPacked greedily fills servers to capacity before moving to the
// next one, tracking a local remaining-capacity shadow per server so
// multiple VMs of this same task can land on one server within a single
// call (spec §4.5 deploy_strategy_impl type 2).
func (v *VRM) deployPacked(numVMs int, proc, mem, sto float64, acc int) []int {
	ids := make([]int, 0, numVMs)
	remaining := make(map[int][4]float64, len(v.indices))
	for _, idx := range v.indices {
		r := v.arena[idx]
		remaining[idx] = [4]float64{r.AvailableProcessors, r.AvailableMemory, r.AvailableStorage, float64(r.AvailableAccelerators)}
	}
	for _, idx := range v.indices {
		for len(ids) < numVMs {
			rem := remaining[idx]
			if rem[0] < proc || rem[1] < mem || rem[2] < sto || rem[3] < float64(acc) {
				break
			}
			rem[0] -= proc
			rem[1] -= mem
			rem[2] -= sto
			rem[3] -= float64(acc)
			remaining[idx] = rem
			ids = append(ids, idx)
		}
		if len(ids) == numVMs {
			break
		}
	}
	if len(ids) != numVMs {
		return nil
	}
	return ids
}

// Deploy implements spec §4.5's deploy(task): network gate, deploy
// strategy, resource/network commit, enqueue, deassessment.
func (v *VRM) Deploy(task *sim.Task, network *sim.Network, stats *sim.Statistics) bool {
	if !network.Probe(task.NetworkBandwidth) {
		stats.RejectedTasks++
		return false
	}

	reqProc := task.ProcessorsPerVM
	reqMem := task.MemoryPerVM
	reqSto := task.StoragePerVM
	reqAcc := task.AcceleratorsPerVM

	ids := v.deployStrategy(task.NumVMs, reqProc, reqMem, reqSto, reqAcc)
	if ids == nil {
		stats.RejectedTasks++
		return false
	}

	for _, idx := range ids {
		if err := v.arena[idx].Deploy(task.ID, reqProc, reqMem, reqSto, reqAcc); err != nil {
			for _, done := range ids {
				if done == idx {
					break
				}
				_ = v.arena[done].Unload(task.ID, reqProc, reqMem, reqSto, reqAcc)
			}
			stats.RejectedTasks++
			return false
		}
	}
	if err := network.Deploy(task.ID, task.NetworkBandwidth); err != nil {
		for _, idx := range ids {
			_ = v.arena[idx].Unload(task.ID, reqProc, reqMem, reqSto, reqAcc)
		}
		stats.RejectedTasks++
		return false
	}

	task.AttachResources(ids)
	task.AdmittedAt = task.ArrivalTime
	stats.AcceptedTasks++

	dnu := -float64(task.NumVMs) * reqProc
	dnm := -float64(task.NumVMs) * reqMem
	v.spmsa[idxAvailProc] += dnu
	v.spmsa[idxAvailMem] += dnm
	v.spmsa[idxAvailSto] -= float64(task.NumVMs) * reqSto
	v.spmsa[idxAvailAcc] -= float64(task.NumVMs * reqAcc)
	v.applyDeassessment(dnu, dnm)

	return true
}

// ObtainResources donates movable servers from this vRM toward a
// sibling's deficit, bookkeeping spmsa/si but never moving the underlying
// Resource object (spec §4.8 step 3). Returns the indices donated and the
// remaining (unclosed) deficits. SOSM's own PSwitch never calls it;
// Improved SOSM migrates through sim/improved.VRM's own ObtainResources.
func (v *VRM) ObtainResources(remProc, remMem, remSto float64, remAcc int) (donated []int, outProc, outMem, outSto float64, outAcc int) {
	outProc, outMem, outSto, outAcc = remProc, remMem, remSto, remAcc
	if outProc <= 0 && outMem <= 0 && outSto <= 0 && outAcc <= 0 {
		return nil, outProc, outMem, outSto, outAcc
	}

	remaining := v.indices[:0:0]
	for _, idx := range v.indices {
		r := v.arena[idx]
		if r.Movable && (outProc > 0 || outMem > 0 || outSto > 0 || outAcc > 0) {
			donated = append(donated, idx)
			outProc -= r.TotalProcessors
			outMem -= r.TotalMemory
			outSto -= r.TotalStorage
			outAcc -= r.TotalAccelerators
			v.spmsa[idxAvailProc] -= r.TotalProcessors
			v.spmsa[idxTotalProc] -= r.TotalProcessors
			v.spmsa[idxAvailMem] -= r.TotalMemory
			v.spmsa[idxTotalMem] -= r.TotalMemory
			v.spmsa[idxAvailSto] -= r.TotalStorage
			v.spmsa[idxTotalSto] -= r.TotalStorage
			v.spmsa[idxAvailAcc] -= float64(r.TotalAccelerators)
			v.spmsa[idxTotalAcc] -= float64(r.TotalAccelerators)
			continue
		}
		remaining = append(remaining, idx)
	}
	v.indices = remaining
	v.numResources = len(v.indices)

	if len(donated) > 0 {
		v.computeFS()
		v.computeSI()
	}
	return donated, outProc, outMem, outSto, outAcc
}

// AttachResources (Improved SOSM only) absorbs donated arena indices
// into this vRM's index set (spec §4.8 step 4).
func (v *VRM) AttachResources(indices []int) {
	if len(indices) == 0 {
		return
	}
	for _, idx := range indices {
		r := v.arena[idx]
		v.spmsa[idxAvailProc] += r.TotalProcessors
		v.spmsa[idxTotalProc] += r.TotalProcessors
		v.spmsa[idxAvailMem] += r.TotalMemory
		v.spmsa[idxTotalMem] += r.TotalMemory
		v.spmsa[idxAvailSto] += r.TotalStorage
		v.spmsa[idxTotalSto] += r.TotalStorage
		v.spmsa[idxAvailAcc] += float64(r.TotalAccelerators)
		v.spmsa[idxTotalAcc] += float64(r.TotalAccelerators)
		v.indices = append(v.indices, idx)
	}
	v.numResources = len(v.indices)
	v.computeFS()
	v.computeSI()
}
