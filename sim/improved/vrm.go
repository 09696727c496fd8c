package improved

import (
	"math/rand"

	"github.com/cloudlightning/cellsim/sim"
)

// VRM is Improved SOSM's leaf scheduler. Unlike sim/sosm.VRM, it tracks
// one spmsa per deploy/obtain/attach step rather than a full four-function
// vector, and its index set is mutated directly by sibling pSwitch
// migration (ObtainResources/AttachResources), not just by the donor
// vRM itself. Grounded on improved_vrm.py.
type VRM struct {
	assessment

	arena        []*sim.Resource
	indices      []int
	pollInterval int
	deployStrat  int
}

func NewVRM(arena []*sim.Resource, start, end int, pollInterval int, c, cAcc, p, pAcc, pi, piAcc float64, weights []float64, deployStrat int, rng *rand.Rand) *VRM {
	indices := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	v := &VRM{
		assessment:   newAssessment(c, cAcc, p, pAcc, pi, piAcc, weights, rng),
		arena:        arena,
		indices:      indices,
		pollInterval: pollInterval,
		deployStrat:  deployStrat,
	}
	v.UpdateStateInfo(0)
	return v
}

// UpdateStateInfo re-reads capacities directly from the Resource arena
// (improved_vrm.py:update_state_info).
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
	v.computeSI()
}

func (v *VRM) SI() float64      { return v.si }
func (v *VRM) NumServers() int  { return len(v.indices) }
func (v *VRM) Spmsa() [8]float64 { return v.spmsa }

func (v *VRM) Probe(proc, mem, sto float64, acc int) bool {
	return proc <= v.spmsa[idxAvailProc] && mem <= v.spmsa[idxAvailMem] &&
		sto <= v.spmsa[idxAvailSto] && float64(acc) <= v.spmsa[idxAvailAcc]
}

func (v *VRM) deployStrategy(numVMs int, proc, mem, sto float64, acc int) []int {
	if v.deployStrat == 2 {
		return v.deployPacked(numVMs, proc, mem, sto, acc)
	}
	return v.deployAllFirstFit(numVMs, proc, mem, sto, acc)
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

// Deploy places the task's VMs and applies the single-function
// deassessment delta (improved_vrm.py:deploy).
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

	v.applyDeassess(-float64(task.NumVMs)*reqProc, -float64(task.NumVMs*reqAcc))
	v.spmsa[idxAvailProc] -= float64(task.NumVMs) * reqProc
	v.spmsa[idxAvailMem] -= float64(task.NumVMs) * reqMem
	v.spmsa[idxAvailSto] -= float64(task.NumVMs) * reqSto
	v.spmsa[idxAvailAcc] -= float64(task.NumVMs * reqAcc)

	return true
}

// ObtainResources donates movable servers toward a sibling's deficit
// (spec §4.8 step 3, improved_vrm.py:obtain_resources): each donated
// server is removed from this vRM's index set and its totals are
// subtracted from spmsa immediately, recomputing si after every single
// donation exactly as the original does.
func (v *VRM) ObtainResources(remProc, remMem, remSto, remAcc *float64) []int {
	if *remProc <= 0 && *remMem <= 0 && *remSto <= 0 && *remAcc <= 0 {
		return nil
	}
	var donated []int
	remaining := v.indices[:0:0]
	for _, idx := range v.indices {
		r := v.arena[idx]
		if r.Movable && (*remProc > 0 || *remMem > 0 || *remSto > 0 || *remAcc > 0) {
			donated = append(donated, idx)
			*remProc -= r.TotalProcessors
			*remMem -= r.TotalMemory
			*remSto -= r.TotalStorage
			*remAcc -= float64(r.TotalAccelerators)

			v.spmsa[idxAvailProc] -= r.TotalProcessors
			v.spmsa[idxTotalProc] -= r.TotalProcessors
			v.spmsa[idxAvailMem] -= r.TotalMemory
			v.spmsa[idxTotalMem] -= r.TotalMemory
			v.spmsa[idxAvailSto] -= r.TotalStorage
			v.spmsa[idxTotalSto] -= r.TotalStorage
			v.spmsa[idxAvailAcc] -= float64(r.TotalAccelerators)
			v.spmsa[idxTotalAcc] -= float64(r.TotalAccelerators)
			v.computeSI()
			continue
		}
		remaining = append(remaining, idx)
	}
	v.indices = remaining
	return donated
}

// AttachResources absorbs donated arena indices (spec §4.8 step 4,
// improved_vrm.py:attach_resources).
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
	v.computeSI()
}
