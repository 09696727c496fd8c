package improved

import (
	"github.com/cloudlightning/cellsim/sim"
)

// Broker implements sim.Broker for Improved SOSM (spec §4.8): the same
// three-level hierarchy as sim/sosm, but the vRM/pSwitch/pRouter
// normalization constants are split into a processor term and an
// accelerator term, and the pSwitch level migrates resources between
// siblings. Grounded on improved_sosm_broker.py.
type Broker struct {
	cell     *sim.Cell
	vrms     [][]*VRM
	pswitch  [][]*PSwitch
	prouters []*PRouter

	// cs/caccs are the per-hardware-type normalization constants computed
	// once at construction (improved_sosm_broker.py's self.cs/self.caccs),
	// retained here for Deploy's weighted-si tie-break.
	cs    []float64
	caccs []float64
}

func newImprovedSOSMBroker(cell *sim.Cell, cfg sim.BrokerConfig, rng *sim.PartitionedRNG) (sim.Broker, error) {
	if cell.ID < 0 || cell.ID >= len(cfg.Brokers) {
		return nil, &sim.ConfigMismatch{Mechanism: "Improved SOSM", Msg: "missing per-cell broker configuration"}
	}
	pc := cfg.Brokers[cell.ID]
	r := rng.ForSubsystem(sim.SubsystemTieBreak)

	numTypes := len(cell.Resources)
	tempC := make([]float64, numTypes)
	tempCAcc := make([]float64, numTypes)
	tempP := make([]float64, numTypes)
	tempPAcc := make([]float64, numTypes)
	tempPi := make([]float64, numTypes)
	tempPiAcc := make([]float64, numTypes)

	for i := 0; i < numTypes; i++ {
		if len(cell.Resources[i]) == 0 {
			continue
		}
		r0 := cell.Resources[i][0]
		totalProc := r0.TotalProcessors
		if totalProc <= 0 {
			totalProc = 1
		}
		tempC[i] = r0.ComputeCapabilityPerProc / totalProc
		tempCAcc[i] = r0.ComputeCapabilityPerAcc

		model := cell.PowerModels[i]
		if model != nil {
			tempP[i] = model.Consumption(1, 0, r0.Active, 0) / totalProc
			tempPi[i] = model.Consumption(0, 0, r0.Active, 0) / totalProc
			tempPAcc[i] = model.AccPMax
			tempPiAcc[i] = model.AccPMin
		}
	}

	b := &Broker{
		cell:     cell,
		vrms:     make([][]*VRM, numTypes),
		pswitch:  make([][]*PSwitch, numTypes),
		prouters: make([]*PRouter, numTypes),
		cs:       tempC,
		caccs:    tempCAcc,
	}

	for i := 0; i < numTypes; i++ {
		arena := cell.Resources[i]
		var vrms []*VRM
		for start := 0; start < len(arena); start += pc.ResourcesPerVRM {
			end := start + pc.ResourcesPerVRM
			if end > len(arena) {
				end = len(arena)
			}
			vrms = append(vrms, NewVRM(arena, start, end, pc.PollIntervalVRM,
				tempC[i], tempCAcc[i], tempP[i], tempPAcc[i], tempPi[i], tempPiAcc[i],
				pc.Weights, pc.DeploymentStrategy, r))
		}
		b.vrms[i] = vrms

		var pswitches []*PSwitch
		for start := 0; start < len(vrms); start += pc.VRMsPerPSwitch {
			end := start + pc.VRMsPerPSwitch
			if end > len(vrms) {
				end = len(vrms)
			}
			pswitches = append(pswitches, NewPSwitch(vrms, start, end, float64(pc.PollIntervalPSwitch),
				tempC[i], tempCAcc[i], tempP[i], tempPAcc[i], tempPi[i], tempPiAcc[i],
				pc.NumberOfFunctions, pc.Weights, r))
		}
		b.pswitch[i] = pswitches

		b.prouters[i] = NewPRouter(pswitches, 0, len(pswitches), float64(pc.PollIntervalPRouter),
			tempC[i], tempCAcc[i], tempP[i], tempPAcc[i], tempPi[i], tempPiAcc[i], pc.Weights, r)
	}

	return b, nil
}

func (b *Broker) Mechanism() string { return "Improved SOSM" }

func (b *Broker) UpdateStateInfo(t int) {
	for i := range b.prouters {
		b.prouters[i].UpdateStateInfo(t)
	}
}

// Deploy picks the managed implementation whose pRouter offers the best
// score. Besides the straightforward si, it also evaluates a
// per-implementation accelerator-weighted si and prefers whichever of
// the two is higher, exactly as improved_sosm_broker.py:deploy does
// when ranking implementations that mix accelerator and non-accelerator
// hardware types.
func (b *Broker) Deploy(task *sim.Task) error {
	bestImpl := -1
	bestType := -1
	bestScore := 0.0
	firstCandidate := -1

	for implIdx, hwType := range task.AvailableImplementations {
		if hwType < 0 || hwType >= len(b.prouters) {
			continue
		}
		if firstCandidate == -1 {
			firstCandidate = hwType
		}
		reqAcc := task.AcceleratorsPerImpl[implIdx]
		reqProc := float64(task.NumVMs) * task.ProcessorsPerVM
		reqMem := float64(task.NumVMs) * task.MemoryPerVM
		reqSto := float64(task.NumVMs) * task.StoragePerVM
		reqAccTotal := task.NumVMs * reqAcc

		pr := b.prouters[hwType]
		if !pr.Probe(reqProc, reqMem, reqSto, reqAccTotal) {
			continue
		}

		si := pr.SI()
		score := si
		if reqAccTotal > 0 {
			// improved_sosm_broker.py:deploy's weighted_si: occupancy-invariant
			// per-type constants against the task's per-VM quantities, not
			// live pRouter state or the NumVMs-scaled total.
			denom := b.cs[hwType]*task.ProcessorsPerVM + b.caccs[hwType]
			if denom > 0 {
				weighted := ((b.cs[hwType]*task.ProcessorsPerVM + float64(reqAcc)*b.caccs[hwType]) / denom) * si
				if weighted > score {
					score = weighted
				}
			}
		}

		if score > bestScore {
			bestScore = score
			bestType = hwType
			bestImpl = implIdx
		}
	}

	if firstCandidate == -1 {
		return &sim.InputError{Field: "available_implementations", Msg: "no implementation managed by this broker"}
	}
	if bestType == -1 {
		b.cell.Stats[firstCandidate].RejectedTasks++
		task.MarkRejected()
		return nil
	}

	task.ReduceImpl(bestImpl)
	if !b.prouters[bestType].Deploy(task, b.cell.Network, b.cell.Stats[bestType]) {
		task.MarkRejected()
	}
	return nil
}

// Timestep applies the shared physics loop (spec §4.10); see
// sim/sosm.Broker.Timestep for why this is safe to share across
// mechanisms despite the differing admission-side hierarchies.
func (b *Broker) Timestep(t int) {
	sim.RunBrokerPhysics(b.cell, t)
}
