package sosm

import (
	"github.com/cloudlightning/cellsim/sim"
)

// Broker implements sim.Broker with the full three-level hierarchy of
// spec §4.5-§4.7: one vRM band, one pSwitch band, and a single pRouter
// per hardware type. Grounded on sosm_broker.py.
type Broker struct {
	cell     *sim.Cell
	vrms     [][]*VRM
	pswitch  [][]*PSwitch
	prouters []*PRouter
}

func newSOSMBroker(cell *sim.Cell, cfg sim.BrokerConfig, rng *sim.PartitionedRNG) (sim.Broker, error) {
	if cell.ID < 0 || cell.ID >= len(cfg.Brokers) {
		return nil, &sim.ConfigMismatch{Mechanism: "SOSM", Msg: "missing per-cell broker configuration"}
	}
	pc := cfg.Brokers[cell.ID]
	r := rng.ForSubsystem(sim.SubsystemTieBreak)

	numTypes := len(cell.Resources)
	tempC := make([]float64, numTypes)
	tempP := make([]float64, numTypes)
	tempPi := make([]float64, numTypes)

	for i := 0; i < numTypes; i++ {
		if len(cell.Resources[i]) == 0 {
			continue
		}
		r0 := cell.Resources[i][0]
		tempC[i] = r0.ComputeCapabilityPerProc + r0.ComputeCapabilityPerAcc
		model := cell.PowerModels[i]
		if model != nil {
			tempP[i] = model.Consumption(1, 1, r0.Active, r0.TotalAccelerators)
			tempPi[i] = model.Consumption(0, 0, r0.Active, r0.TotalAccelerators)
		}
	}

	tminC, tminP := 0, 0
	for i := 1; i < numTypes; i++ {
		if tempC[tminC] > tempC[i] {
			tminC = i
		}
		if tempP[tminP] > tempP[i] {
			tminP = i
		}
	}
	minC, minP := tempC[tminC], tempP[tminP]

	for i := 0; i < numTypes; i++ {
		if tempP[i] > 0 {
			tempPi[i] /= tempP[i]
		} else {
			tempPi[i] = 0
		}
	}
	for i := 0; i < numTypes; i++ {
		if minC > 0 {
			tempC[i] /= minC
		}
		if minP > 0 {
			tempP[i] /= minP
		}
	}

	b := &Broker{
		cell:     cell,
		vrms:     make([][]*VRM, numTypes),
		pswitch:  make([][]*PSwitch, numTypes),
		prouters: make([]*PRouter, numTypes),
	}

	for i := 0; i < numTypes; i++ {
		arena := cell.Resources[i]
		var vrms []*VRM
		for start := 0; start < len(arena); start += pc.ResourcesPerVRM {
			end := start + pc.ResourcesPerVRM
			if end > len(arena) {
				end = len(arena)
			}
			vrms = append(vrms, NewVRM(arena, start, end, pc.PollIntervalVRM, pc.NumberOfFunctions, pc.Weights, tempC[i], tempP[i], tempPi[i], pc.ResourcesPerVRM, pc.DeploymentStrategy, r))
		}
		b.vrms[i] = vrms

		var pswitches []*PSwitch
		for start := 0; start < len(vrms); start += pc.VRMsPerPSwitch {
			end := start + pc.VRMsPerPSwitch
			if end > len(vrms) {
				end = len(vrms)
			}
			pswitches = append(pswitches, NewPSwitch(vrms, start, end, float64(pc.PollIntervalPSwitch), tempC[i], tempP[i], tempPi[i], pc.NumberOfFunctions, pc.Weights, r))
		}
		b.pswitch[i] = pswitches

		b.prouters[i] = NewPRouter(pswitches, 0, len(pswitches), float64(pc.PollIntervalPRouter), tempC[i], tempP[i], tempPi[i], pc.NumberOfFunctions, pc.Weights, r)
	}

	return b, nil
}

func (b *Broker) Mechanism() string { return "SOSM" }

// UpdateStateInfo re-polls the whole hierarchy bottom-up, each level
// gated by its own poll interval (spec §4.5-§4.7). The pRouter pulls
// from pSwitches, which pull from vRMs, which pull from Resources.
func (b *Broker) UpdateStateInfo(t int) {
	for i := range b.prouters {
		b.prouters[i].UpdateStateInfo(t)
	}
}

// Deploy picks, among the task's managed implementations, the
// hardware type whose pRouter reports the highest si with sufficient
// cached headroom, then forwards placement to that pRouter (spec §4.5's
// top-of-hierarchy selection, grounded on sosm_broker.py:deploy).
func (b *Broker) Deploy(task *sim.Task) error {
	bestImpl := -1
	bestType := -1
	bestSI := 0.0
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

		pr := b.prouters[hwType]
		if bestSI < pr.SI() && pr.Probe(reqProc, reqMem, reqSto, task.NumVMs*reqAcc) {
			bestSI = pr.SI()
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

// Timestep applies the shared physics loop (spec §4.10); the SOSM
// hierarchy's in-flight tasks live in cell.InFlight exactly like
// Traditional's, since the physics formulas depend only on a task's
// attached resource ids, not on which broker tracked it as admitted.
func (b *Broker) Timestep(t int) {
	sim.RunBrokerPhysics(b.cell, t)
}
