package sim

// TraditionalBroker implements the flat first-fit admission mechanism of
// spec §4.9: no hierarchy, a single in-flight set per cell, and
// all-or-nothing placement across the task's VMs. Grounded on
// traditional_broker.py.
type TraditionalBroker struct {
	cell *Cell
}

func newTraditionalBroker(cell *Cell, _ BrokerConfig, _ *PartitionedRNG) (Broker, error) {
	return &TraditionalBroker{cell: cell}, nil
}

func (b *TraditionalBroker) Mechanism() string { return "Traditional" }

// UpdateStateInfo is a no-op: Traditional reads Resource/Network state
// directly on every Deploy/Timestep call rather than polling a cached
// copy (spec §4.9 has no hierarchy to poll).
func (b *TraditionalBroker) UpdateStateInfo(t int) {}

// Deploy implements spec §4.9 steps 1-5: pick the first managed
// implementation, probe network, then place VMs 0..num_vms-1 in server
// index order with atomic rollback on any VM failure.
func (b *TraditionalBroker) Deploy(task *Task) error {
	typeIdx := -1
	for i, hwType := range task.AvailableImplementations {
		if hwType >= 0 && hwType < len(b.cell.Resources) {
			typeIdx = hwType
			task.ReduceImpl(i)
			break
		}
	}
	if typeIdx == -1 {
		return &InputError{Field: "available_implementations", Msg: "no implementation managed by this broker"}
	}

	if !b.cell.Network.Probe(task.NetworkBandwidth) {
		b.cell.Stats[typeIdx].RejectedTasks++
		task.MarkRejected()
		return nil
	}
	// Reserve bandwidth before VM placement so a later VM failure has a
	// real reservation to roll back (spec §4.9 step 4).
	if err := b.cell.Network.Deploy(task.ID, task.NetworkBandwidth); err != nil {
		invariantViolation("traditional broker: network deploy failed after successful probe: %v", err)
	}

	reqAcc := task.AcceleratorsPerVM
	arena := b.cell.Resources[typeIdx]

	allocated := make([]int, 0, task.NumVMs)
	for vm := 0; vm < task.NumVMs; vm++ {
		resourceID := -1
		for i, r := range arena {
			if r.Probe(task.ProcessorsPerVM, task.MemoryPerVM, task.StoragePerVM, reqAcc) == r.ID {
				resourceID = i
				break
			}
		}
		if resourceID == -1 {
			for _, prevID := range allocated {
				_ = arena[prevID].Unload(task.ID, task.ProcessorsPerVM, task.MemoryPerVM, task.StoragePerVM, reqAcc)
			}
			_ = b.cell.Network.Unload(task.ID)
			b.cell.Stats[typeIdx].RejectedTasks++
			task.MarkRejected()
			return nil
		}
		if err := arena[resourceID].Deploy(task.ID, task.ProcessorsPerVM, task.MemoryPerVM, task.StoragePerVM, reqAcc); err != nil {
			for _, prevID := range allocated {
				_ = arena[prevID].Unload(task.ID, task.ProcessorsPerVM, task.MemoryPerVM, task.StoragePerVM, reqAcc)
			}
			_ = b.cell.Network.Unload(task.ID)
			b.cell.Stats[typeIdx].RejectedTasks++
			task.MarkRejected()
			return nil
		}
		allocated = append(allocated, resourceID)
	}

	task.AttachResources(allocated)
	task.AdmittedAt = task.ArrivalTime
	b.cell.Stats[typeIdx].AcceptedTasks++
	return nil
}

// Timestep implements spec §4.10's physics loop for this cell.
func (b *TraditionalBroker) Timestep(t int) {
	RunBrokerPhysics(b.cell, t)
}

// RunBrokerPhysics is the shared fixed-step physics loop (spec §4.10),
// factored out so Traditional and the SOSM-family brokers (sim/sosm,
// sim/improved) apply identical per-second work/energy accounting on
// top of whatever placement policy selected the in-flight tasks.
func RunBrokerPhysics(cell *Cell, t int) {
	for _, arena := range cell.Resources {
		for _, r := range arena {
			if r.RunningVMs > 0 {
				r.InitializeRunningQuantities()
			}
		}
	}
	cell.Network.InitializeRunningQuantities()

	totalNetworkUtil := 0.0
	for _, task := range cell.InFlight {
		u := task.CurrentUtilization()
		totalNetworkUtil += u.Network

		arena := cell.Resources[task.SelectedType]
		for _, resID := range task.ResourceIDs {
			arena[resID].IncrementRunningQuantities(u.Processor, u.Memory, u.Storage, u.Accelerator)
		}
	}
	cell.Network.IncrementRunningQuantities(totalNetworkUtil)

	for _, arena := range cell.Resources {
		for _, r := range arena {
			if r.RunningVMs > 0 {
				r.ComputeCurrentComputePerProcessor()
				r.ComputeCurrentComputePerAccelerator()
			}
		}
	}

	for typeIdx, arena := range cell.Resources {
		model := cell.PowerModels[typeIdx]
		if model == nil {
			continue
		}
		total := 0.0
		for _, r := range arena {
			procUtil := 0.0
			if r.TotalProcessors > 0 {
				procUtil = r.ActualUtilizedProcessors / r.TotalProcessors
			}
			total += model.Consumption(procUtil, r.ActualRhoAccelerators, r.Active, r.TotalAccelerators)
		}
		cell.Stats[typeIdx].AddEnergy(total)
	}

	var completed []*Task
	for _, task := range cell.InFlight {
		arena := cell.Resources[task.SelectedType]
		ip := arena[task.ResourceIDs[0]].CurrentComputePerProc
		ia := arena[task.ResourceIDs[0]].CurrentComputePerAcc
		overcommit := arena[task.ResourceIDs[0]].OvercommitmentProcessors
		for _, resID := range task.ResourceIDs[1:] {
			ip = Min(ip, arena[resID].CurrentComputePerProc)
			ia = Min(ia, arena[resID].CurrentComputePerAcc)
		}

		u := task.CurrentUtilization()
		procInstr := float64(task.NumVMs) * ip * Min(u.Processor/task.ProcessorsPerVM*overcommit, 1.0) * task.ProcessorsPerVM
		accInstr := float64(task.NumVMs) * ia * task.AcceleratorUtilization
		task.ReduceInstructions(procInstr + accInstr)

		if task.IsCompleted() {
			for _, resID := range task.ResourceIDs {
				_ = arena[resID].Unload(task.ID, task.ProcessorsPerVM, task.MemoryPerVM, task.StoragePerVM, task.AcceleratorsPerVM)
			}
			_ = cell.Network.Unload(task.ID)
			task.MarkCompleted(t)
			cell.Stats[task.SelectedType].RecordTaskCompletion(task.ArrivalTime, task.AdmittedAt, task.CompletedAt)
			completed = append(completed, task)
		}
	}
	for _, task := range completed {
		cell.Complete(task.ID)
	}
}
