package sim

import "fmt"

// ResourceConfig is the immutable capacity of a physical server, ground
// on resource.py:ResourceConfig.
type ResourceConfig struct {
	TotalProcessors           float64
	TotalMemory               float64
	TotalStorage              float64
	TotalAccelerators         int
	ComputeCapabilityPerProc  float64
	ComputeCapabilityPerAcc   float64
	OvercommitmentProcessors  float64 // >= 1
}

// Resource models one physical server of a given hardware type. Deploy and
// Unload are the only mutators of the available_* counters (spec §3).
type Resource struct {
	ID   int
	Type int

	TotalProcessors   float64
	TotalMemory       float64
	TotalStorage      float64
	TotalAccelerators int

	AvailableProcessors   float64
	AvailableMemory       float64
	AvailableStorage      float64
	AvailableAccelerators int

	ComputeCapabilityPerProc float64
	ComputeCapabilityPerAcc  float64
	OvercommitmentProcessors float64

	CurrentComputePerProc float64
	CurrentComputePerAcc  float64

	RunningVMs int
	Active     bool
	Movable    bool

	// Per-step aggregates, reset by InitializeRunningQuantities.
	ActualUtilizedProcessors float64
	ActualUtilizedMemory     float64
	ActualUtilizedStorage    float64
	ActualRhoAccelerators    float64

	DeployedTasks map[string]struct{}
}

// NewResource constructs a Resource at full availability.
func NewResource(id, resourceType int, cfg ResourceConfig) *Resource {
	if cfg.OvercommitmentProcessors <= 0 {
		cfg.OvercommitmentProcessors = 1
	}
	return &Resource{
		ID:                       id,
		Type:                     resourceType,
		TotalProcessors:          cfg.TotalProcessors,
		TotalMemory:              cfg.TotalMemory,
		TotalStorage:             cfg.TotalStorage,
		TotalAccelerators:        cfg.TotalAccelerators,
		AvailableProcessors:      cfg.TotalProcessors,
		AvailableMemory:          cfg.TotalMemory,
		AvailableStorage:         cfg.TotalStorage,
		AvailableAccelerators:    cfg.TotalAccelerators,
		ComputeCapabilityPerProc: cfg.ComputeCapabilityPerProc,
		ComputeCapabilityPerAcc:  cfg.ComputeCapabilityPerAcc,
		OvercommitmentProcessors: cfg.OvercommitmentProcessors,
		Movable:                  true,
		DeployedTasks:            make(map[string]struct{}),
	}
}

// Probe returns its own ID if the requested demand fits within current
// availability, else -1.
func (r *Resource) Probe(reqProc, reqMem, reqStorage float64, reqAcc int) int {
	if r.AvailableProcessors >= reqProc &&
		r.AvailableMemory >= reqMem &&
		r.AvailableStorage >= reqStorage &&
		r.AvailableAccelerators >= reqAcc {
		return r.ID
	}
	return -1
}

// Deploy reserves one VM's worth of (proc, mem, storage, acc) for task.
// Requires Probe to have already succeeded; returns an error otherwise.
func (r *Resource) Deploy(taskID string, reqProc, reqMem, reqStorage float64, reqAcc int) error {
	if r.Probe(reqProc, reqMem, reqStorage, reqAcc) == -1 {
		return fmt.Errorf("resource %d: PROBE_FAIL: insufficient capacity for task %s", r.ID, taskID)
	}
	r.AvailableProcessors -= reqProc
	r.AvailableMemory -= reqMem
	r.AvailableStorage -= reqStorage
	r.AvailableAccelerators -= reqAcc

	r.RunningVMs++
	r.Active = r.RunningVMs > 0
	r.DeployedTasks[taskID] = struct{}{}
	return nil
}

// Unload releases one VM's worth of reservation for task. Returns an
// error if the task was never deployed on this resource.
func (r *Resource) Unload(taskID string, reqProc, reqMem, reqStorage float64, reqAcc int) error {
	if _, ok := r.DeployedTasks[taskID]; !ok {
		return fmt.Errorf("resource %d: NOT_DEPLOYED: task %s not present", r.ID, taskID)
	}
	r.AvailableProcessors += reqProc
	r.AvailableMemory += reqMem
	r.AvailableStorage += reqStorage
	r.AvailableAccelerators += reqAcc

	r.RunningVMs--
	if r.RunningVMs <= 0 {
		r.RunningVMs = 0
		r.Active = false
	}
	delete(r.DeployedTasks, taskID)

	if r.AvailableProcessors > r.TotalProcessors || r.AvailableMemory > r.TotalMemory ||
		r.AvailableStorage > r.TotalStorage || r.AvailableAccelerators > r.TotalAccelerators {
		invariantViolation("resource %d: available exceeds capacity after unload", r.ID)
	}
	if r.RunningVMs < 0 {
		invariantViolation("resource %d: running_vms went negative", r.ID)
	}
	return nil
}

// InitializeRunningQuantities zeroes the per-step aggregates. Must run
// once at the top of every simulated second, before any
// IncrementRunningQuantities call for that step — this is what keeps the
// accelerator-ratio averaging in ComputeCurrentComputePerAccelerator from
// re-applying across steps (spec §9, open question on actual_rho_accelerators).
func (r *Resource) InitializeRunningQuantities() {
	r.ActualUtilizedProcessors = 0
	r.ActualUtilizedMemory = 0
	r.ActualUtilizedStorage = 0
	r.ActualRhoAccelerators = 0
}

// IncrementRunningQuantities adds one VM's contribution to this step's
// aggregates. rhoAcc is the VM's raw accelerator-activity ratio; it is
// summed here and turned into a used-accelerator average by
// ComputeCurrentComputePerAccelerator.
func (r *Resource) IncrementRunningQuantities(deltaProc, deltaMem, deltaStorage, rhoAcc float64) {
	r.ActualUtilizedProcessors += deltaProc
	r.ActualUtilizedMemory += deltaMem
	r.ActualUtilizedStorage += deltaStorage
	r.ActualRhoAccelerators += rhoAcc
}

// ComputeCurrentComputePerProcessor applies the overcommitment-scaled
// divide-by-max(ratio,1) rule from spec §3/§4.1.
func (r *Resource) ComputeCurrentComputePerProcessor() {
	if r.RunningVMs > 0 && r.ActualUtilizedProcessors > 0 && r.TotalProcessors > 0 {
		ratio := r.ActualUtilizedProcessors / (r.TotalProcessors * r.OvercommitmentProcessors)
		r.CurrentComputePerProc = r.ComputeCapabilityPerProc * (1.0 / Max(ratio, 1.0))
		return
	}
	r.CurrentComputePerProc = r.ComputeCapabilityPerProc
}

// ComputeCurrentComputePerAccelerator converts the accumulated rho sum
// into an average-per-used-accelerator in place, then applies the same
// divide-by-max(avg,1) rule. Safe to call once per step because
// InitializeRunningQuantities resets the sum before the next step's
// accumulation begins.
func (r *Resource) ComputeCurrentComputePerAccelerator() {
	if r.TotalAccelerators > 0 && r.RunningVMs > 0 {
		usedAcc := r.TotalAccelerators - r.AvailableAccelerators
		if usedAcc > 0 {
			r.ActualRhoAccelerators = r.ActualRhoAccelerators / float64(usedAcc)
			r.CurrentComputePerAcc = r.ComputeCapabilityPerAcc * (1.0 / Max(r.ActualRhoAccelerators, 1.0))
			return
		}
	}
	r.CurrentComputePerAcc = r.ComputeCapabilityPerAcc
}
