package sim

// TaskState is the lifecycle stage of a Task.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskAdmitted
	TaskRunning
	TaskCompleted
	TaskRejected
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "PENDING"
	case TaskAdmitted:
		return "ADMITTED"
	case TaskRunning:
		return "RUNNING"
	case TaskCompleted:
		return "COMPLETED"
	case TaskRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Utilization is the instantaneous per-VM resource activity profile.
type Utilization struct {
	Processor   float64
	Memory      float64
	Network     float64
	Storage     float64
	Accelerator float64
}

// Task is a workload descriptor admitted onto one hardware type across
// num_vms placements (spec §3, §4.3).
type Task struct {
	ID          string
	ArrivalTime int

	ProcessorsPerVM   float64
	MemoryPerVM       float64
	NetworkBandwidth  float64 // whole-task, never scaled by NumVMs (spec §9)
	StoragePerVM      float64
	AcceleratorsPerVM int
	NumVMs            int

	TotalInstructions     float64
	RemainingInstructions float64

	ProcessorUtilization   float64
	MemoryUtilization      float64
	StorageUtilization     float64
	AcceleratorUtilization float64

	// AvailableImplementations is the ordered, non-empty candidate list of
	// hw_type_ids; parallel AcceleratorsPerImpl lets a task request a
	// different accelerator count depending on which implementation is
	// chosen.
	AvailableImplementations []int
	AcceleratorsPerImpl      []int

	SelectedType int
	ResourceIDs  []int

	State TaskState

	AdmittedAt  int
	CompletedAt int
}

// NewTask validates and constructs a Task in state PENDING. Returns an
// InputError if num_vms < 1 or the implementation list is empty —
// mirroring spec §7's InputError category for malformed task input.
func NewTask(id string, arrivalTime int, numVMs int, implementations []int, acceleratorsPerImpl []int) (*Task, error) {
	if numVMs < 1 {
		return nil, &InputError{Field: "num_vms", Msg: "must be >= 1"}
	}
	if len(implementations) == 0 {
		return nil, &InputError{Field: "available_implementations", Msg: "must be non-empty"}
	}
	if len(acceleratorsPerImpl) != len(implementations) {
		return nil, &InputError{Field: "available_implementations", Msg: "accelerators_per_impl length mismatch"}
	}
	return &Task{
		ID:                       id,
		ArrivalTime:              arrivalTime,
		NumVMs:                   numVMs,
		AvailableImplementations: implementations,
		AcceleratorsPerImpl:      acceleratorsPerImpl,
		SelectedType:             -1,
		State:                    TaskPending,
	}, nil
}

// ReduceImpl collapses the implementation list to its k-th entry and
// records the chosen hardware type and accelerator count. Must be called
// before a task is enqueued onto a broker (spec §4.3).
func (t *Task) ReduceImpl(k int) {
	if k < 0 || k >= len(t.AvailableImplementations) {
		invariantViolation("task %s: reduce_impl index %d out of range", t.ID, k)
	}
	t.SelectedType = t.AvailableImplementations[k]
	t.AcceleratorsPerVM = t.AcceleratorsPerImpl[k]
}

// RemapType records the hardware type a broker selected for this task,
// independent of which implementation index produced it.
func (t *Task) RemapType(hwType int) {
	t.SelectedType = hwType
}

// AttachResources records the server index each VM landed on. VMs may
// co-locate; len(resourceIDs) must equal NumVMs.
func (t *Task) AttachResources(resourceIDs []int) {
	if len(resourceIDs) != t.NumVMs {
		invariantViolation("task %s: attach_resources length %d != num_vms %d", t.ID, len(resourceIDs), t.NumVMs)
	}
	t.ResourceIDs = resourceIDs
	t.State = TaskAdmitted
}

// CurrentUtilization returns this second's per-VM demand delta, scaled
// by the task's utilization profile (spec §4.3).
func (t *Task) CurrentUtilization() Utilization {
	return Utilization{
		Processor:   t.ProcessorUtilization * t.ProcessorsPerVM,
		Memory:      t.MemoryUtilization * t.MemoryPerVM,
		Network:     t.ProcessorUtilization * t.NetworkBandwidth,
		Storage:     t.StorageUtilization * t.StoragePerVM,
		Accelerator: t.AcceleratorUtilization * float64(t.AcceleratorsPerVM),
	}
}

// ReduceInstructions subtracts δ from RemainingInstructions, clamped at
// zero, and marks the task RUNNING if it was ADMITTED.
func (t *Task) ReduceInstructions(delta float64) {
	t.RemainingInstructions -= delta
	if t.RemainingInstructions < 0 {
		t.RemainingInstructions = 0
	}
	if t.State == TaskAdmitted {
		t.State = TaskRunning
	}
}

// IsCompleted reports whether the task's remaining work has reached
// zero. Panics if called on a task that was never placed, per spec §7's
// InvariantViolation category.
func (t *Task) IsCompleted() bool {
	if t.State == TaskPending || t.State == TaskRejected {
		invariantViolation("task %s: is_completed checked before placement", t.ID)
	}
	return t.RemainingInstructions <= 0
}

// MarkCompleted transitions the task to COMPLETED at simulation time t.
func (t *Task) MarkCompleted(t_ int) {
	t.State = TaskCompleted
	t.CompletedAt = t_
}

// MarkRejected transitions the task to REJECTED. Only valid from PENDING.
func (t *Task) MarkRejected() {
	if t.State != TaskPending {
		invariantViolation("task %s: reject called from state %s", t.ID, t.State)
	}
	t.State = TaskRejected
}

// WaitingTime is the delay between arrival and admission.
func (t *Task) WaitingTime() int {
	return t.AdmittedAt - t.ArrivalTime
}

// ResponseTime is the delay between arrival and completion.
func (t *Task) ResponseTime() int {
	return t.CompletedAt - t.ArrivalTime
}

// ExecutionTime is the delay between admission and completion.
func (t *Task) ExecutionTime() int {
	return t.CompletedAt - t.AdmittedAt
}
