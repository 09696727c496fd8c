package sim

// StatsSnapshot is one update_interval-aligned record of a cell/hw-type's
// aggregate state (spec §3, results JSON's "Outputs" entries).
type StatsSnapshot struct {
	TimeStep int `json:"Time Step"`

	ActiveServers int `json:"Active Servers"`
	RunningVMs    int `json:"Running VMs"`

	AcceptedTasks int     `json:"Total Number of accepted Tasks"`
	RejectedTasks int     `json:"Total Number of rejected Tasks"`
	TotalEnergy   float64 `json:"Total Energy Consumption"` // GWh, cumulative

	AvailableProcessors float64 `json:"Available Processors"`
	UtilizedProcessors  float64 `json:"Utilized Processors"`
	TotalProcessors     float64 `json:"Total Processors"`

	AvailableMemory float64 `json:"Available Memory"`
	UtilizedMemory  float64 `json:"Utilized Memory"`
	TotalMemory     float64 `json:"Total Memory"`

	AvailableStorage float64 `json:"Available Storage"`
	UtilizedStorage  float64 `json:"Utilized Storage"`
	TotalStorage     float64 `json:"Total Storage"`

	AvailableAccelerators int `json:"Available Accelerators"`
	UtilizedAccelerators  int `json:"Utilized Accelerators"`
	TotalAccelerators     int `json:"Total Accelerators"`

	AvailableNetwork float64 `json:"Available Network"`
	UtilizedNetwork  float64 `json:"Utilized Network"`
	TotalNetwork     float64 `json:"Total Network"`

	ActualUtilizedProcessorsOverActive float64 `json:"Actual Utilized Processors Over Active Servers"`
	ActualUtilizedMemoryOverActive     float64 `json:"Actual Utilized Memory Over Active Servers"`
	ActualUtilizedStorageOverActive    float64 `json:"Actual Utilized Storage Over Active Servers"`
}

// Statistics accumulates per-(cell, hardware type) running counters and
// appends a StatsSnapshot at each configured update_interval (spec §3,
// grounded on statistics.py's running counters plus
// record_task_completion).
type Statistics struct {
	CellID int
	HWType int

	AcceptedTasks int
	RejectedTasks int
	TotalEnergy   float64

	TaskWaitingTimes   []int
	TaskResponseTimes  []int
	TaskExecutionTimes []int

	Snapshots []StatsSnapshot
}

// NewStatistics constructs an empty Statistics bucket for one
// (cell, hardware type) pair.
func NewStatistics(cellID, hwType int) *Statistics {
	return &Statistics{CellID: cellID, HWType: hwType}
}

// RecordTaskCompletion appends waiting/response/execution times for one
// completed task (grounded on statistics.py:record_task_completion).
func (s *Statistics) RecordTaskCompletion(arrivalTime, startTime, completionTime int) {
	s.TaskWaitingTimes = append(s.TaskWaitingTimes, startTime-arrivalTime)
	s.TaskResponseTimes = append(s.TaskResponseTimes, completionTime-arrivalTime)
	s.TaskExecutionTimes = append(s.TaskExecutionTimes, completionTime-startTime)
}

// AddEnergy accumulates one timestep's energy consumption. Total energy
// is monotonically non-decreasing across a run (spec §8, property 7).
func (s *Statistics) AddEnergy(gwh float64) {
	if gwh < 0 {
		invariantViolation("statistics: negative energy delta %f", gwh)
	}
	s.TotalEnergy += gwh
}

// Snapshot builds and appends an owned copy of the current aggregate
// state at time t, computed from the live resource/network state passed
// in by the caller (spec §9: "a dedicated snapshot method returning an
// owned copy for the result stream").
func (s *Statistics) Snapshot(t int, resources []*Resource, net *Network) StatsSnapshot {
	snap := StatsSnapshot{
		TimeStep:      t,
		AcceptedTasks: s.AcceptedTasks,
		RejectedTasks: s.RejectedTasks,
		TotalEnergy:   s.TotalEnergy,
	}

	activeServers := 0
	for _, r := range resources {
		snap.TotalProcessors += r.TotalProcessors
		snap.AvailableProcessors += r.AvailableProcessors
		snap.TotalMemory += r.TotalMemory
		snap.AvailableMemory += r.AvailableMemory
		snap.TotalStorage += r.TotalStorage
		snap.AvailableStorage += r.AvailableStorage
		snap.TotalAccelerators += r.TotalAccelerators
		snap.AvailableAccelerators += r.AvailableAccelerators
		snap.RunningVMs += r.RunningVMs

		if r.Active {
			activeServers++
			snap.ActualUtilizedProcessorsOverActive += r.ActualUtilizedProcessors
			snap.ActualUtilizedMemoryOverActive += r.ActualUtilizedMemory
			snap.ActualUtilizedStorageOverActive += r.ActualUtilizedStorage
		}
	}
	snap.ActiveServers = activeServers
	snap.UtilizedProcessors = snap.TotalProcessors - snap.AvailableProcessors
	snap.UtilizedMemory = snap.TotalMemory - snap.AvailableMemory
	snap.UtilizedStorage = snap.TotalStorage - snap.AvailableStorage
	snap.UtilizedAccelerators = snap.TotalAccelerators - snap.AvailableAccelerators

	if net != nil {
		snap.TotalNetwork = net.TotalBandwidth
		snap.AvailableNetwork = net.AvailableBandwidth
		snap.UtilizedNetwork = net.TotalBandwidth - net.AvailableBandwidth
	}

	s.Snapshots = append(s.Snapshots, snap)
	return snap
}
