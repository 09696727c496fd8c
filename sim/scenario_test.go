package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSingleTypeCell constructs a one-hardware-type Cell with a
// Traditional broker and a linear power model, sized to host numServers
// identical servers.
func buildSingleTypeCell(t *testing.T, numServers int, procPerServer float64) *Cell {
	t.Helper()
	cell := NewCell(0, 1000, 1)
	for i := 0; i < numServers; i++ {
		cell.AddResource(0, NewResource(i, 0, ResourceConfig{
			TotalProcessors:          procPerServer,
			TotalMemory:              64,
			TotalStorage:             500,
			TotalAccelerators:        0,
			ComputeCapabilityPerProc: 10,
			OvercommitmentProcessors: 1,
		}))
	}
	model, err := NewPowerModel(PowerModel{CPUModelType: -1, CPUPMin: 100, CPUPMax: 300})
	require.NoError(t, err)
	cell.PowerModels[0] = model

	broker, err := NewBroker(cell, BrokerConfig{Mechanism: "Traditional"}, nil)
	require.NoError(t, err)
	cell.AttachBroker(broker)
	return cell
}

// TestScenarioSingleTaskAcceptedAndCompletes grounds spec.md's S1: a
// single CPU task that fits comfortably is accepted, co-located on one
// server, reserves network bandwidth, and eventually completes with
// positive recorded energy.
func TestScenarioSingleTaskAcceptedAndCompletes(t *testing.T) {
	cell := buildSingleTypeCell(t, 1, 4)

	task, err := NewTask("s1-task", 0, 1, []int{0}, []int{0})
	require.NoError(t, err)
	task.ProcessorsPerVM = 2
	task.MemoryPerVM = 4
	task.StoragePerVM = 10
	task.NetworkBandwidth = 5
	task.ProcessorUtilization = 1.0
	task.TotalInstructions = 20
	task.RemainingInstructions = 20

	sim := NewSimulator([]*Cell{cell}, [][]*Task{{task}}, 10, 1, "Traditional")
	results := sim.Run()

	require.Equal(t, TaskCompleted, task.State)
	require.Equal(t, 0, task.AdmittedAt)
	require.LessOrEqual(t, task.CompletedAt, 10)
	require.Equal(t, 1, results.TotalSubmittedTasks)

	snap := cell.Stats[0].Snapshots[len(cell.Stats[0].Snapshots)-1]
	require.Equal(t, 1, snap.AcceptedTasks)
	require.Zero(t, snap.RejectedTasks)
	require.Greater(t, snap.TotalEnergy, 0.0)
	// The task is gone from in-flight and its server is fully released.
	require.Empty(t, cell.InFlight)
	require.InDelta(t, 4, cell.Resources[0][0].AvailableProcessors, 1e-9)
	require.InDelta(t, 1000, cell.Network.AvailableBandwidth, 1e-9)
}

// TestScenarioInsufficientCapacityRollsBackAndRejects grounds spec.md's
// S2: a multi-VM task that can only partially place must be rejected as
// a whole, with every partial reservation rolled back.
func TestScenarioInsufficientCapacityRollsBackAndRejects(t *testing.T) {
	cell := buildSingleTypeCell(t, 1, 4) // one 4-processor server total

	task, err := NewTask("s2-task", 0, 2, []int{0}, []int{0})
	require.NoError(t, err)
	task.ProcessorsPerVM = 3 // first VM fits (4>=3), second does not (1<3)
	task.MemoryPerVM = 1
	task.StoragePerVM = 1
	task.NetworkBandwidth = 5
	task.ProcessorUtilization = 1.0
	task.TotalInstructions = 10
	task.RemainingInstructions = 10

	sim := NewSimulator([]*Cell{cell}, [][]*Task{{task}}, 3, 1, "Traditional")
	_ = sim.Run()

	require.Equal(t, TaskRejected, task.State)
	require.Empty(t, cell.InFlight)
	// Rollback must have restored full capacity: no VM placement survives
	// a rejected task.
	require.InDelta(t, 4, cell.Resources[0][0].AvailableProcessors, 1e-9)
	require.InDelta(t, 1000, cell.Network.AvailableBandwidth, 1e-9)
	require.Equal(t, 0, cell.Resources[0][0].RunningVMs)

	snap := cell.Stats[0].Snapshots[len(cell.Stats[0].Snapshots)-1]
	require.Equal(t, 1, snap.RejectedTasks)
	require.Zero(t, snap.AcceptedTasks)
}

// TestScenarioEndToEndConservation grounds spec.md's S6: over a longer
// run with a mix of admittable and oversized tasks, every submitted task
// ends up either accepted+completed or rejected, never both and never
// neither, and the cell returns to a quiescent state (no invariant
// violation fires along the way; NewTask/ReduceInstructions/Unload would
// panic otherwise).
func TestScenarioEndToEndConservation(t *testing.T) {
	cell := buildSingleTypeCell(t, 2, 4)

	var tasks []*Task
	for i := 0; i < 6; i++ {
		procPerVM := 2.0
		if i%3 == 0 {
			procPerVM = 10 // deliberately oversized, must reject
		}
		task, err := NewTask(
			"task-"+string(rune('a'+i)),
			i,
			1,
			[]int{0},
			[]int{0},
		)
		require.NoError(t, err)
		task.ProcessorsPerVM = procPerVM
		task.MemoryPerVM = 1
		task.StoragePerVM = 1
		task.NetworkBandwidth = 1
		task.ProcessorUtilization = 1.0
		task.TotalInstructions = 5
		task.RemainingInstructions = 5
		tasks = append(tasks, task)
	}

	sim := NewSimulator([]*Cell{cell}, [][]*Task{tasks}, 20, 1, "Traditional")
	results := sim.Run()

	require.Equal(t, len(tasks), results.TotalSubmittedTasks)

	accepted, rejected := 0, 0
	for _, task := range tasks {
		switch task.State {
		case TaskCompleted:
			accepted++
		case TaskRejected:
			rejected++
		default:
			t.Fatalf("task %s ended in unexpected state %s", task.ID, task.State)
		}
	}
	require.Equal(t, len(tasks), accepted+rejected)
	require.Greater(t, accepted, 0)
	require.Greater(t, rejected, 0)

	// Quiescent: every completed task was fully unloaded, so no server or
	// network reservation should still be outstanding.
	require.Zero(t, cell.TotalRunningVMs())
	require.InDelta(t, 1000, cell.Network.AvailableBandwidth, 1e-9)
	require.Empty(t, cell.InFlight)

	snap := cell.Stats[0].Snapshots[len(cell.Stats[0].Snapshots)-1]
	require.Equal(t, accepted, snap.AcceptedTasks)
	require.Equal(t, rejected, snap.RejectedTasks)
}
