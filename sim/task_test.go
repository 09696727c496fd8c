package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTaskValidation(t *testing.T) {
	_, err := NewTask("t1", 0, 0, []int{0}, []int{0})
	require.Error(t, err)
	require.IsType(t, &InputError{}, err)

	_, err = NewTask("t2", 0, 1, nil, nil)
	require.Error(t, err)

	_, err = NewTask("t3", 0, 1, []int{0, 1}, []int{0})
	require.Error(t, err)

	task, err := NewTask("t4", 5, 2, []int{0, 1}, []int{0, 1})
	require.NoError(t, err)
	require.Equal(t, TaskPending, task.State)
	require.Equal(t, -1, task.SelectedType)
}

func TestTaskReduceImplAndRemapType(t *testing.T) {
	task, err := NewTask("t1", 0, 1, []int{3, 7}, []int{0, 2})
	require.NoError(t, err)

	task.ReduceImpl(1)
	require.Equal(t, 7, task.SelectedType)
	require.Equal(t, 2, task.AcceleratorsPerVM)

	task.RemapType(9)
	require.Equal(t, 9, task.SelectedType)
}

func TestTaskReduceImplOutOfRangePanics(t *testing.T) {
	task, err := NewTask("t1", 0, 1, []int{3}, []int{0})
	require.NoError(t, err)
	require.Panics(t, func() { task.ReduceImpl(5) })
}

func TestTaskAttachResourcesLengthMismatchPanics(t *testing.T) {
	task, err := NewTask("t1", 0, 2, []int{0}, []int{0})
	require.NoError(t, err)
	require.Panics(t, func() { task.AttachResources([]int{0}) })
}

func TestTaskCurrentUtilization(t *testing.T) {
	task, err := NewTask("t1", 0, 1, []int{0}, []int{4})
	require.NoError(t, err)
	task.ProcessorsPerVM = 2
	task.MemoryPerVM = 8
	task.NetworkBandwidth = 1
	task.StoragePerVM = 0.5
	task.AcceleratorsPerVM = 4
	task.ProcessorUtilization = 0.5
	task.MemoryUtilization = 0.25
	task.StorageUtilization = 0.1
	task.AcceleratorUtilization = 0.75

	u := task.CurrentUtilization()
	require.InDelta(t, 1.0, u.Processor, 1e-9)  // 0.5 * 2
	require.InDelta(t, 2.0, u.Memory, 1e-9)     // 0.25 * 8
	require.InDelta(t, 0.5, u.Network, 1e-9)    // u_p * network_bandwidth, never scaled by num_vms
	require.InDelta(t, 0.05, u.Storage, 1e-9)   // 0.1 * 0.5
	require.InDelta(t, 3.0, u.Accelerator, 1e-9) // 0.75 * 4
}

func TestTaskReduceInstructionsAndCompletion(t *testing.T) {
	task, err := NewTask("t1", 0, 1, []int{0}, []int{0})
	require.NoError(t, err)
	task.AttachResources([]int{0})
	task.TotalInstructions = 10
	task.RemainingInstructions = 10

	task.ReduceInstructions(4)
	require.Equal(t, TaskRunning, task.State)
	require.False(t, task.IsCompleted())

	task.ReduceInstructions(100)
	require.InDelta(t, 0, task.RemainingInstructions, 1e-9)
	require.True(t, task.IsCompleted())
}

func TestTaskIsCompletedBeforePlacementPanics(t *testing.T) {
	task, err := NewTask("t1", 0, 1, []int{0}, []int{0})
	require.NoError(t, err)
	require.Panics(t, func() { task.IsCompleted() })
}

func TestTaskTimings(t *testing.T) {
	task, err := NewTask("t1", 10, 1, []int{0}, []int{0})
	require.NoError(t, err)
	task.AdmittedAt = 12
	task.CompletedAt = 20

	require.Equal(t, 2, task.WaitingTime())
	require.Equal(t, 10, task.ResponseTime())
	require.Equal(t, 8, task.ExecutionTime())
}

func TestTaskMarkRejectedOnlyFromPending(t *testing.T) {
	task, err := NewTask("t1", 0, 1, []int{0}, []int{0})
	require.NoError(t, err)
	task.MarkRejected()
	require.Equal(t, TaskRejected, task.State)
	require.Panics(t, func() { task.MarkRejected() })
}
