package gateway

import (
	"testing"

	"github.com/cloudlightning/cellsim/sim"
	"github.com/stretchr/testify/require"
)

func makeTask(t *testing.T, numVMs int, procPerVM float64, impls []int, accPerImpl []int) *sim.Task {
	t.Helper()
	task, err := sim.NewTask("gw-task", 0, numVMs, impls, accPerImpl)
	require.NoError(t, err)
	task.ProcessorsPerVM = procPerVM
	task.MemoryPerVM = 1
	task.StoragePerVM = 1
	task.NetworkBandwidth = 1
	return task
}

func TestGatewayAllocatePicksHighestScoringCell(t *testing.T) {
	cells := []CellAvailability{
		{
			CellID:                0,
			AvailableProcessors:   map[int]float64{0: 4},
			AvailableMemory:       map[int]float64{0: 16},
			AvailableStorage:      map[int]float64{0: 100},
			AvailableAccelerators: map[int]int{0: 0},
			AvailableNetwork:      10,
		},
		{
			CellID:                1,
			AvailableProcessors:   map[int]float64{0: 40},
			AvailableMemory:       map[int]float64{0: 160},
			AvailableStorage:      map[int]float64{0: 1000},
			AvailableAccelerators: map[int]int{0: 0},
			AvailableNetwork:      100,
		},
	}
	gw := NewGateway(cells, Weights{})
	task := makeTask(t, 1, 2, []int{0}, []int{0})

	decision := gw.Allocate(task)
	require.True(t, decision.Success)
	// Cell 1 has proportionally far more headroom per unit requested, so
	// its weighted score wins outright.
	require.Equal(t, 1, decision.CellID)
	require.Equal(t, 0, decision.HWTypeID)
	require.Len(t, decision.VMPlacements, 1)
}

func TestGatewayAllocateReservesAgainstCache(t *testing.T) {
	cells := []CellAvailability{{
		CellID:                0,
		AvailableProcessors:   map[int]float64{0: 4},
		AvailableMemory:       map[int]float64{0: 16},
		AvailableStorage:      map[int]float64{0: 100},
		AvailableAccelerators: map[int]int{0: 0},
		AvailableNetwork:      10,
	}}
	gw := NewGateway(cells, Weights{})
	task := makeTask(t, 1, 2, []int{0}, []int{0})

	first := gw.Allocate(task)
	require.True(t, first.Success)

	// The cache now has only 2 processors left (4 - 2); a second
	// identical request for 2 still fits exactly.
	second := gw.Allocate(task)
	require.True(t, second.Success)

	// A third request for the same amount can no longer fit: capacity
	// exhausted.
	third := gw.Allocate(task)
	require.False(t, third.Success)
	require.Equal(t, -1, third.CellID)
}

func TestGatewayAllocateNoCellsReturnsFailure(t *testing.T) {
	gw := NewGateway(nil, Weights{})
	task := makeTask(t, 1, 1, []int{0}, []int{0})

	decision := gw.Allocate(task)
	require.False(t, decision.Success)
	require.Equal(t, -1, decision.CellID)
	require.NotEmpty(t, decision.Reason)
}

func TestGatewayAllocateSkipsHWTypeNotOfferedByCell(t *testing.T) {
	cells := []CellAvailability{{
		CellID:                0,
		AvailableProcessors:   map[int]float64{0: 4}, // only hw type 0, not 1
		AvailableMemory:       map[int]float64{0: 16},
		AvailableStorage:      map[int]float64{0: 100},
		AvailableAccelerators: map[int]int{0: 0},
		AvailableNetwork:      10,
	}}
	gw := NewGateway(cells, Weights{})
	task := makeTask(t, 1, 2, []int{1}, []int{0})

	decision := gw.Allocate(task)
	require.False(t, decision.Success)
}

func TestWeightsNormalizedDefaultsToEqualWeighting(t *testing.T) {
	w := Weights{}.normalized()
	require.Equal(t, Weights{Processors: 1, Memory: 1, Storage: 1, Accelerators: 1, Network: 1}, w)

	custom := Weights{Processors: 2}.normalized()
	require.Equal(t, Weights{Processors: 2}, custom)
}
