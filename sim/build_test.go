package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPowerModelFallsBackToPreset(t *testing.T) {
	preset := &PowerPreset{
		CPUModelType: 1,
		CPUBins:      []float64{0, 1},
		CPUValues:    []float64{100, 300},
		CPUIdle:      100,
		CPUMax:       300,
	}
	hw := HWTypeConfig{CPUModelType: 0} // empty CPUBins: should defer to preset
	model, err := BuildPowerModel(hw, preset)
	require.NoError(t, err)
	require.Equal(t, 1, model.CPUModelType)
	require.Equal(t, []float64{0, 1}, model.CPUBins)
}

func TestBuildPowerModelPrefersExplicitCurveOverPreset(t *testing.T) {
	preset := &PowerPreset{CPUModelType: 1, CPUBins: []float64{0, 1}, CPUValues: []float64{100, 300}}
	hw := HWTypeConfig{
		CPUModelType: -1,
		CPUIdlePower: 50,
		CPUMaxPower:  150,
	}
	model, err := BuildPowerModel(hw, preset)
	require.NoError(t, err)
	require.Equal(t, -1, model.CPUModelType)
	require.InDelta(t, 50, model.CPUPMin, 1e-9)
}

func TestBuildCellConstructsArenaPerHWType(t *testing.T) {
	cfg := CellInputConfig{
		CellID:    3,
		Bandwidth: 1000,
		HWTypes: []HWTypeConfig{
			{
				HWTypeID:                 0,
				NumberOfServers:          2,
				CPUsPerServer:            4,
				MemoryPerServer:          16,
				StoragePerServer:         100,
				ComputeCapability:        10,
				ProcessorsOvercommitment: 1,
				CPUModelType:             -1,
				CPUIdlePower:             100,
				CPUMaxPower:              300,
			},
			{
				HWTypeID:                 1,
				NumberOfServers:          1,
				CPUsPerServer:            8,
				MemoryPerServer:          32,
				StoragePerServer:         200,
				ComputeCapability:        20,
				Accelerators:             1,
				NumberOfAcceleratorsPer:  2,
				AcceleratorComputeCapable: 5,
				ProcessorsOvercommitment: 1,
				CPUModelType:             -1,
				CPUIdlePower:             150,
				CPUMaxPower:              400,
			},
		},
	}
	cell, err := BuildCell(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 3, cell.ID)
	require.Len(t, cell.Resources, 2)
	require.Len(t, cell.Resources[0], 2)
	require.Len(t, cell.Resources[1], 1)
	require.Equal(t, 2, cell.Resources[1][0].TotalAccelerators)
	require.NotNil(t, cell.PowerModels[0])
	require.NotNil(t, cell.PowerModels[1])
}

func TestBuildTasksAssignsIDsAndCopiesFields(t *testing.T) {
	cfg := &TaskStreamConfig{Tasks: []TaskInputConfig{
		{
			ProcessorsPerVM:          2,
			MemoryPerVM:              4,
			NetworkBandwidth:         5,
			StoragePerVM:             10,
			AcceleratorsPerVM:        1,
			NumVMs:                   2,
			TotalInstructions:        50,
			ProcessorUtilization:     0.8,
			AvailableImplementations: []int{0, 1},
			ArrivalTime:              3,
		},
	}}
	tasks, err := BuildTasks(cfg)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	require.NotEmpty(t, task.ID)
	require.Equal(t, 3, task.ArrivalTime)
	require.Equal(t, 2, task.NumVMs)
	require.Equal(t, []int{1, 1}, task.AcceleratorsPerImpl)
	require.InDelta(t, 50, task.RemainingInstructions, 1e-9)
}

func TestStableSortByArrivalPreservesInputOrderOnTies(t *testing.T) {
	a, _ := NewTask("a", 5, 1, []int{0}, []int{0})
	b, _ := NewTask("b", 5, 1, []int{0}, []int{0})
	c, _ := NewTask("c", 1, 1, []int{0}, []int{0})
	tasks := []*Task{a, b, c}
	StableSortByArrival(tasks)
	require.Equal(t, []*Task{c, a, b}, tasks)
}
