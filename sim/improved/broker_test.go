package improved

import (
	"testing"

	"github.com/cloudlightning/cellsim/sim"
	"github.com/stretchr/testify/require"
)

func buildMixedAccelCell(t *testing.T) (*sim.Cell, sim.BrokerConfig) {
	t.Helper()
	cfg := sim.CellInputConfig{
		CellID:    0,
		Bandwidth: 1000,
		HWTypes: []sim.HWTypeConfig{
			{
				HWTypeID:                 0,
				NumberOfServers:          1,
				CPUsPerServer:            10,
				MemoryPerServer:          64,
				StoragePerServer:         1000,
				ComputeCapability:        2,
				ProcessorsOvercommitment: 1,
				CPUModelType:             -1,
				CPUIdlePower:             10,
				CPUMaxPower:              50,
			},
			{
				HWTypeID:                  1,
				NumberOfServers:           1,
				CPUsPerServer:             10,
				MemoryPerServer:           64,
				StoragePerServer:          1000,
				ComputeCapability:         2,
				Accelerators:              1,
				NumberOfAcceleratorsPer:   10,
				AcceleratorComputeCapable: 4,
				ProcessorsOvercommitment:  1,
				CPUModelType:              -1,
				CPUIdlePower:              10,
				CPUMaxPower:               50,
				AccIdlePower:              1,
				AccMaxPower:               5,
			},
		},
	}
	cell, err := sim.BuildCell(cfg, nil)
	require.NoError(t, err)

	brokerCfg := sim.BrokerConfig{
		Mechanism: "Improved SOSM",
		Brokers: []sim.PerCellBrokerConfig{{
			NumberOfFunctions:   1,
			Weights:             []float64{1.0},
			ResourcesPerVRM:     1,
			VRMsPerPSwitch:      1,
			PSwitchPerPRouter:   1,
			PollIntervalPRouter: 0,
			PollIntervalPSwitch: 0,
			PollIntervalVRM:     0,
			DeploymentStrategy:  1,
		}},
	}
	return cell, brokerCfg
}

// TestImprovedBrokerRetainsPerTypeNormalizationConstants grounds
// improved_sosm_broker.py's self.cs/self.caccs: the broker must keep the
// occupancy-invariant per-hardware-type constants it computed at
// construction, not just thread them through to the vRMs and discard them.
func TestImprovedBrokerRetainsPerTypeNormalizationConstants(t *testing.T) {
	cell, brokerCfg := buildMixedAccelCell(t)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(1))

	b, err := newImprovedSOSMBroker(cell, brokerCfg, rng)
	require.NoError(t, err)
	broker := b.(*Broker)

	require.Len(t, broker.cs, 2)
	require.Len(t, broker.caccs, 2)
	require.InDelta(t, 2.0/10.0, broker.cs[0], 1e-9)
	require.InDelta(t, 2.0/10.0, broker.cs[1], 1e-9)
	require.Zero(t, broker.caccs[0])
	require.InDelta(t, 4.0, broker.caccs[1], 1e-9)
}

// TestImprovedBrokerDeployWeighsAcceleratorImplementation exercises
// Broker.Deploy's weighted-si tie-break (improved_sosm_broker.py:deploy)
// for a task whose available implementations mix an accelerator-capable
// and a non-accelerator hardware type, previously untested.
func TestImprovedBrokerDeployWeighsAcceleratorImplementation(t *testing.T) {
	cell, brokerCfg := buildMixedAccelCell(t)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(1))

	b, err := newImprovedSOSMBroker(cell, brokerCfg, rng)
	require.NoError(t, err)
	cell.AttachBroker(b)

	task, err := sim.NewTask("mixed-impl", 0, 1, []int{0, 1}, []int{0, 2})
	require.NoError(t, err)
	task.ProcessorsPerVM = 1
	task.MemoryPerVM = 1
	task.StoragePerVM = 1
	task.NetworkBandwidth = 1

	err = cell.Deploy(task)
	require.NoError(t, err)
	require.Equal(t, sim.TaskAdmitted, task.State)
	require.Contains(t, []int{0, 1}, task.SelectedType)
}
