package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetworkProbeDeployUnload(t *testing.T) {
	n := NewNetwork(10)

	require.True(t, n.Probe(10))
	require.NoError(t, n.Deploy("task-a", 10))
	require.False(t, n.Probe(1))

	err := n.Deploy("task-b", 1)
	require.Error(t, err)

	require.NoError(t, n.Unload("task-a"))
	require.InDelta(t, 10, n.AvailableBandwidth, 1e-9)
}

func TestNetworkUnloadUnknownTaskFails(t *testing.T) {
	n := NewNetwork(10)
	require.Error(t, n.Unload("never-deployed"))
}

func TestNetworkDemandIsWholeTaskNotScaledByNumVMs(t *testing.T) {
	// A multi-VM task reserves its NetworkBandwidth once, not once per VM
	// (§9's resolution: network demand is a whole-task quantity).
	n := NewNetwork(5)
	task, err := NewTask("t1", 0, 4, []int{0}, []int{0, 0, 0, 0})
	require.NoError(t, err)
	task.NetworkBandwidth = 5

	require.NoError(t, n.Deploy(task.ID, task.NetworkBandwidth))
	require.InDelta(t, 0, n.AvailableBandwidth, 1e-9)
}

func TestNetworkRunningQuantities(t *testing.T) {
	n := NewNetwork(10)
	n.IncrementRunningQuantities(4)
	require.InDelta(t, 4, n.RunningUtil, 1e-9)
	n.InitializeRunningQuantities()
	require.Zero(t, n.RunningUtil)
}
