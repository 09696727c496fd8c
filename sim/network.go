package sim

// Network models the cell's shared network fabric: a single pooled
// bandwidth capacity that every deployed task draws from for the whole
// lifetime of its placement, independent of how many VMs the task spans
// (spec §9, network demand is a whole-task quantity, never multiplied by
// num_vms — grounded on network.py and sosm_broker.py's use of
// get_req_pmns()[2]).
type Network struct {
	TotalBandwidth     float64
	AvailableBandwidth float64

	// RunningUtil is the per-step aggregate of network activity across
	// all in-flight tasks, reset by InitializeRunningQuantities and
	// filled in by IncrementRunningQuantities.
	RunningUtil float64

	deployed map[string]float64
}

// NewNetwork constructs a Network at full availability.
func NewNetwork(totalBandwidth float64) *Network {
	return &Network{
		TotalBandwidth:     totalBandwidth,
		AvailableBandwidth: totalBandwidth,
		deployed:           make(map[string]float64),
	}
}

// Probe reports whether reqBandwidth is currently available.
func (n *Network) Probe(reqBandwidth float64) bool {
	return n.AvailableBandwidth >= reqBandwidth
}

// Deploy reserves reqBandwidth for taskID for the duration of its
// placement. Requires Probe to have already succeeded.
func (n *Network) Deploy(taskID string, reqBandwidth float64) error {
	if !n.Probe(reqBandwidth) {
		return &InputError{Field: "network", Msg: "PROBE_FAIL: insufficient bandwidth"}
	}
	n.AvailableBandwidth -= reqBandwidth
	n.deployed[taskID] = reqBandwidth
	return nil
}

// InitializeRunningQuantities zeroes the per-step network aggregate.
func (n *Network) InitializeRunningQuantities() {
	n.RunningUtil = 0
}

// IncrementRunningQuantities adds one task's whole-task network activity
// to this step's aggregate.
func (n *Network) IncrementRunningQuantities(delta float64) {
	n.RunningUtil += delta
}

// Unload releases taskID's bandwidth reservation.
func (n *Network) Unload(taskID string) error {
	amount, ok := n.deployed[taskID]
	if !ok {
		return &InputError{Field: "network", Msg: "NOT_DEPLOYED: task not present"}
	}
	n.AvailableBandwidth += amount
	delete(n.deployed, taskID)

	if n.AvailableBandwidth > n.TotalBandwidth {
		invariantViolation("network: available bandwidth exceeds total after unload")
	}
	return nil
}
