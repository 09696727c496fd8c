package improved

import "github.com/cloudlightning/cellsim/sim"

// init registers Improved SOSM with the core sim package, mirroring the
// teacher's sim/kv and sim/latency registration pattern: callers
// blank-import this package to make "Improved SOSM" available to
// sim.NewBroker.
func init() {
	sim.RegisterBroker("Improved SOSM", newImprovedSOSMBroker)
}
