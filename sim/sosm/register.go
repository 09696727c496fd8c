package sosm

import "github.com/cloudlightning/cellsim/sim"

// init registers the SOSM mechanism with the core sim package without
// sim importing this package directly, mirroring the teacher's
// sim/kv and sim/latency registration pattern: callers blank-import
// this package to make "SOSM" available to sim.NewBroker.
func init() {
	sim.RegisterBroker("SOSM", newSOSMBroker)
}
