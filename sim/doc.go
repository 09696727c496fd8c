// Package sim provides the core discrete-time simulation engine for the
// cell-sim datacenter admission simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - task.go: Task lifecycle (Pending -> Admitted -> Running -> Completed|Rejected)
//   - resource.go, network.go: the physical substrate a broker allocates from
//   - broker.go: the Broker interface shared by Traditional/SOSM/Improved SOSM
//   - cell.go: the container that owns resources, network, stats, and a broker
//   - simulator.go: the fixed-step time loop (admit, timestep, poll, snapshot)
//
// # Architecture
//
// The sim package defines the data model and the Broker extension point;
// concrete broker implementations live in sub-packages that register
// themselves via init() so the simulator package never imports them
// directly:
//   - sim/sosm: the three-level vRM/pSwitch/pRouter hierarchy
//   - sim/improved: the migration-capable Improved SOSM variant
//   - sim/gateway: cross-cell weighted first-fit admission
//
// A binary that wants SOSM or Improved SOSM support blank-imports the
// matching sub-package; cmd/root.go does this for the shipped CLI.
package sim
