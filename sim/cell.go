package sim

// Cell is one independent datacenter: a set of hardware types, each with
// its own server arena and stats bucket, a shared network pool, and one
// admission broker (spec §3). Cells share no state with each other at
// the core level.
type Cell struct {
	ID int

	// Resources is indexed by hardware type, then by server index within
	// that type. This slice is the arena described in spec §9: servers
	// are created once at construction and never destroyed; vRM/pSwitch/
	// pRouter nodes in SOSM-family brokers hold only indices into it.
	Resources [][]*Resource

	Network *Network

	Stats []*Statistics // indexed by hardware type

	// PowerModels is indexed by hardware type; Broker.Timestep consults
	// PowerModels[t] to price every active/idle Resource of that type.
	PowerModels []*PowerModel

	Broker Broker

	InFlight map[string]*Task // task ID -> task, for all ADMITTED/RUNNING tasks
}

// NewCell constructs a Cell with one Resource arena and Statistics
// bucket per hardware type, and an empty in-flight task set. The caller
// attaches a Broker afterward via AttachBroker once it has the cell to
// build hierarchy state from.
func NewCell(id int, bandwidth float64, numHWTypes int) *Cell {
	c := &Cell{
		ID:          id,
		Resources:   make([][]*Resource, numHWTypes),
		Network:     NewNetwork(bandwidth),
		Stats:       make([]*Statistics, numHWTypes),
		PowerModels: make([]*PowerModel, numHWTypes),
		InFlight:    make(map[string]*Task),
	}
	for t := 0; t < numHWTypes; t++ {
		c.Stats[t] = NewStatistics(id, t)
	}
	return c
}

// AddResource appends one server of hardware type t to its arena.
func (c *Cell) AddResource(t int, r *Resource) {
	c.Resources[t] = append(c.Resources[t], r)
}

// AttachBroker sets the admission mechanism for this cell.
func (c *Cell) AttachBroker(b Broker) {
	c.Broker = b
}

// Deploy admits task via the cell's broker and tracks it in InFlight on
// success.
func (c *Cell) Deploy(task *Task) error {
	if err := c.Broker.Deploy(task); err != nil {
		return err
	}
	if task.State == TaskAdmitted {
		c.InFlight[task.ID] = task
	}
	return nil
}

// Complete removes a task from the in-flight set once its broker has
// marked it COMPLETED.
func (c *Cell) Complete(taskID string) {
	delete(c.InFlight, taskID)
}

// UpdateStats appends a snapshot for every hardware type at time t. The
// Simulator calls this only when t mod update_interval == 0, folding
// spec §5's steps (d) Cell.update_stats and (e) snapshot-append into one
// call since this implementation has no per-second stats work beyond
// the snapshot itself.
func (c *Cell) UpdateStats(t int) []StatsSnapshot {
	snapshots := make([]StatsSnapshot, len(c.Stats))
	for hwType, stats := range c.Stats {
		snapshots[hwType] = stats.Snapshot(t, c.Resources[hwType], c.Network)
	}
	return snapshots
}

// TotalRunningVMs sums running_vms across every resource of every
// hardware type, for the Σ invariant in spec §8, property 6.
func (c *Cell) TotalRunningVMs() int {
	total := 0
	for _, arena := range c.Resources {
		for _, r := range arena {
			total += r.RunningVMs
		}
	}
	return total
}
