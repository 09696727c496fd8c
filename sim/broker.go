package sim

// Broker is the shared contract for the three admission mechanisms
// (Traditional, SOSM, Improved SOSM). The Simulator holds one Broker per
// Cell behind this interface and never type-switches on the concrete
// implementation (spec §9: "model as an interface/sum type").
type Broker interface {
	// Deploy attempts to admit task onto this broker's cell. It never
	// returns an error for capacity exhaustion — that outcome is recorded
	// only as stats.RejectedTasks++ (spec §7). A returned error indicates
	// a configuration problem discovered lazily (e.g. an unmanaged
	// implementation type), which callers should treat as fatal.
	Deploy(task *Task) error

	// Timestep runs one simulation second of physics: utilization
	// accumulation, power draw, instruction reduction, and completion
	// detection, for every in-flight task on this broker's cell.
	Timestep(t int)

	// UpdateStateInfo polls assessment/suitability indices at every
	// hierarchy level whose poll interval divides t. A no-op for
	// Traditional.
	UpdateStateInfo(t int)

	// Mechanism returns the broker's canonical name for results output:
	// "Traditional", "SOSM", or "Improved SOSM".
	Mechanism() string
}

// BrokerConstructor builds a Broker for one cell from its resources,
// network, stats buckets, parsed configuration, and a shared RNG.
type BrokerConstructor func(cell *Cell, cfg BrokerConfig, rng *PartitionedRNG) (Broker, error)

// brokerRegistry holds constructors registered by sub-packages via
// init(), keeping sim free of direct imports of sim/sosm, sim/improved
// (doc.go's "Architecture" section: avoids an import cycle between the
// core package and its pluggable broker implementations).
var brokerRegistry = map[string]BrokerConstructor{}

// RegisterBroker makes a broker mechanism available under name. Intended
// to be called from a sub-package's init(), mirroring the teacher's
// kv/latency plugin registration pattern.
func RegisterBroker(name string, ctor BrokerConstructor) {
	brokerRegistry[name] = ctor
}

// NewBroker looks up and constructs the broker mechanism named by
// cfg.Mechanism. Returns a ConfigMismatch if the mechanism was never
// registered (its implementing package was not blank-imported) or is
// otherwise unknown.
func NewBroker(cell *Cell, cfg BrokerConfig, rng *PartitionedRNG) (Broker, error) {
	ctor, ok := brokerRegistry[cfg.Mechanism]
	if !ok {
		return nil, &ConfigMismatch{
			Mechanism: cfg.Mechanism,
			Msg:       "unregistered resource allocation mechanism (implementing package not imported)",
		}
	}
	return ctor(cell, cfg, rng)
}

func init() {
	RegisterBroker("Traditional", newTraditionalBroker)
}
