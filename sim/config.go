package sim

import (
	"encoding/json"
	"fmt"
	"os"
)

// HWTypeConfig is one "HW types[]" entry of the cell input JSON (spec §6).
type HWTypeConfig struct {
	HWTypeID                  int       `json:"HW type ID"`
	NumberOfServers           int       `json:"Number of servers"`
	CPUsPerServer             float64   `json:"Number of CPUs per server"`
	MemoryPerServer           float64   `json:"Memory per server"`
	StoragePerServer          float64   `json:"Storage per server"`
	ProcessorsOvercommitment  float64   `json:"Processors overcommitment ratio"`
	MemoryOvercommitment      float64   `json:"Memory overcommitment ratio"`
	ComputeCapability         float64   `json:"Compute capability"`
	Accelerators              int       `json:"Accelerators"`
	NumberOfAcceleratorsPer   int       `json:"Number of accelerators per server"`
	AcceleratorComputeCapable float64   `json:"Accelerator compute capability"`
	CPUModelType              int       `json:"Type of CPU model"`
	CPUBins                   []float64 `json:"CPU power bins"`
	CPUValues                 []float64 `json:"CPU power values"`
	CPUIdlePower              float64   `json:"CPU idle power"`
	CPUMaxPower               float64   `json:"CPU max power"`
	CPUSleepPower             float64   `json:"CPU sleep power"`
	AccIdlePower              float64   `json:"Accelerator idle power"`
	AccMaxPower               float64   `json:"Accelerator max power"`
	AccSleepPower             float64   `json:"Accelerator sleep power"`
}

// CellInputConfig is one "Cells[]" entry of the cell input JSON.
type CellInputConfig struct {
	CellID          int            `json:"Cell ID"`
	Bandwidth       float64        `json:"Cell interconnection bandwidth"`
	NumberOfHWTypes int            `json:"Number of hardware(HW) types"`
	HWTypes         []HWTypeConfig `json:"HW types"`
}

// CellConfig is the top-level cell input JSON document (spec §6).
type CellConfig struct {
	MaximumSimulationTime int               `json:"Maximum simulation time"`
	UpdateInterval        int               `json:"Update interval"`
	NumberOfCells         int               `json:"Number of Cells"`
	Cells                 []CellInputConfig `json:"Cells"`
}

// PerCellBrokerConfig is one "Brokers[cell_index]" entry of the broker
// input JSON, required for the SOSM-family mechanisms.
type PerCellBrokerConfig struct {
	NumberOfFunctions   int       `json:"Number of functions"`
	Weights             []float64 `json:"Weights of functions"`
	ResourcesPerVRM     int       `json:"Number of Resources per vRM"`
	VRMsPerPSwitch      int       `json:"Number of vRMs per pSwitch"`
	PSwitchPerPRouter   int       `json:"Number of pSwitch per pRouter"`
	PollIntervalCell    int       `json:"Poll interval Cell Manager"`
	PollIntervalPRouter int       `json:"Poll interval pRouter"`
	PollIntervalPSwitch int       `json:"Poll interval pSwitch"`
	PollIntervalVRM     int       `json:"Poll interval vRM"`
	DeploymentStrategy  int       `json:"vRM deployment strategy"`
}

// BrokerConfig is the top-level broker input JSON document (spec §6).
type BrokerConfig struct {
	Mechanism string                `json:"Resource allocation mechanism"`
	Brokers   []PerCellBrokerConfig `json:"Brokers"`
}

// TaskInputConfig is one "tasks[]" entry of the task input JSON.
type TaskInputConfig struct {
	ProcessorsPerVM          float64 `json:"processors_per_vm"`
	MemoryPerVM              float64 `json:"memory_per_vm"`
	NetworkBandwidth         float64 `json:"network_bandwidth"`
	StoragePerVM             float64 `json:"storage_per_vm"`
	AcceleratorsPerVM        int     `json:"accelerators_per_vm"`
	NumVMs                   int     `json:"num_vms"`
	TotalInstructions        float64 `json:"total_instructions"`
	ProcessorUtilization     float64 `json:"processor_utilization"`
	MemoryUtilization        float64 `json:"memory_utilization"`
	StorageUtilization       float64 `json:"storage_utilization"`
	AcceleratorUtilization   float64 `json:"accelerator_utilization"`
	AvailableImplementations []int   `json:"available_implementations"`
	ArrivalTime              int     `json:"arrival_time"`
}

// TaskStreamConfig is the top-level task input JSON document.
type TaskStreamConfig struct {
	Tasks []TaskInputConfig `json:"tasks"`
}

// LoadCellConfig reads and strictly validates a cell input JSON file.
// Malformed or missing required fields surface as InputError (spec §7).
func LoadCellConfig(path string) (*CellConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cell config %s: %w", path, err)
	}
	var cfg CellConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &InputError{Field: "cell-data", Msg: err.Error()}
	}
	if cfg.NumberOfCells <= 0 || len(cfg.Cells) != cfg.NumberOfCells {
		return nil, &InputError{Field: "Number of Cells", Msg: "must be > 0 and match len(Cells)"}
	}
	if cfg.UpdateInterval < 1 {
		return nil, &InputError{Field: "Update interval", Msg: "must be >= 1"}
	}
	for _, cell := range cfg.Cells {
		if len(cell.HWTypes) != cell.NumberOfHWTypes {
			return nil, &InputError{Field: "HW types", Msg: "length must match Number of hardware(HW) types"}
		}
		for _, hw := range cell.HWTypes {
			if hw.NumberOfServers <= 0 {
				return nil, &InputError{Field: "Number of servers", Msg: "must be > 0"}
			}
			if hw.CPUModelType < -5 || hw.CPUModelType > 3 {
				return nil, &InputError{Field: "Type of CPU model", Msg: "must be in [-5, 3]"}
			}
		}
	}
	return &cfg, nil
}

// LoadBrokerConfig reads and validates a broker input JSON file, checking
// that SOSM-family mechanisms carry the per-cell parameters they require
// (spec §7's ConfigMismatch category).
func LoadBrokerConfig(path string, numCells int) (*BrokerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading broker config %s: %w", path, err)
	}
	var cfg BrokerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &InputError{Field: "broker-data", Msg: err.Error()}
	}
	switch cfg.Mechanism {
	case "Traditional", "SOSM", "Improved SOSM":
	default:
		return nil, &InputError{Field: "Resource allocation mechanism", Msg: "must be one of Traditional, SOSM, Improved SOSM"}
	}
	if cfg.Mechanism != "Traditional" {
		if len(cfg.Brokers) != numCells {
			return nil, &ConfigMismatch{Mechanism: cfg.Mechanism, Msg: "missing per-cell Brokers[] entries"}
		}
		for _, b := range cfg.Brokers {
			if b.NumberOfFunctions <= 0 || len(b.Weights) != b.NumberOfFunctions {
				return nil, &ConfigMismatch{Mechanism: cfg.Mechanism, Msg: "Weights of functions length must match Number of functions"}
			}
			if b.ResourcesPerVRM <= 0 || b.VRMsPerPSwitch <= 0 || b.PSwitchPerPRouter <= 0 {
				return nil, &ConfigMismatch{Mechanism: cfg.Mechanism, Msg: "hierarchy fan-out parameters must be > 0"}
			}
			if b.DeploymentStrategy != 1 && b.DeploymentStrategy != 2 {
				return nil, &ConfigMismatch{Mechanism: cfg.Mechanism, Msg: "vRM deployment strategy must be 1 or 2"}
			}
		}
	}
	return &cfg, nil
}

// LoadTaskConfig reads a task input JSON file. A missing path (empty
// string) is not an error — it yields an empty stream (spec §6's
// "--task-data PATH (optional; empty stream if omitted)").
func LoadTaskConfig(path string) (*TaskStreamConfig, error) {
	if path == "" {
		return &TaskStreamConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task config %s: %w", path, err)
	}
	var cfg TaskStreamConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &InputError{Field: "task-data", Msg: err.Error()}
	}
	for i, task := range cfg.Tasks {
		if task.NumVMs < 1 {
			return nil, &InputError{Field: "num_vms", Msg: fmt.Sprintf("task %d: must be >= 1", i)}
		}
		if len(task.AvailableImplementations) == 0 {
			return nil, &InputError{Field: "available_implementations", Msg: fmt.Sprintf("task %d: must be non-empty", i)}
		}
	}
	return &cfg, nil
}
