package sim

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// PowerPreset is a named bundle of power-curve parameters loadable from
// cmd/presets.yaml via `--power-preset NAME`, so a cell config need not
// repeat raw power-curve literals for common server classes (SPEC_FULL
// §2 "Configuration").
type PowerPreset struct {
	CPUModelType int       `yaml:"cpu_model_type"`
	CPUBins      []float64 `yaml:"cpu_bins"`
	CPUValues    []float64 `yaml:"cpu_values"`
	CPUIdle      float64   `yaml:"cpu_idle_power"`
	CPUMax       float64   `yaml:"cpu_max_power"`
	CPUSleep     float64   `yaml:"cpu_sleep_power"`
	AccIdle      float64   `yaml:"acc_idle_power"`
	AccMax       float64   `yaml:"acc_max_power"`
	AccSleep     float64   `yaml:"acc_sleep_power"`
}

// BuildPowerModel constructs a PowerModel for one hardware type from its
// HWTypeConfig, falling back to preset's curve when hw.CPUBins/CPUValues
// are empty and hw.CPUModelType is not one of the negative closed-form
// types (an `InputError`-free way to point a hw type at a named preset
// instead of repeating literals). A closed-form hw type keeps its own
// idle/max curve even when a preset is given.
func BuildPowerModel(hw HWTypeConfig, preset *PowerPreset) (*PowerModel, error) {
	bins, values, modelType := hw.CPUBins, hw.CPUValues, hw.CPUModelType
	idle, max, sleep := hw.CPUIdlePower, hw.CPUMaxPower, hw.CPUSleepPower
	accIdle, accMax, accSleep := hw.AccIdlePower, hw.AccMaxPower, hw.AccSleepPower

	if preset != nil && len(bins) == 0 && modelType >= 0 {
		bins, values, modelType = preset.CPUBins, preset.CPUValues, preset.CPUModelType
		idle, max, sleep = preset.CPUIdle, preset.CPUMax, preset.CPUSleep
		accIdle, accMax, accSleep = preset.AccIdle, preset.AccMax, preset.AccSleep
	}

	cfg := PowerModel{
		CPUModelType:   modelType,
		CPUPMin:        idle,
		CPUPMax:        max,
		CPUC:           sleep,
		NumPoints:      len(bins),
		CPUBins:        bins,
		CPUP:           values,
		HasAccelerator: hw.Accelerators != 0,
		AccPMin:        accIdle,
		AccPMax:        accMax,
		AccC:           accSleep,
	}
	return NewPowerModel(cfg)
}

// BuildCell constructs a Cell and its Resource arenas and PowerModels
// from a CellInputConfig, but does not attach a Broker — the caller does
// that once it knows the broker mechanism and has a PartitionedRNG.
// fallback, when non-nil, supplies a power curve for any hw type whose
// CPUBins are empty and whose CPUModelType is not negative (the `--power-preset NAME` CLI flag, spec §2
// "Configuration": "a cell config need not repeat raw power-curve
// literals").
func BuildCell(cfg CellInputConfig, fallback *PowerPreset) (*Cell, error) {
	cell := NewCell(cfg.CellID, cfg.Bandwidth, len(cfg.HWTypes))
	for t, hw := range cfg.HWTypes {
		model, err := BuildPowerModel(hw, fallback)
		if err != nil {
			return nil, fmt.Errorf("cell %d hw type %d: %w", cfg.CellID, hw.HWTypeID, err)
		}
		cell.PowerModels[t] = model

		rcfg := ResourceConfig{
			TotalProcessors:          hw.CPUsPerServer,
			TotalMemory:              hw.MemoryPerServer,
			TotalStorage:             hw.StoragePerServer,
			TotalAccelerators:        hw.NumberOfAcceleratorsPer * boolToInt(hw.Accelerators != 0),
			ComputeCapabilityPerProc: hw.ComputeCapability,
			ComputeCapabilityPerAcc:  hw.AcceleratorComputeCapable,
			OvercommitmentProcessors: hw.ProcessorsOvercommitment,
		}
		for i := 0; i < hw.NumberOfServers; i++ {
			cell.AddResource(t, NewResource(i, t, rcfg))
		}
	}
	return cell, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// BuildTasks converts a TaskStreamConfig into Task values in input
// order, assigning each a generated ID when the input doesn't carry one
// (spec §6 task input has no id field). Ties in ArrivalTime preserve
// input order, satisfying spec §5 "Tasks with equal arrival_time are
// admitted in input order" once the caller stable-sorts by ArrivalTime.
func BuildTasks(cfg *TaskStreamConfig) ([]*Task, error) {
	tasks := make([]*Task, 0, len(cfg.Tasks))
	for i, in := range cfg.Tasks {
		accPerImpl := make([]int, len(in.AvailableImplementations))
		for j := range accPerImpl {
			accPerImpl[j] = in.AcceleratorsPerVM
		}
		task, err := NewTask(uuid.NewString(), in.ArrivalTime, in.NumVMs, in.AvailableImplementations, accPerImpl)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		task.ProcessorsPerVM = in.ProcessorsPerVM
		task.MemoryPerVM = in.MemoryPerVM
		task.NetworkBandwidth = in.NetworkBandwidth
		task.StoragePerVM = in.StoragePerVM
		task.TotalInstructions = in.TotalInstructions
		task.RemainingInstructions = in.TotalInstructions
		task.ProcessorUtilization = in.ProcessorUtilization
		task.MemoryUtilization = in.MemoryUtilization
		task.StorageUtilization = in.StorageUtilization
		task.AcceleratorUtilization = in.AcceleratorUtilization
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// StableSortByArrival reorders tasks by ArrivalTime using a stable sort
// so equal-arrival ties keep their original relative order (spec §5).
func StableSortByArrival(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].ArrivalTime < tasks[j].ArrivalTime
	})
}
