package sim

import "fmt"

// BuildSimulator wires a fully loaded CellConfig/BrokerConfig into a
// runnable Simulator: one Cell (with its Resource arenas and
// PowerModels) and one attached Broker per configured cell, plus the
// caller-supplied per-cell arrival streams (already split across cells
// and stable-sorted by ArrivalTime — see cmd/run.go's assignCellArrivals,
// which uses sim/gateway, for the multi-cell split and
// StableSortByArrival for the sort). Each cell gets its own
// PartitionedRNG derived from seed XOR the cell's ID, so adding or
// removing a cell never perturbs another cell's tie-break sequence.
func BuildSimulator(cellCfg *CellConfig, brokerCfg *BrokerConfig, arrivals [][]*Task, seed int64, fallback *PowerPreset) (*Simulator, error) {
	if len(arrivals) != len(cellCfg.Cells) {
		return nil, fmt.Errorf("build simulator: %d arrival streams for %d cells", len(arrivals), len(cellCfg.Cells))
	}

	cells := make([]*Cell, len(cellCfg.Cells))
	for i, cc := range cellCfg.Cells {
		cell, err := BuildCell(cc, fallback)
		if err != nil {
			return nil, err
		}
		rng := NewPartitionedRNG(NewSimulationKey(seed ^ int64(cc.CellID)))
		broker, err := NewBroker(cell, *brokerCfg, rng)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", cc.CellID, err)
		}
		cell.AttachBroker(broker)
		cells[i] = cell
	}

	return NewSimulator(cells, arrivals, cellCfg.MaximumSimulationTime, cellCfg.UpdateInterval, brokerCfg.Mechanism), nil
}
