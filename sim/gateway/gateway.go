// Package gateway implements cross-cell task admission: a stateless,
// per-task weighted first-fit over a cached per-cell availability table
// (spec §1, §5, §6's "REST sidecar" query). Grounded on
// gateway_service.py:find_cell, generalized from the original's
// single-cell-process weighting into an explicit, testable scoring
// function over a snapshot the caller refreshes between calls.
package gateway

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cloudlightning/cellsim/sim"
)

// CellAvailability is one cell's current headroom, aggregated across
// every hardware type it offers implementation t for. The Gateway does
// not read live Resource/Network state itself — spec §5 describes it as
// consulting "a cached per-cell availability table that it itself
// mutates on successful placement" — so callers (the REST sidecar, a
// multi-cell Simulator wrapper) snapshot this from a sim.Cell and refresh
// it on whatever cadence fits their deployment.
type CellAvailability struct {
	CellID int `json:"cell_id"`

	// Per hardware type, matching one of the task's AvailableImplementations.
	AvailableProcessors   map[int]float64 `json:"available_processors"`
	AvailableMemory       map[int]float64 `json:"available_memory"`
	AvailableStorage      map[int]float64 `json:"available_storage"`
	AvailableAccelerators map[int]int     `json:"available_accelerators"`
	AvailableNetwork      float64         `json:"available_network"`

	// Nameplate per-processor/accelerator compute capability, per hardware
	// type. Optional: only needed by EstimateEnergyKWh's dry-run pricing,
	// not by Allocate's own scoring.
	ComputePerProcessor  map[int]float64 `json:"compute_per_processor,omitempty"`
	ComputePerAccelerator map[int]float64 `json:"compute_per_accelerator,omitempty"`
}

// Weights is the configurable weight vector for the gateway's scoring
// function (spec §9 supplement: "the original's multi-factor weight...
// default equal-weighted"). Zero-value Weights is treated as
// equal-weighted by NewGateway.
type Weights struct {
	Processors   float64 `json:"processors"`
	Memory       float64 `json:"memory"`
	Storage      float64 `json:"storage"`
	Accelerators float64 `json:"accelerators"`
	Network      float64 `json:"network"`
}

func (w Weights) normalized() Weights {
	if w == (Weights{}) {
		return Weights{Processors: 1, Memory: 1, Storage: 1, Accelerators: 1, Network: 1}
	}
	return w
}

// Decision is the result of one Gateway.Allocate call, the REST
// sidecar's response shape (spec §6).
type Decision struct {
	RequestID              string        `json:"request_id"`
	Success                bool          `json:"success"`
	CellID                 int           `json:"cell_id"`
	HWTypeID               int           `json:"hw_type_id"`
	VMPlacements           []VMPlacement `json:"vm_placements,omitempty"`
	EstimatedEnergyCostKWh float64       `json:"estimated_energy_cost_kwh,omitempty"`
	Reason                 string        `json:"reason,omitempty"`
}

// VMPlacement records one VM's assigned (cell, hw type, server index).
// The Gateway only ever targets one cell per task, so CellID is
// constant across a Decision's VMPlacements, but the field is kept
// per-VM to match spec §6's literal REST response shape.
type VMPlacement struct {
	VMIndex  int `json:"vm_index"`
	CellID   int `json:"cell_id"`
	HWTypeID int `json:"hw_type_id"`
	// ServerIndex is left at -1: the Gateway only resolves which cell and
	// hardware type a task lands on. Which server within that cell's
	// arena is the destination broker's own placement decision once the
	// task actually reaches it.
	ServerIndex int `json:"server_index"`
}

// Gateway selects, for one task, the cell/hardware-type pair with the
// highest weighted score among cells that can fit the whole task, and
// mutates its own cached table to reflect the reservation (spec §5:
// "stateless between tasks and consults a cached per-cell availability
// table that it itself mutates on successful placement").
type Gateway struct {
	cells   map[int]*CellAvailability
	weights Weights
}

// NewGateway constructs a Gateway over an initial snapshot of per-cell
// availability.
func NewGateway(cells []CellAvailability, weights Weights) *Gateway {
	g := &Gateway{cells: make(map[int]*CellAvailability, len(cells)), weights: weights.normalized()}
	for i := range cells {
		c := cells[i]
		g.cells[c.CellID] = &c
	}
	return g
}

// Refresh replaces the cached entry for one cell, e.g. after a
// Simulator step advances that cell's real resource state.
func (g *Gateway) Refresh(cell CellAvailability) {
	g.cells[cell.CellID] = &cell
}

// score computes the weighted first-fit score for hardware type hwType
// on cell against task's whole-task demand (gateway_service.py:find_cell's
// weighted sum of normalized headroom fractions).
func (g *Gateway) score(cell *CellAvailability, hwType int, reqProc, reqMem, reqSto float64, reqAcc int, reqNet float64) (float64, bool) {
	availProc, ok := cell.AvailableProcessors[hwType]
	if !ok {
		return 0, false
	}
	availMem := cell.AvailableMemory[hwType]
	availSto := cell.AvailableStorage[hwType]
	availAcc := cell.AvailableAccelerators[hwType]

	if availProc < reqProc || availMem < reqMem || availSto < reqSto ||
		float64(availAcc) < float64(reqAcc) || cell.AvailableNetwork < reqNet {
		return 0, false
	}

	w := g.weights
	score := 0.0
	if reqProc > 0 {
		score += w.Processors * (availProc / reqProc)
	}
	if reqMem > 0 {
		score += w.Memory * (availMem / reqMem)
	}
	if reqSto > 0 {
		score += w.Storage * (availSto / reqSto)
	}
	if reqAcc > 0 {
		score += w.Accelerators * (float64(availAcc) / float64(reqAcc))
	}
	if reqNet > 0 {
		score += w.Network * (cell.AvailableNetwork / reqNet)
	}
	return score, true
}

// Allocate picks the best-scoring (cell, hw type) pair among the task's
// candidate implementations across every cached cell, reserves the
// whole-task demand against that cell's cached table, and returns a
// Decision. No Resource or Network object is mutated — this is cache
// bookkeeping only, matching spec §6's REST sidecar contract ("no state
// is mutated" at the core level; only the Gateway's own cache changes).
// Returns Decision{CellID: -1, Success: false} (spec §7's NoSuchCell) if
// the gateway has no cached cells at all.
func (g *Gateway) Allocate(task *sim.Task) Decision {
	requestID := uuid.NewString()
	if len(g.cells) == 0 {
		return Decision{RequestID: requestID, CellID: -1, Success: false, Reason: "no such cell: gateway has no cached cells"}
	}

	reqProc := float64(task.NumVMs) * task.ProcessorsPerVM
	reqMem := float64(task.NumVMs) * task.MemoryPerVM
	reqSto := float64(task.NumVMs) * task.StoragePerVM
	reqNet := task.NetworkBandwidth

	// Deterministic iteration: sort cell IDs so ties fall to the smallest
	// cell ID, mirroring the tie-break conventions used throughout the
	// SOSM hierarchy (spec §5).
	cellIDs := make([]int, 0, len(g.cells))
	for id := range g.cells {
		cellIDs = append(cellIDs, id)
	}
	sort.Ints(cellIDs)

	bestScore := -1.0
	bestCell := -1
	bestHW := -1

	for _, cellID := range cellIDs {
		cell := g.cells[cellID]
		for implIdx, hwType := range task.AvailableImplementations {
			reqAcc := task.NumVMs * task.AcceleratorsPerImpl[implIdx]
			s, ok := g.score(cell, hwType, reqProc, reqMem, reqSto, reqAcc, reqNet)
			if ok && s > bestScore {
				bestScore = s
				bestCell = cellID
				bestHW = hwType
			}
		}
	}

	if bestCell == -1 {
		return Decision{RequestID: requestID, CellID: -1, Success: false, Reason: "capacity exhausted across all cached cells"}
	}

	reqAcc := 0
	for implIdx, hwType := range task.AvailableImplementations {
		if hwType == bestHW {
			reqAcc = task.NumVMs * task.AcceleratorsPerImpl[implIdx]
			break
		}
	}

	cell := g.cells[bestCell]
	cell.AvailableProcessors[bestHW] -= reqProc
	cell.AvailableMemory[bestHW] -= reqMem
	cell.AvailableStorage[bestHW] -= reqSto
	cell.AvailableAccelerators[bestHW] -= reqAcc
	cell.AvailableNetwork -= reqNet

	placements := make([]VMPlacement, task.NumVMs)
	for vm := 0; vm < task.NumVMs; vm++ {
		placements[vm] = VMPlacement{VMIndex: vm, CellID: bestCell, HWTypeID: bestHW, ServerIndex: -1}
	}

	return Decision{
		RequestID:    requestID,
		Success:      true,
		CellID:       bestCell,
		HWTypeID:     bestHW,
		VMPlacements: placements,
	}
}
