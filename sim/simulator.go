package sim

import "github.com/sirupsen/logrus"

// Simulator drives the fixed-step time loop over one or more Cells,
// admitting arriving tasks and advancing physics one simulation second
// at a time (spec §2 data flow, §5 ordering guarantees).
type Simulator struct {
	Cells          []*Cell
	MaxTime        int
	UpdateInterval int
	Mechanism      string

	// arrivals[i] holds cell Cells[i]'s task stream, sorted by
	// ArrivalTime with ties broken by input order (spec §5: "Tasks with
	// equal arrival_time are admitted in input order").
	arrivals [][]*Task
	cursor   []int // next unconsumed index into arrivals[i]

	submitted int
}

// NewSimulator constructs a Simulator over cells, each with its own
// pre-sorted task stream. len(arrivals) must equal len(cells).
func NewSimulator(cells []*Cell, arrivals [][]*Task, maxTime, updateInterval int, mechanism string) *Simulator {
	total := 0
	for _, stream := range arrivals {
		total += len(stream)
	}
	return &Simulator{
		Cells:          cells,
		MaxTime:        maxTime,
		UpdateInterval: updateInterval,
		Mechanism:      mechanism,
		arrivals:       arrivals,
		cursor:         make([]int, len(cells)),
		submitted:      total,
	}
}

// Run executes the full time loop from t=0 to MaxTime inclusive,
// following the canonical per-second order from spec §5: admit, physics,
// poll, update stats, snapshot.
func (s *Simulator) Run() Results {
	for t := 0; t <= s.MaxTime; t++ {
		s.step(t)
	}
	return BuildResults(s.Mechanism, s.submitted, s.Cells)
}

func (s *Simulator) step(t int) {
	for i, cell := range s.Cells {
		s.admitArrivals(cell, i, t)
		cell.Broker.Timestep(t)
		cell.Broker.UpdateStateInfo(t)
	}
	for _, cell := range s.Cells {
		if t%s.UpdateInterval == 0 {
			cell.UpdateStats(t)
		}
	}
}

func (s *Simulator) admitArrivals(cell *Cell, cellIdx, t int) {
	stream := s.arrivals[cellIdx]
	for s.cursor[cellIdx] < len(stream) && stream[s.cursor[cellIdx]].ArrivalTime == t {
		task := stream[s.cursor[cellIdx]]
		s.cursor[cellIdx]++
		if err := cell.Deploy(task); err != nil {
			logrus.Fatalf("cell %d: task %s: %v", cell.ID, task.ID, err)
		}
		if task.State == TaskAdmitted {
			logrus.Debugf("cell %d: task %s admitted at t=%d on type %d", cell.ID, task.ID, t, task.SelectedType)
		} else {
			logrus.Debugf("cell %d: task %s rejected at t=%d", cell.ID, task.ID, t)
		}
	}
}
