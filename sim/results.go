package sim

// CellHWOutput is one "CLSim outputs[]" entry: every snapshot recorded
// for one (cell, hardware type) pair (spec §6 Results JSON).
type CellHWOutput struct {
	Cell    int              `json:"Cell"`
	HWType  int              `json:"HW Type"`
	Outputs []StatsSnapshot  `json:"Outputs"`
}

// Results is the top-level Results JSON document (spec §6).
type Results struct {
	Mechanism           string         `json:"Resource allocation mechanism"`
	TotalSubmittedTasks int            `json:"Total number of submitted tasks"`
	Outputs             []CellHWOutput `json:"CLSim outputs"`
}

// BuildResults assembles the Results document from a finished run's
// cells. mechanism and totalSubmitted are supplied by the Simulator,
// which alone knows the broker's configured name and the task stream's
// original length.
func BuildResults(mechanism string, totalSubmitted int, cells []*Cell) Results {
	r := Results{Mechanism: mechanism, TotalSubmittedTasks: totalSubmitted}
	for _, cell := range cells {
		for hwType, stats := range cell.Stats {
			r.Outputs = append(r.Outputs, CellHWOutput{
				Cell:    cell.ID,
				HWType:  hwType,
				Outputs: stats.Snapshots,
			})
		}
	}
	return r
}
