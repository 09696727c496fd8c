package gateway

import "github.com/cloudlightning/cellsim/sim"

// EstimateEnergyKWh runs the single-task "simulation dry-run for energy
// estimate" spec §6 asks the REST sidecar to report alongside a
// Decision: it prices task's full workload (TotalInstructions) against model at
// the task's utilization profile, without touching any Resource or
// Network object, by running the same per-second power draw the core
// physics loop would apply and summing until the estimated instruction
// count would be exhausted.
//
// computePerProc/computePerAcc are the per-second compute capability the
// destination server would offer at the task's utilization (the REST
// caller derives these from the target cell's current
// current_compute_per_processor/accelerator, or from nameplate capability
// if no live server state is available).
func EstimateEnergyKWh(task *sim.Task, model *sim.PowerModel, computePerProc, computePerAcc float64) float64 {
	if model == nil || task.TotalInstructions <= 0 {
		return 0
	}

	procInstrPerSecond := float64(task.NumVMs) * computePerProc * sim.Min(task.ProcessorUtilization, 1.0) * task.ProcessorsPerVM
	accInstrPerSecond := float64(task.NumVMs) * computePerAcc * task.AcceleratorUtilization
	instrPerSecond := procInstrPerSecond + accInstrPerSecond
	if instrPerSecond <= 0 {
		return 0
	}

	seconds := task.TotalInstructions / instrPerSecond
	procUtil := task.ProcessorUtilization
	rho := task.AcceleratorUtilization
	perSecondGWh := model.Consumption(procUtil, rho, true, task.AcceleratorsPerVM*task.NumVMs)

	const gwhToKWh = 1e6
	return perSecondGWh * seconds * gwhToKWh
}
