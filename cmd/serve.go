package cmd

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudlightning/cellsim/sim"
	"github.com/cloudlightning/cellsim/sim/gateway"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST sidecar that exposes a single allocate-one-task query (spec §6)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "port to listen on")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	serveCmd.Flags().StringVar(&presetsPath, "presets-file", "cmd/presets.yaml", "path to the power-curve presets YAML, used when a request names power_preset")
}

// allocateRequest is the REST sidecar's request body: every cell's
// current availability plus the one task to place (spec §6). The Gin
// layer is a thin adapter over gateway.Gateway.Allocate, not a
// reimplementation of its scoring — this is the one out-of-scope
// surface the spec asks to be specified "only where it touches the
// core".
type allocateRequest struct {
	Cells       []gateway.CellAvailability `json:"cells" binding:"required"`
	Weights     gateway.Weights            `json:"weights"`
	Task        allocateTaskInput          `json:"task" binding:"required"`
	PowerPreset string                     `json:"power_preset,omitempty"`
}

// allocateTaskInput mirrors spec §6's task input JSON shape, reused
// here instead of the full sim.TaskInputConfig so the REST contract
// doesn't implicitly grow every time the task config struct does.
type allocateTaskInput struct {
	ProcessorsPerVM          float64 `json:"processors_per_vm"`
	MemoryPerVM              float64 `json:"memory_per_vm"`
	NetworkBandwidth         float64 `json:"network_bandwidth"`
	StoragePerVM             float64 `json:"storage_per_vm"`
	AcceleratorsPerVM        int     `json:"accelerators_per_vm"`
	NumVMs                   int     `json:"num_vms"`
	TotalInstructions        float64 `json:"total_instructions"`
	ProcessorUtilization     float64 `json:"processor_utilization"`
	AcceleratorUtilization   float64 `json:"accelerator_utilization"`
	AvailableImplementations []int   `json:"available_implementations"`
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := parseLogLevel(logLevel); err != nil {
		logrus.Fatalf("invalid --log-level %q: %v", logLevel, err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", healthCheck)
	router.POST("/v1/allocate", handleAllocate)

	logrus.Infof("REST sidecar listening on :%s", servePort)
	return router.Run(":" + servePort)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAllocate runs one gateway.Gateway.Allocate call over the
// request-scoped cell snapshot and task, returning a Decision. No core
// state is mutated across requests: a fresh Gateway is built from the
// caller's snapshot every call (spec §6: "no state is mutated").
func handleAllocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accPerImpl := make([]int, len(req.Task.AvailableImplementations))
	for i := range accPerImpl {
		accPerImpl[i] = req.Task.AcceleratorsPerVM
	}
	task, err := sim.NewTask("sidecar-request", 0, req.Task.NumVMs, req.Task.AvailableImplementations, accPerImpl)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task.ProcessorsPerVM = req.Task.ProcessorsPerVM
	task.MemoryPerVM = req.Task.MemoryPerVM
	task.NetworkBandwidth = req.Task.NetworkBandwidth
	task.StoragePerVM = req.Task.StoragePerVM
	task.TotalInstructions = req.Task.TotalInstructions
	task.RemainingInstructions = req.Task.TotalInstructions
	task.ProcessorUtilization = req.Task.ProcessorUtilization
	task.AcceleratorUtilization = req.Task.AcceleratorUtilization

	gw := gateway.NewGateway(req.Cells, req.Weights)
	decision := gw.Allocate(task)

	if decision.Success && req.PowerPreset != "" {
		decision.EstimatedEnergyCostKWh = estimateDecisionEnergy(req, decision, task)
	}

	c.JSON(http.StatusOK, decision)
}

// estimateDecisionEnergy runs the spec §6 single-task dry-run for the
// cell/hw type the Gateway actually chose, using the named preset's
// power curve and the chosen cell's compute-capability snapshot from the
// request for that hw type. Swallows a missing/typo'd preset name by returning 0 rather
// than failing the whole allocation: the placement decision already
// succeeded, and the estimate is auxiliary information.
func estimateDecisionEnergy(req allocateRequest, decision gateway.Decision, task *sim.Task) float64 {
	preset, err := loadPowerPreset(presetsPath, req.PowerPreset)
	if err != nil {
		logrus.Warnf("power preset %q: %v", req.PowerPreset, err)
		return 0
	}
	model, err := sim.BuildPowerModel(sim.HWTypeConfig{
		CPUModelType:  preset.CPUModelType,
		CPUBins:       preset.CPUBins,
		CPUValues:     preset.CPUValues,
		CPUIdlePower:  preset.CPUIdle,
		CPUMaxPower:   preset.CPUMax,
		CPUSleepPower: preset.CPUSleep,
		AccIdlePower:  preset.AccIdle,
		AccMaxPower:   preset.AccMax,
		AccSleepPower: preset.AccSleep,
		Accelerators:  boolToIntFlag(preset.AccMax > 0),
	}, nil)
	if err != nil {
		logrus.Warnf("power model from preset %q: %v", req.PowerPreset, err)
		return 0
	}

	var computeProc, computeAcc float64
	for _, cell := range req.Cells {
		if cell.CellID != decision.CellID {
			continue
		}
		computeProc = cell.ComputePerProcessor[decision.HWTypeID]
		computeAcc = cell.ComputePerAccelerator[decision.HWTypeID]
		break
	}

	return gateway.EstimateEnergyKWh(task, model, computeProc, computeAcc)
}

func boolToIntFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
