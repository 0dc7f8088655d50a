package worker

import (
	"syscall"

	"github.com/containerd/cgroups"
	"github.com/go4it-sports/media-engine/internal/config"
	"github.com/go4it-sports/media-engine/pkg/logger"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// jobCgroup is the per-job execution context. Every process the job spawns is
// added to it, so cancellation can tear down the whole process tree at once.
// Cgroup setup is fail-soft: when disabled or unavailable the job still runs,
// it just loses forced teardown.
type jobCgroup struct {
	control cgroups.Cgroup
	logger  logger.Logger
}

func newJobCgroup(cfg config.CgroupConfig, jobID string, logger logger.Logger) *jobCgroup {
	cg := &jobCgroup{logger: logger}
	if !cfg.Enabled {
		return cg
	}

	shares := cfg.CPUShares
	if shares == 0 {
		shares = 1024
	}
	control, err := cgroups.New(
		cgroups.V1,
		cgroups.StaticPath("/media-engine/"+jobID),
		&specs.LinuxResources{
			CPU: &specs.LinuxCPU{
				Shares: &shares,
			},
		},
	)
	if err != nil {
		logger.Warnf("cgroup creation failed for job %s, running without isolation: %v", jobID, err)
		return cg
	}
	cg.control = control
	return cg
}

// AddProcess places a spawned process under the job's cgroup.
func (c *jobCgroup) AddProcess(pid int) {
	if c.control == nil {
		return
	}
	if err := c.control.Add(cgroups.Process{Pid: pid}); err != nil {
		c.logger.Warnf("failed to add pid %d to cgroup: %v", pid, err)
	}
}

// Kill sends SIGKILL to every process still in the cgroup.
func (c *jobCgroup) Kill() {
	if c.control == nil {
		return
	}
	procs, err := c.control.Processes(cgroups.Cpu, true)
	if err != nil {
		c.logger.Warnf("failed to list cgroup processes: %v", err)
		return
	}
	for _, p := range procs {
		if err := syscall.Kill(p.Pid, syscall.SIGKILL); err != nil {
			c.logger.Warnf("failed to kill pid %d: %v", p.Pid, err)
		}
	}
}

// Close removes the cgroup. Safe to call after Kill.
func (c *jobCgroup) Close() {
	if c.control == nil {
		return
	}
	if err := c.control.Delete(); err != nil {
		c.logger.Warnf("failed to delete cgroup: %v", err)
	}
}
