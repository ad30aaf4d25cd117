package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// stopWait is how long Stop waits for the process to exit after SIGTERM
// before reporting failure.
const stopWait = 10 * time.Second

// Status describes the background process state.
type Status struct {
	Running bool
	PID     int
}

// Controller starts and stops the detached bridge process.
type Controller struct {
	pidfile *PIDFile
}

// NewController creates a Controller over the given PID file.
func NewController(pidfile *PIDFile) *Controller {
	return &Controller{pidfile: pidfile}
}

// Start launches the current binary with the given arguments as a detached
// process and records its PID. Fails if a recorded process is still running.
func (c *Controller) Start(args ...string) (int, error) {
	if c.pidfile.IsRunning() {
		pid, _ := c.pidfile.Read()
		return 0, fmt.Errorf("already running (pid %d)", pid)
	}
	// A stale file from a crashed process is cleaned up silently.
	_ = c.pidfile.Remove()

	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(self, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start process: %w", err)
	}
	pid := cmd.Process.Pid
	if err := c.pidfile.WritePID(pid); err != nil {
		_ = cmd.Process.Kill()
		return 0, err
	}
	// The child is session leader; the parent must not wait on it.
	_ = cmd.Process.Release()
	return pid, nil
}

// Stop terminates the recorded process with SIGTERM and removes the PID file
// once it has exited.
func (c *Controller) Stop() error {
	if !c.pidfile.IsRunning() {
		_ = c.pidfile.Remove()
		return errors.New("not running")
	}
	if err := c.pidfile.Signal(syscall.SIGTERM); err != nil {
		return err
	}

	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if !c.pidfile.IsRunning() {
			return c.pidfile.Remove()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("process did not exit after SIGTERM")
}

// Status reports whether the recorded process is running.
func (c *Controller) Status() Status {
	if !c.pidfile.IsRunning() {
		return Status{}
	}
	pid, _ := c.pidfile.Read()
	return Status{Running: true, PID: pid}
}
