package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s950329/qmd-bridge/internal/daemon"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background bridge server",
		Long: `Control the bridge server as a background process.

Commands:
  start   Launch 'qmd-bridge serve' detached and record its PID
  stop    Send SIGTERM to the recorded process and wait for exit
  status  Report whether the recorded process is running`,
	}
	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	return cmd
}

func newController() (*daemon.Controller, error) {
	path, err := daemon.DefaultPIDPath()
	if err != nil {
		return nil, err
	}
	return daemon.NewController(daemon.NewPIDFile(path)), nil
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the bridge server in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			args := []string{"serve"}
			if configPath != "" {
				args = append(args, "--config", configPath)
			}
			pid, err := c.Start(args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started (pid %d)\n", pid)
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background bridge server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			if err := c.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show background server status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			st := c.Status()
			if !st.Running {
				fmt.Fprintln(cmd.OutOrStdout(), "not running")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "running (pid %d)\n", st.PID)
			return nil
		},
	}
}
