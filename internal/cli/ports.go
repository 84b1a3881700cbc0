package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridseis/gridseis/internal/capture"
)

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		Long:  "List the serial endpoints visible to this host, with USB device detail where available.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPorts(cmd, nil)
		},
	}
}

func runPorts(cmd *cobra.Command, list capture.PortLister) error {
	ports, err := capture.ListPorts(list)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found.")
		return nil
	}
	fmt.Fprintln(out, "Available serial ports:")
	for _, p := range ports {
		fmt.Fprintf(out, "  %s: %s\n", p.Device, p.Description)
	}
	return nil
}
