package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridseis/gridseis/internal/capture"
	"github.com/gridseis/gridseis/internal/mqtt"
)

// CaptureOptions holds flags for the capture command.
type CaptureOptions struct {
	*RootOptions
	Name      string
	OutputDir string
	Broker    string
}

// NewCaptureCommand creates the capture command.
func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CaptureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "capture [endpoints...]",
		Short: "Capture frequency samples from sensor boards",
		Long: `Capture line-delimited JSON measurements from one or more serial-attached
sensor boards, one worker and one log file per board. With no endpoint
arguments the first plausible USB serial bridge is auto-detected.

Example:
  gridseis capture /dev/ttyUSB0 /dev/ttyUSB1
  gridseis capture /dev/ttyUSB0 --name kitchen
  gridseis capture --mqtt tcp://broker:1883`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "board name (single endpoint only)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", ".", "output directory for log files")
	cmd.Flags().StringVar(&opts.Broker, "mqtt", "", "MQTT broker URL to mirror samples to")

	return cmd
}

func runCapture(cmd *cobra.Command, opts *CaptureOptions, endpoints []string) error {
	cfg := opts.Config.Capture

	outputDir := opts.OutputDir
	if !cmd.Flags().Changed("output") && cfg.OutputDir != "" {
		outputDir = cfg.OutputDir
	}
	broker := opts.Broker
	if !cmd.Flags().Changed("mqtt") {
		broker = cfg.MQTTBroker
	}

	boards, err := capture.ResolveBoards(endpoints, opts.Name, nil)
	if err != nil {
		return err
	}

	var publisher mqtt.Publisher
	if broker != "" {
		p, err := mqtt.NewRealPublisher(broker)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	session, err := capture.NewSession(capture.SessionConfig{
		Boards:       boards,
		OutputDir:    outputDir,
		Options:      capture.PortOptions{BaudRate: cfg.BaudRate},
		ReadTimeout:  cfg.GetReadTimeout(),
		PollInterval: cfg.GetPollInterval(),
		StopGrace:    cfg.GetStopGrace(),
		Publisher:    publisher,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Capturing from %d board(s)... Press Ctrl+C to stop.\n", len(boards))

	runErr := session.Run(ctx)
	printCaptureSummary(cmd, session)
	return runErr
}

func printCaptureSummary(cmd *cobra.Command, session *capture.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Capture summary:")
	for _, w := range session.Workers() {
		fmt.Fprintf(out, "  %s: %d records (%s)\n", w.Board(), w.Records(), w.State())
	}
}
