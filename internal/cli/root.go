// Package cli wires the gridseis subcommands: multi-board capture, serial
// endpoint listing, and plotting captured logs against a reference export.
package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gridseis/gridseis/internal/config"
	"github.com/gridseis/gridseis/internal/version"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// Config is loaded from ConfigPath (built-in defaults when empty)
	// before any subcommand runs.
	Config config.Config
}

// NewRootCommand creates the root command for the gridseis CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gridseis",
		Short: "Grid frequency capture and alignment",
		Long: `gridseis captures mains-frequency measurements from serial-attached sensor
boards into append-only JSONL logs, and reconciles captured series against a
National Grid reference export whose clock may be offset from the capture
host.`,
		Version:       fmt.Sprintf("%s (%s)", version.Version, version.GitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			if opts.Verbose {
				log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose log output")

	cmd.AddCommand(NewCaptureCommand(opts))
	cmd.AddCommand(NewPortsCommand(opts))
	cmd.AddCommand(NewPlotCommand(opts))

	return cmd
}
