// Command gridseis captures mains-frequency measurements from serial-attached
// sensor boards and plots captured logs against National Grid reference exports.
package main

import (
	"fmt"
	"os"

	"github.com/gridseis/gridseis/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
