// Package cli implements the kxcictl command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Craig-Venables/kxci"
	"github.com/Craig-Venables/kxci/logger"
	"github.com/Craig-Venables/kxci/transport/prologix"
	"github.com/Craig-Venables/kxci/transport/visa"
)

var (
	libraryFile  string
	visaResource string
	serialPort   string
	gpibAddr     int
	verbose      bool

	rootCmd = &cobra.Command{
		Use:   "kxcictl",
		Short: "Drive a parameter analyzer's compiled test modules over KXCI",
		Long: `kxcictl executes compiled user-library test modules (SMU sweeps, PMU
pulse, retention and endurance waveforms) on a parameter analyzer through
its External Control Interface, over either NI-VISA or a Prologix GPIB
controller, and retrieves the resulting measurement arrays.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logger.DebugLevel)
			}
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&libraryFile, "library", "l", "", "YAML module-definition file loaded on top of the built-in library")
	rootCmd.PersistentFlags().StringVar(&visaResource, "visa", "", `VISA resource string, e.g. "GPIB0::17::INSTR"`)
	rootCmd.PersistentFlags().StringVar(&serialPort, "port", "", "serial port of a Prologix GPIB controller, e.g. /dev/ttyUSB0")
	rootCmd.PersistentFlags().IntVar(&gpibAddr, "addr", 17, "GPIB primary address (Prologix transport)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadLibrary returns the built-in module library, extended by the
// --library file when given.
func loadLibrary() (*kxci.Library, error) {
	lib := kxci.DefaultLibrary()
	if libraryFile != "" {
		if err := lib.LoadFile(libraryFile); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// openTransport opens the transport selected by the --visa or --port
// flags. Exactly one must be given.
func openTransport() (kxci.Transport, error) {
	switch {
	case visaResource != "" && serialPort != "":
		return nil, fmt.Errorf("--visa and --port are mutually exclusive")
	case visaResource != "":
		return visa.Open(visaResource)
	case serialPort != "":
		return prologix.Open(serialPort, gpibAddr)
	default:
		return nil, fmt.Errorf("no transport selected: pass --visa or --port")
	}
}
