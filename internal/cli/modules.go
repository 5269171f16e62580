package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the known test modules",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadLibrary()
		if err != nil {
			return err
		}

		for _, name := range lib.Names() {
			mod, _ := lib.Get(name)
			fmt.Printf("%-16s %s(%d params)\n", name, mod.Function, len(mod.Params))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
