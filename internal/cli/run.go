package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Craig-Venables/kxci"
)

var (
	fetchSpecs []string
	outputFile string
)

var runCmd = &cobra.Command{
	Use:   "run <module> [param...]",
	Short: "Execute one test module and retrieve its output arrays",
	Long: `Executes a compiled test module through KXCI. Parameters are given
positionally in the module's native signature order; an underscore marks
an output-array slot. Output arrays are fetched with --fetch and written
as CSV columns, truncated to a common length.

Flags must precede the module name: everything after it is taken as a
parameter, so negative values like a -5 V sweep endpoint need no
escaping.`,
	Example: `  # SMU IV sweep: 5 V to -5 V, 20 points, fetch both arrays
  kxcictl run --port /dev/ttyUSB0 --fetch 5=21 --fetch 7=21 -o sweep.csv \
    A_Iv_Sweep 5 -5 20 1 _ 21 _ 21`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadLibrary()
		if err != nil {
			return err
		}
		mod, ok := lib.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown module %q; see 'kxcictl modules'", args[0])
		}

		params, err := parseParams(mod, args[1:])
		if err != nil {
			return err
		}
		counts, err := parseFetchSpecs(fetchSpecs)
		if err != nil {
			return err
		}

		tp, err := openTransport()
		if err != nil {
			return err
		}
		session, err := kxci.NewSession(tp)
		if err != nil {
			err = multierr.Append(err, tp.Close())
			return err
		}
		defer session.Close()

		if err := session.Enter(); err != nil {
			return err
		}

		result, err := session.ExecuteModule(mod, params, counts)
		if err != nil {
			return err
		}
		fmt.Printf("return code %d\n", *result.ReturnCode)

		for pos, qerr := range result.ArrayErrs {
			fmt.Fprintf(os.Stderr, "warning: position %d not retrieved: %v\n", pos, qerr)
		}

		if outputFile != "" && len(result.Arrays) > 0 {
			if err := writeArraysCSV(outputFile, result.Arrays); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", outputFile)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Flag parsing stops at the module name so negative parameters are
	// never mistaken for shorthand flags.
	runCmd.Flags().SetInterspersed(false)

	runCmd.Flags().StringArrayVar(&fetchSpecs, "fetch", nil, "output array to retrieve, as <position>=<count> (repeatable)")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "CSV file for the retrieved arrays")
}

// parseParams converts positional CLI arguments into typed parameters.
// The module's declared signature drives the conversion; without one,
// the type is inferred from the token ("_" marks an output slot).
func parseParams(mod *kxci.Module, args []string) ([]kxci.Parameter, error) {
	params := make([]kxci.Parameter, 0, len(args))
	for i, arg := range args {
		declared := ""
		if i < len(mod.Params) {
			declared = mod.Params[i].Type
		}

		p, err := parseParam(arg, declared)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%q): %w", i+1, arg, err)
		}
		params = append(params, p)
	}

	return params, nil
}

func parseParam(arg, declared string) (kxci.Parameter, error) {
	if arg == "_" || arg == "" {
		return kxci.OutputArray(), nil
	}

	switch declared {
	case "array":
		return kxci.OutputArray(), nil
	case "int":
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return kxci.Parameter{}, err
		}
		return kxci.Int(n), nil
	case "float":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return kxci.Parameter{}, err
		}
		return kxci.Float(v), nil
	case "string":
		return kxci.String(arg), nil
	}

	// Undeclared signature: infer from the token.
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return kxci.Int(n), nil
	}
	if v, err := strconv.ParseFloat(arg, 64); err == nil {
		return kxci.Float(v), nil
	}

	return kxci.String(arg), nil
}

func parseFetchSpecs(specs []string) (map[int]int, error) {
	counts := make(map[int]int, len(specs))
	for _, spec := range specs {
		posStr, countStr, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --fetch %q, want <position>=<count>", spec)
		}
		pos, err := strconv.Atoi(posStr)
		if err != nil {
			return nil, fmt.Errorf("malformed --fetch position %q: %w", posStr, err)
		}
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return nil, fmt.Errorf("malformed --fetch count %q: %w", countStr, err)
		}
		counts[pos] = count
	}

	return counts, nil
}

// writeArraysCSV writes the retrieved arrays as CSV columns in position
// order, rows truncated to the common minimum length.
func writeArraysCSV(path string, arrays map[int]kxci.RetrievedArray) error {
	positions := make([]int, 0, len(arrays))
	for pos := range arrays {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	columns := make([][]float64, 0, len(positions))
	header := make([]string, 0, len(positions))
	for _, pos := range positions {
		columns = append(columns, arrays[pos].Values)
		header = append(header, fmt.Sprintf("param_%d", pos))
	}
	columns, rows := kxci.TruncateCommon(columns...)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for row := 0; row < rows; row++ {
		for col := range columns {
			record[col] = strconv.FormatFloat(columns[col][row], 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()

	return w.Error()
}
