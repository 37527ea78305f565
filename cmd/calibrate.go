// Copyright © 2024 Fluorologger Authors

package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/blongworth/locness-fluorologger/calib"
)

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate <pairs.csv>",
	Short: "Compute a voltage to concentration calibration",
	Long: `Fits a least-squares line to reference measurements of standard
solutions. The input file holds one "concentration,voltage" pair per
line (known concentration in ppb, measured voltage in volts); a header
row is skipped. The offline result is what the run and monitor
commands apply at display time.`,
	Args: cobra.ExactArgs(1),
	RunE: calibrate,
}

func calibrateInit() {
	if !calibrateCmd.Flags().HasFlags() {
		calibrateCmd.Flags().Bool("write", false, "Write the result to the config file")
	}
}

func init() {
	RootCmd.AddCommand(calibrateCmd)
	calibrateInit()
	viper.BindPFlags(calibrateCmd.Flags())
}

func calibrate(cmd *cobra.Command, args []string) error {
	concentration, volts, err := readPairs(args[0])
	if err != nil {
		return err
	}

	cal, r2, err := calib.Fit(concentration, volts)
	if err != nil {
		return err
	}

	fmt.Printf("pairs:     %d\n", len(volts))
	fmt.Printf("slope:     %g ppb/V\n", cal.Slope)
	fmt.Printf("intercept: %g ppb\n", cal.Intercept)
	fmt.Printf("r2:        %.5f\n", r2)

	if viper.GetBool("write") {
		viper.Set("cal.slope", cal.Slope)
		viper.Set("cal.intercept", cal.Intercept)
		if err := viper.WriteConfig(); err != nil {
			return err
		}
		jww.INFO.Println("calibration written to", viper.ConfigFileUsed())
	}
	return nil
}

func readPairs(path string) (concentration, volts []float64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}

	for i, row := range rows {
		if len(row) != 2 {
			return nil, nil, fmt.Errorf("line %d: expected concentration,voltage", i+1)
		}
		c, cerr := strconv.ParseFloat(row[0], 64)
		v, verr := strconv.ParseFloat(row[1], 64)
		if cerr != nil || verr != nil {
			if i == 0 { // header row
				continue
			}
			return nil, nil, fmt.Errorf("line %d: bad pair %q,%q", i+1, row[0], row[1])
		}
		concentration = append(concentration, c)
		volts = append(volts, v)
	}
	return concentration, volts, nil
}
