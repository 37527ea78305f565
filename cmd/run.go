// Copyright © 2024 Fluorologger Authors

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/blongworth/locness-fluorologger/acquire"
	"github.com/blongworth/locness-fluorologger/calib"
	"github.com/blongworth/locness-fluorologger/daq"
	"github.com/blongworth/locness-fluorologger/data"
	"github.com/blongworth/locness-fluorologger/gps"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the acquisition loop",
	Long: `Runs the sampling loop until interrupted: every interval, one burst
of analog samples is taken and averaged, merged with the latest GPS
fix, and appended to the CSV file and the database.`,
	RunE: run,
}

func runInit() {
	if !runCmd.Flags().HasFlags() {
		runCmd.Flags().String("daqDriver", "iio", "DAQ device driver, one of ["+strings.Join(daq.Drivers(), ", ")+"]")
		runCmd.Flags().String("device", "/sys/bus/iio/devices/iio:device0/in_voltage0", "DAQ analog input channel")
		runCmd.Flags().Int("rate", 1000, "Burst sample rate in Hz")
		runCmd.Flags().Int("burst", 100, "Samples per burst")
		runCmd.Flags().Float64("interval", 5, "Seconds between readings")
		runCmd.Flags().String("port", "", "GPS serial port (empty disables GPS)")
		runCmd.Flags().Int("baud", 9600, "GPS serial baud rate")
		runCmd.Flags().String("datafile", "fluorologger.csv", "CSV output file")
	}
}

func init() {
	RootCmd.AddCommand(runCmd)
	runInit()
	viper.BindPFlags(runCmd.Flags())
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		jww.SetStdoutThreshold(jww.LevelTrace)
	} else {
		jww.SetStdoutThreshold(jww.LevelInfo)
	}

	// Anything failing here is a startup failure: report it and exit
	// without attempting a partial run.
	dev, err := daq.Open(viper.GetString("daqDriver"), viper.GetString("device"))
	if err != nil {
		return err
	}
	defer dev.Close()

	csvLogger, err := data.OpenCSV(viper.GetString("datafile"))
	if err != nil {
		return err
	}
	defer csvLogger.Close()

	db, err := data.OpenDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	loop := &acquire.Loop{
		Sampler: &daq.Sampler{
			Device: dev,
			Count:  viper.GetInt("burst"),
			Rate:   viper.GetInt("rate"),
		},
		Sink: data.NewSink(csvLogger, db),
		Cal: calib.Calibration{
			Slope:     viper.GetFloat64("cal.slope"),
			Intercept: viper.GetFloat64("cal.intercept"),
		},
		Interval: time.Duration(viper.GetFloat64("interval") * float64(time.Second)),
	}

	if port := viper.GetString("port"); port != "" {
		tracker := gps.NewTracker(port, viper.GetInt("baud"))
		if err := tracker.Start(); err != nil {
			return err
		}
		defer tracker.Stop()
		loop.Fixes = tracker
	} else {
		jww.INFO.Println("GPS disabled, no serial port configured")
	}

	if viper.GetString("broker") != "" {
		feed, err := data.ConnectExchange("fluorologger-run")
		if err != nil {
			jww.WARN.Println("live feed unavailable:", err)
		} else {
			defer feed.Close()
			loop.Feed = feed
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return loop.Run(ctx)
}
