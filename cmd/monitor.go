// Copyright © 2024 Fluorologger Authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/blongworth/locness-fluorologger/calib"
	"github.com/blongworth/locness-fluorologger/data"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the live record feed",
	Long: `Subscribes to the MQTT record feed published by a running logger and
prints each reading, with concentration when a calibration is
configured. Display only; records are persisted by the logger itself.`,
	RunE: monitor,
}

func init() {
	RootCmd.AddCommand(monitorCmd)
}

func monitor(cmd *cobra.Command, args []string) error {
	if verbose {
		jww.SetStdoutThreshold(jww.LevelTrace)
	}

	cal := calib.Calibration{
		Slope:     viper.GetFloat64("cal.slope"),
		Intercept: viper.GetFloat64("cal.intercept"),
	}

	feed, err := data.ConnectExchange("fluorologger-monitor")
	if err != nil {
		return err
	}
	defer feed.Close()

	err = feed.Subscribe(func(r data.Record) {
		line := fmt.Sprintf("%s  %.4f V", r.Time.Format(time.RFC3339), r.Volts)
		if cal.Valid() {
			line += fmt.Sprintf("  %.3f ppb", cal.Concentration(r.Volts))
		}
		if r.HasFix {
			line += fmt.Sprintf("  %.5f %.5f  %s", r.Lat, r.Lon, r.FixTime.Format("15:04:05"))
		} else {
			line += "  no fix"
		}
		fmt.Println(line)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
