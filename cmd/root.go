// Copyright © 2024 Fluorologger Authors

package cmd

import (
	"os"
	"strings"

	"github.com/blongworth/locness-fluorologger/data"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

var cfgFile string
var verbose bool

// This represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "fluorologger",
	Short: "Shipboard fluorometer data logger",
	Long: `Fluorologger is an unattended data logger for a rhodamine
fluorometer aboard a moving vessel.

It repeatedly takes a burst of analog voltage samples from a DAQ
channel, averages the burst, tags the reading with the latest GPS fix
from a serial NMEA stream, and appends the record to a CSV file and a
database for later analysis.`,
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		jww.ERROR.Println(err)
		os.Exit(-1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is fluorologger.yaml)")
	RootCmd.PersistentFlags().String("broker", "", "MQTT broker for the optional live record feed")
	RootCmd.PersistentFlags().String("database", "fluorologger.db", "Database")
	RootCmd.PersistentFlags().String("table", "records", "Database table")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	dbdrivers := data.DBDrivers()
	if len(dbdrivers) > 1 {
		RootCmd.PersistentFlags().String("dbDriver", "sqlite3", "Database Driver, one of ["+strings.Join(dbdrivers, ", ")+"]")
	} else {
		viper.SetDefault("dbDriver", "sqlite3")
	}
	viper.BindPFlags(RootCmd.PersistentFlags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" { // enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	}

	viper.SetConfigName("fluorologger") // name of config file (without extension)
	viper.AddConfigPath("/etc/fluorologger/")
	viper.AddConfigPath("$HOME/.fluorologger/")
	viper.AddConfigPath(".")

	viper.SetDefault("cal.slope", 0.0)
	viper.SetDefault("cal.intercept", 0.0)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		jww.DEBUG.Println("Using config file:", viper.ConfigFileUsed())
	}
}
