// Copyright © 2024 Fluorologger Authors

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/spf13/viper"
)

// manCmd represents the man command
var manCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages",
	Long:  `Generates a set of man pages for fluorologger`,
	Run: func(cmd *cobra.Command, args []string) {
		header := &doc.GenManHeader{
			Title:   "FLUOROLOGGER",
			Section: "3",
		}
		doc.GenManTree(RootCmd, header, viper.GetString("output"))
	},
}

func init() {
	docCmd.AddCommand(manCmd)
}
