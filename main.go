// Copyright © 2024 Fluorologger Authors

package main

import "github.com/blongworth/locness-fluorologger/cmd"

func main() {
	cmd.Execute()
}
