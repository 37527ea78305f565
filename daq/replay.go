package daq

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// replayDevice serves voltages from a plain text file, one reading per
// line. Used for dry runs and tests when no DAQ hardware is attached.
type replayDevice struct {
	file    *os.File
	scanner *bufio.Scanner
}

func init() {
	RegisterDevice("replay", openReplay)
}

func openReplay(path string) (Device, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &replayDevice{file: file, scanner: bufio.NewScanner(file)}, nil
}

func (d *replayDevice) Read() (float64, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strconv.ParseFloat(line, 64)
	}
	if err := d.scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("daq: replay file %s exhausted", d.file.Name())
}

func (d *replayDevice) Close() error {
	return d.file.Close()
}
