// Copyright © 2024 Fluorologger Authors

package daq

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// iioDevice reads a voltage channel exposed through the Linux
// industrial I/O sysfs interface, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0. The _raw attribute is
// kept open and re-read for every sample; _scale (millivolts per
// count) is read once at open.
type iioDevice struct {
	raw   *os.File
	scale float64
}

func init() {
	RegisterDevice("iio", openIIO)
}

func openIIO(channel string) (Device, error) {
	raw, err := os.Open(channel + "_raw")
	if err != nil {
		return nil, fmt.Errorf("daq: open %s_raw: %w", channel, err)
	}

	scale := 1.0
	if b, err := os.ReadFile(channel + "_scale"); err == nil {
		if s, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64); err == nil && s > 0 {
			scale = s
		}
	}

	return &iioDevice{raw: raw, scale: scale}, nil
}

func (d *iioDevice) Read() (float64, error) {
	if _, err := d.raw.Seek(0, 0); err != nil {
		return 0, err
	}
	buf := make([]byte, 32)
	n, err := d.raw.Read(buf)
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseFloat(strings.TrimSpace(string(buf[:n])), 64)
	if err != nil {
		return 0, fmt.Errorf("daq: bad raw sample %q: %w", strings.TrimSpace(string(buf[:n])), err)
	}
	// scale is mV per count.
	return count * d.scale / 1000.0, nil
}

func (d *iioDevice) Close() error {
	return d.raw.Close()
}
