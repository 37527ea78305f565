// Copyright © 2024 Fluorologger Authors

// Package acquire drives the sampling cadence: every tick it takes one
// averaged burst from the DAQ, merges in the latest GPS fix, and hands
// the record to the sinks.
package acquire

import (
	"time"

	"github.com/blongworth/locness-fluorologger/daq"
	"github.com/blongworth/locness-fluorologger/data"
	"github.com/blongworth/locness-fluorologger/gps"
)

// FixSource serves the most recent GPS fix without blocking. A nil
// source means GPS is not configured.
type FixSource interface {
	LatestFix() (gps.Fix, bool)
}

type assembler struct {
	fixes FixSource
}

// assemble merges one averaged reading with the fix in effect right
// now. The record time is the assembly instant; the burst start and
// fix time ride along as secondary fields. A missing fix becomes the
// unavailable placeholder, never an error.
func (a assembler) assemble(reading daq.AveragedReading) data.Record {
	r := data.Record{
		Time:  time.Now().UTC(),
		Volts: reading.Volts,
		Burst: reading.Start,
	}
	if a.fixes != nil {
		if fix, ok := a.fixes.LatestFix(); ok {
			r.Lat = fix.Lat
			r.Lon = fix.Lon
			r.FixTime = fix.Time
			r.HasFix = true
		}
	}
	return r
}
