// Copyright © 2024 Fluorologger Authors

package acquire

import (
	"context"
	"fmt"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/blongworth/locness-fluorologger/calib"
	"github.com/blongworth/locness-fluorologger/daq"
	"github.com/blongworth/locness-fluorologger/data"
)

// RecordSink accepts one assembled record per cycle.
type RecordSink interface {
	Append(data.Record) error
}

// Loop owns the acquisition cadence. The caller opens the device,
// sinks and tracker before Run and closes them after; the loop itself
// only drives cycles.
type Loop struct {
	Sampler  *daq.Sampler
	Fixes    FixSource
	Sink     RecordSink
	Feed     *data.Exchange
	Cal      calib.Calibration
	Interval time.Duration
}

// Run blocks until ctx is canceled. Each tick runs sample, assemble,
// persist in order; a failed stage is logged and the loop carries on
// with the next tick. The in-flight cycle always completes before Run
// returns, so no partial record is ever written.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("acquire: invalid interval %s", l.Interval)
	}

	if l.Sampler.Rate > 0 {
		burst := time.Duration(l.Sampler.Count) * time.Second / time.Duration(l.Sampler.Rate)
		if burst > l.Interval {
			jww.WARN.Printf("burst duration %s exceeds interval %s, ticks will be skipped", burst, l.Interval)
		}
	}
	jww.INFO.Printf("acquiring every %s, %d samples at %d Hz per burst", l.Interval, l.Sampler.Count, l.Sampler.Rate)

	asm := assembler{fixes: l.Fixes}

	// A ticker drops ticks while a slow cycle runs, so overruns
	// coalesce instead of queuing up.
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			jww.INFO.Println("acquisition stopped")
			return nil
		case <-ticker.C:
			l.cycle(asm)
		}
	}
}

func (l *Loop) cycle(asm assembler) {
	reading, err := l.Sampler.SampleBurst()
	if err != nil {
		jww.ERROR.Println("sampling failed, skipping cycle:", err)
		return
	}

	record := asm.assemble(reading)

	if err := l.Sink.Append(record); err != nil {
		jww.ERROR.Println("persist failed:", err)
	}
	if l.Feed != nil {
		l.Feed.Publish(record)
	}
	l.report(record)
}

func (l *Loop) report(r data.Record) {
	msg := fmt.Sprintf("voltage %.4f V", r.Volts)
	if l.Cal.Valid() {
		msg += fmt.Sprintf(", concentration %.3f ppb", l.Cal.Concentration(r.Volts))
	}
	if r.HasFix {
		msg += fmt.Sprintf(", position %.5f %.5f", r.Lat, r.Lon)
	} else {
		msg += ", no fix"
	}
	jww.INFO.Println(msg)
}
