// Copyright © 2024 Fluorologger Authors

package acquire

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blongworth/locness-fluorologger/daq"
	"github.com/blongworth/locness-fluorologger/data"
	"github.com/blongworth/locness-fluorologger/gps"
)

type constDevice struct {
	volts  float64
	failAt int // fail once at this read index (1-based), 0 disables
	reads  int
}

func (d *constDevice) Read() (float64, error) {
	d.reads++
	if d.failAt > 0 && d.reads == d.failAt {
		return 0, errors.New("device timeout")
	}
	return d.volts, nil
}

func (d *constDevice) Close() error { return nil }

type staticFix struct {
	fix gps.Fix
	ok  bool
}

func (s staticFix) LatestFix() (gps.Fix, bool) { return s.fix, s.ok }

type memRecords struct {
	mu      sync.Mutex
	records []data.Record
}

func (m *memRecords) Append(r data.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memRecords) all() []data.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]data.Record(nil), m.records...)
}

func testLoop(dev daq.Device, fixes FixSource, sink RecordSink) *Loop {
	return &Loop{
		Sampler:  &daq.Sampler{Device: dev, Count: 4, Rate: 100000},
		Fixes:    fixes,
		Sink:     sink,
		Interval: 50 * time.Millisecond,
	}
}

func TestLoopEndToEnd(t *testing.T) {
	fixTime := time.Date(2024, 5, 1, 12, 35, 19, 0, time.UTC)
	sink := &memRecords{}
	loop := testLoop(
		&constDevice{volts: 1.4975},
		staticFix{gps.Fix{Lat: 41.5, Lon: -70.6, Time: fixTime}, true},
		sink,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatal(err)
	}

	records := sink.all()
	if len(records) < 2 {
		t.Fatal("expected at least two cycles, got", len(records))
	}
	for i, r := range records {
		if r.Volts != 1.4975 {
			t.Error("bad voltage", r.Volts)
		}
		if !r.HasFix || r.Lat != 41.5 || r.Lon != -70.6 || !r.FixTime.Equal(fixTime) {
			t.Errorf("bad fix on record %d: %+v", i, r)
		}
		if r.Time.Before(r.Burst) {
			t.Error("record time precedes burst start")
		}
		if i > 0 && !records[i-1].Time.Before(r.Time) {
			t.Error("record timestamps not monotonic")
		}
	}
}

func TestLoopNoFix(t *testing.T) {
	sink := &memRecords{}
	loop := testLoop(&constDevice{volts: 0.5}, nil, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatal(err)
	}

	records := sink.all()
	if len(records) == 0 {
		t.Fatal("no records produced")
	}
	for _, r := range records {
		if r.HasFix {
			t.Error("record has a fix without a fix source")
		}
	}
}

func TestLoopSkipsFailedBurst(t *testing.T) {
	// The device times out mid-burst on the first cycle only. That
	// cycle must produce no record; later cycles proceed normally.
	dev := &constDevice{volts: 1.0, failAt: 3}
	sink := &memRecords{}
	loop := testLoop(dev, nil, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatal(err)
	}

	records := sink.all()
	if len(records) == 0 {
		t.Fatal("loop never recovered after a failed burst")
	}
	for _, r := range records {
		if r.Volts != 1.0 {
			t.Error("partial burst leaked into a record:", r.Volts)
		}
	}
}

func TestLoopRejectsBadInterval(t *testing.T) {
	loop := testLoop(&constDevice{volts: 1.0}, nil, &memRecords{})
	loop.Interval = 0
	if err := loop.Run(context.Background()); err == nil {
		t.Error("zero interval should fail")
	}
}
