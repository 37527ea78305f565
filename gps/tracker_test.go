// Copyright © 2024 Fluorologger Authors

package gps

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	ggaFix    = "$GPGGA,123519.00,4130.0000,N,07036.0000,W,1,08,0.9,5.0,M,,M,,*6D\n"
	ggaFix2   = "$GPGGA,123521.00,4131.2000,N,07035.0000,W,1,08,0.9,5.0,M,,M,,*66\n"
	ggaNoFix  = "$GPGGA,123522.00,4130.0000,N,07036.0000,W,0,00,,,M,,M,,*60\n"
	gsv       = "$GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00*74\n"
	badVerify = "$GPGGA,123519.00,4130.0000,N,07036.0000,W,1,08,0.9,5.0,M,,M,,*6E\n"
)

func streamFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nmea.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitForFix(t *testing.T, tr *Tracker, timeout time.Duration) Fix {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fix, ok := tr.LatestFix(); ok {
			return fix
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no fix within", timeout)
	return Fix{}
}

func TestTrackerFix(t *testing.T) {
	tr := NewTracker(streamFile(t, gsv+ggaFix+"garbage\n"), 9600)

	if _, ok := tr.LatestFix(); ok {
		t.Error("fix available before any sentence")
	}

	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	fix := waitForFix(t, tr, 2*time.Second)
	if math.Abs(fix.Lat-41.5) > 1e-9 || math.Abs(fix.Lon+70.6) > 1e-9 {
		t.Error("bad fix", fix.Lat, fix.Lon)
	}
	if fix.Time.Hour() != 12 || fix.Time.Minute() != 35 {
		t.Error("bad fix time", fix.Time)
	}
}

func TestTrackerUnavailableUntilFirstFix(t *testing.T) {
	tr := NewTracker(streamFile(t, gsv+ggaNoFix+badVerify), 9600)
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	time.Sleep(300 * time.Millisecond)
	if _, ok := tr.LatestFix(); ok {
		t.Error("invalid sentences must not produce a fix")
	}
}

func TestTrackerKeepsFixAfterStreamEnds(t *testing.T) {
	tr := NewTracker(streamFile(t, ggaFix+badVerify), 9600)
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	first := waitForFix(t, tr, 2*time.Second)

	// The stream has ended (disconnect); the last fix must keep being
	// served, not revert to unavailable.
	time.Sleep(300 * time.Millisecond)
	fix, ok := tr.LatestFix()
	if !ok {
		t.Fatal("fix lost after stream ended")
	}
	if fix != first {
		t.Error("fix changed after stream ended")
	}
}

func TestTrackerReconnectResumesFixes(t *testing.T) {
	path := streamFile(t, ggaFix)
	tr := NewTracker(path, 9600)
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	waitForFix(t, tr, 2*time.Second)

	// The first stream has ended. A new stream carrying a newer fix
	// must be picked up once the listener reconnects.
	if err := os.WriteFile(path, []byte(ggaFix2), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		if fix, _ := tr.LatestFix(); math.Abs(fix.Lat-41.52) < 1e-9 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("fix did not advance after reconnect")
}

// quietThenData serves zero-byte reads before yielding its payload,
// like a healthy serial port with a read timeout on a silent line.
type quietThenData struct {
	quiet   int
	payload []byte
}

func (r *quietThenData) Read(p []byte) (int, error) {
	if r.quiet > 0 {
		r.quiet--
		return 0, nil
	}
	if len(r.payload) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.payload)
	r.payload = r.payload[n:]
	return n, nil
}

func TestScanSurvivesQuietLine(t *testing.T) {
	tr := NewTracker("unused", 9600)
	tr.done = make(chan struct{})

	// Enough empty reads for the scanner to give up more than once; the
	// fix after the quiet stretch must still come through.
	src := &quietThenData{quiet: 350, payload: []byte(ggaFix)}
	if !tr.scan(src) {
		t.Fatal("quiet line dropped the connection before the fix arrived")
	}
	fix, ok := tr.LatestFix()
	if !ok || math.Abs(fix.Lat-41.5) > 1e-9 {
		t.Fatal("bad fix after quiet line", fix)
	}
}

func TestTrackerNeverTearsFix(t *testing.T) {
	tr := NewTracker(streamFile(t, ggaFix+ggaFix2+ggaFix+ggaFix2), 9600)
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	waitForFix(t, tr, 2*time.Second)

	// Both sentences pair a distinct latitude with a distinct
	// longitude; observing a mixed pair means a torn update.
	stop := time.After(500 * time.Millisecond)
	for {
		select {
		case <-stop:
			return
		default:
		}
		fix, _ := tr.LatestFix()
		switch {
		case math.Abs(fix.Lat-41.5) < 1e-9:
			if math.Abs(fix.Lon+70.6) > 1e-9 {
				t.Fatal("torn fix", fix)
			}
		case math.Abs(fix.Lat-41.52) < 1e-9:
			if math.Abs(fix.Lon+70.0+35.0/60.0) > 1e-9 {
				t.Fatal("torn fix", fix)
			}
		default:
			t.Fatal("unexpected latitude", fix.Lat)
		}
	}
}

func TestTrackerStartupFailure(t *testing.T) {
	tr := NewTracker("/nonexistent/ttyUSB99", 9600)
	if err := tr.Start(); err == nil {
		tr.Stop()
		t.Fatal("unopenable port must fail at startup")
	}
}

func TestTrackerStopIdempotent(t *testing.T) {
	tr := NewTracker(streamFile(t, ggaFix), 9600)
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	tr.Stop()
	tr.Stop() // second stop is a no-op
}
