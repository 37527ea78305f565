// Copyright © 2024 Fluorologger Authors

// Package gps maintains the vessel's most recent position fix. A
// background listener reads NMEA sentences from a serial stream and
// atomically replaces a shared Fix; callers poll LatestFix, which never
// blocks and never observes a half-updated value.
package gps

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/tarm/serial"
)

const (
	readTimeout    = time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	stopTimeout    = 3 * time.Second
)

// Tracker owns the serial connection and the background listener. The
// serial handle is touched only by the listener goroutine.
type Tracker struct {
	port string
	baud int

	fix atomic.Value // Fix, set only by the listener

	mu     sync.Mutex
	done   chan struct{}
	closer io.Closer
	wg     sync.WaitGroup
}

func NewTracker(port string, baud int) *Tracker {
	return &Tracker{port: port, baud: baud}
}

// Start opens the stream and launches the listener. An unopenable port
// is a startup failure; once running, lost connections are retried with
// backoff without surfacing to the caller.
func (t *Tracker) Start() error {
	conn, err := t.open()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.done = make(chan struct{})
	t.closer = conn
	t.mu.Unlock()

	jww.INFO.Printf("gps: listening on %s at %d baud", t.port, t.baud)
	t.wg.Add(1)
	go t.listen(conn)
	return nil
}

// LatestFix returns the most recently parsed fix. It returns ok=false
// only before the first valid sentence has ever arrived; after that the
// last fix keeps being served even across disconnects.
func (t *Tracker) LatestFix() (Fix, bool) {
	v := t.fix.Load()
	if v == nil {
		return Fix{}, false
	}
	return v.(Fix), true
}

// Stop signals the listener and joins it with a bounded timeout. A
// listener stuck in a serial driver is abandoned after the timeout; its
// connection is closed either way so shutdown never hangs.
func (t *Tracker) Stop() {
	t.mu.Lock()
	done := t.done
	closer := t.closer
	t.done = nil
	t.closer = nil
	t.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	if closer != nil {
		closer.Close()
	}

	joined := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(stopTimeout):
		jww.WARN.Println("gps: listener did not stop in time, abandoning")
	}
}

// open connects to the configured port. A path that is not a device
// node is opened as a plain file, so recorded streams can be replayed.
func (t *Tracker) open() (io.ReadCloser, error) {
	fi, err := os.Stat(t.port)
	if err == nil && fi.Mode()&os.ModeType == 0 {
		return os.Open(t.port)
	}
	return serial.OpenPort(&serial.Config{
		Name:        t.port,
		Baud:        t.baud,
		ReadTimeout: readTimeout,
	})
}

func (t *Tracker) listen(conn io.ReadCloser) {
	defer t.wg.Done()

	backoff := initialBackoff
	for {
		if conn == nil {
			var err error
			conn, err = t.open()
			if err != nil {
				jww.WARN.Printf("gps: reconnect to %s failed, retrying in %s: %v", t.port, backoff, err)
				if !t.sleep(backoff) {
					return
				}
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			jww.INFO.Printf("gps: reconnected to %s", t.port)
			if !t.swapCloser(conn) {
				conn.Close()
				return
			}
		}

		got := t.scan(conn)
		conn.Close()
		conn = nil

		if t.stopping() {
			return
		}
		if got {
			backoff = initialBackoff
		} else if backoff < maxBackoff {
			backoff *= 2
		}
		jww.WARN.Printf("gps: stream on %s ended, reconnecting in %s", t.port, backoff)
		if !t.sleep(backoff) {
			return
		}
	}
}

// scan consumes sentences until the stream ends. It reports whether at
// least one valid fix was parsed, which resets the reconnect backoff.
func (t *Tracker) scan(conn io.Reader) bool {
	got := false
	for {
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 256), 4096)
		for scanner.Scan() {
			if t.stopping() {
				return got
			}
			if fix, ok := parseSentence(scanner.Text(), time.Now()); ok {
				t.fix.Store(fix)
				got = true
			}
		}
		// A silent line under the serial read timeout yields enough
		// zero-byte reads for the scanner to give up with ErrNoProgress.
		// The port is still healthy, so keep reading on it instead of
		// tearing the connection down.
		if !errors.Is(scanner.Err(), io.ErrNoProgress) || t.stopping() {
			return got
		}
	}
}

func (t *Tracker) stopping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done == nil
}

// sleep waits for d or until Stop, reporting false on Stop.
func (t *Tracker) sleep(d time.Duration) bool {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	case <-time.After(d):
		return true
	}
}

// swapCloser publishes the live connection so Stop can interrupt a
// blocking read. Returns false if Stop already ran.
func (t *Tracker) swapCloser(c io.Closer) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		return false
	}
	t.closer = c
	return true
}
