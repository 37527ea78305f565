// Copyright © 2024 Fluorologger Authors

// Package daq drives the analog input channel of the fluorometer's
// data-acquisition device. A burst of samples is taken at a fixed rate
// and reduced to a single averaged reading; short or failed bursts are
// discarded whole.
package daq

import (
	"errors"
	"fmt"
	"time"
)

// Device is a single analog input channel. Read returns one sample in
// volts. The handle is opened once at startup and reused for every
// burst; implementations own any underlying file or driver handle.
type Device interface {
	Read() (float64, error)
	Close() error
}

// AveragedReading is the mean of one complete burst plus the instant
// the burst was initiated.
type AveragedReading struct {
	Volts float64
	Start time.Time
}

var ErrShortBurst = errors.New("daq: burst ended before requested sample count")

type Opener func(path string) (Device, error)

var devices map[string]Opener

func RegisterDevice(name string, opener Opener) {
	if nil == devices {
		devices = make(map[string]Opener)
	}
	devices[name] = opener
}

func Drivers() []string {
	names := make([]string, len(devices))
	i := 0
	for name := range devices {
		names[i] = name
		i++
	}
	return names
}

// Open opens the named device driver against path. Failure here is a
// startup failure; no acquisition is attempted.
func Open(driver, path string) (Device, error) {
	opener := devices[driver]
	if opener == nil {
		return nil, fmt.Errorf("daq: unknown device driver %q", driver)
	}
	return opener(path)
}

// Sampler takes fixed-size bursts from a Device and averages them.
type Sampler struct {
	Device Device
	Count  int // samples per burst
	Rate   int // samples per second
}

// SampleBurst reads Count samples at Rate and returns their mean and
// the burst start time. It blocks for the burst duration. Any read
// error discards the whole burst; no partial average is ever returned.
func (s *Sampler) SampleBurst() (AveragedReading, error) {
	if s.Count <= 0 || s.Rate <= 0 {
		return AveragedReading{}, fmt.Errorf("daq: invalid burst %d samples at %d Hz", s.Count, s.Rate)
	}

	start := time.Now().UTC()
	ticker := time.NewTicker(time.Second / time.Duration(s.Rate))
	defer ticker.Stop()

	sum := 0.0
	for i := 0; i < s.Count; i++ {
		v, err := s.Device.Read()
		if err != nil {
			return AveragedReading{}, fmt.Errorf("%w: sample %d of %d: %v", ErrShortBurst, i, s.Count, err)
		}
		sum += v
		if i < s.Count-1 {
			<-ticker.C
		}
	}

	return AveragedReading{
		Volts: sum / float64(s.Count),
		Start: start,
	}, nil
}
