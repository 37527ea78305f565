// Copyright © 2024 Fluorologger Authors

package data

import (
	"fmt"

	jww "github.com/spf13/jwalterweatherman"
)

// escalateAfter is the consecutive-failure count at which a backend's
// write errors are promoted from warnings to errors.
const escalateAfter = 5

type appender interface {
	Append(Record) error
}

// Sink fans one record out to the file and database backends. Each
// backend is attempted independently; a failure in one never prevents
// the attempt on the other and never aborts the acquisition cycle.
type Sink struct {
	file appender
	db   appender

	fileFails int
	dbFails   int
}

func NewSink(file, db appender) *Sink {
	return &Sink{file: file, db: db}
}

// Append writes the record to both backends. It returns an error only
// when every backend failed, meaning the record was not persisted
// anywhere.
func (s *Sink) Append(r Record) error {
	ferr := s.file.Append(r)
	s.fileFails = tally("file", ferr, s.fileFails)

	derr := s.db.Append(r)
	s.dbFails = tally("database", derr, s.dbFails)

	if ferr != nil && derr != nil {
		return fmt.Errorf("record lost: file: %v; database: %v", ferr, derr)
	}
	return nil
}

func tally(name string, err error, fails int) int {
	if err == nil {
		return 0
	}
	fails++
	if fails >= escalateAfter {
		jww.ERROR.Printf("sink: %s append failed %d times in a row: %v", name, fails, err)
	} else {
		jww.WARN.Printf("sink: %s append failed: %v", name, err)
	}
	return fails
}
