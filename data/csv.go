// Copyright © 2024 Fluorologger Authors

package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{"timestamp", "voltage", "latitude", "longitude", "fix_time"}

// CSVLogger appends one line per record to a delimited text file. The
// header is written once when the file is created; reopening an
// existing file appends after its last line. Every append is flushed
// and synced before returning.
type CSVLogger struct {
	file   *os.File
	writer *csv.Writer
}

func OpenCSV(path string) (*CSVLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	logger := &CSVLogger{file: file, writer: csv.NewWriter(file)}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		if err := logger.write(csvHeader); err != nil {
			file.Close()
			return nil, err
		}
	}
	return logger, nil
}

func (c *CSVLogger) Append(r Record) error {
	return c.write(recordFields(r))
}

func (c *CSVLogger) Close() error {
	return c.file.Close()
}

func (c *CSVLogger) write(fields []string) error {
	if err := c.writer.Write(fields); err != nil {
		return err
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return err
	}
	return c.file.Sync()
}

// recordFields renders a record in the persisted field order. An
// unavailable fix becomes empty position and fix-time fields.
func recordFields(r Record) []string {
	lat, lon, fixTime := "", "", ""
	if r.HasFix {
		lat = formatFloat(r.Lat)
		lon = formatFloat(r.Lon)
		fixTime = r.FixTime.UTC().Format(timeLayout)
	}
	return []string{
		r.Time.UTC().Format(timeLayout),
		formatFloat(r.Volts),
		lat,
		lon,
		fixTime,
	}
}

// parseFields is the inverse of recordFields.
func parseFields(fields []string) (Record, error) {
	if len(fields) != len(csvHeader) {
		return Record{}, fmt.Errorf("data: expected %d fields, got %d", len(csvHeader), len(fields))
	}
	var r Record
	t, err := time.Parse(timeLayout, fields[0])
	if err != nil {
		return Record{}, err
	}
	r.Time = t
	if r.Volts, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return Record{}, err
	}
	if fields[2] == "" && fields[3] == "" && fields[4] == "" {
		return r, nil
	}
	if r.Lat, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return Record{}, err
	}
	if r.Lon, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return Record{}, err
	}
	if r.FixTime, err = time.Parse(timeLayout, fields[4]); err != nil {
		return Record{}, err
	}
	r.HasFix = true
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
