// Copyright © 2024 Fluorologger Authors

// Package data persists acquisition records. Each record is fanned out
// to an append-only CSV file and a relational table; database backends
// register themselves the same way Go's sql drivers do.
package data

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Record is the unit of persistence: one averaged fluorometer reading
// merged with the GPS fix in effect when it was assembled. Time is the
// assembly instant and the authoritative record time; Burst and FixTime
// are carried for traceability. Records are immutable once built.
type Record struct {
	Time    time.Time
	Volts   float64
	Lat     float64
	Lon     float64
	FixTime time.Time
	HasFix  bool
	Burst   time.Time
}

const timeLayout = time.RFC3339Nano

var drivers map[string]DBdriver

type DBdriver interface {
	OpenDatabase(db *sql.DB, table string) error
	Close(db *sql.DB)
	InsertRecord(db *sql.DB, table string, r Record) error
	QueryLast(db *sql.DB, table string) (Record, error)
}

func init() {
	drivers = make(map[string]DBdriver)
}

func RegisterDBDriver(name string, driver DBdriver) {
	drivers[name] = driver
}

func DBDrivers() []string {
	names := make([]string, len(drivers))
	i := 0
	for name := range drivers {
		names[i] = name
		i++
	}
	return names
}

type Database struct {
	db     *sql.DB
	driver DBdriver
	table  string
}

// OpenDatabase connects to the configured backend and creates the
// record table if it does not exist yet. Existing rows are never
// touched; new records append after them.
func OpenDatabase() (*Database, error) {
	db, err := sql.Open(viper.GetString("dbDriver"), viper.GetString("database"))
	if err != nil {
		return nil, err
	}

	driver := drivers[viper.GetString("dbDriver")]
	if driver == nil {
		return nil, fmt.Errorf("data: unknown database driver %q", viper.GetString("dbDriver"))
	}

	table := viper.GetString("table")
	if err := driver.OpenDatabase(db, table); err != nil {
		return nil, err
	}

	return &Database{db, driver, table}, nil
}

func (database *Database) Close() {
	database.driver.Close(database.db)
	database.db.Close()
}

// Append inserts one record. The statement is committed before Append
// returns, so a crash between cycles loses at most the in-flight
// record.
func (database *Database) Append(r Record) error {
	return database.driver.InsertRecord(database.db, database.table, r)
}

// QueryLast returns the most recently inserted record.
func (database *Database) QueryLast() (Record, error) {
	return database.driver.QueryLast(database.db, database.table)
}

// nullFloat and nullFixTime turn the unavailable-fix placeholder into
// SQL NULLs.
func nullFloat(v float64, ok bool) interface{} {
	if !ok {
		return nil
	}
	return v
}

func nullFixTime(t time.Time, ok bool) interface{} {
	if !ok {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// scanRecord rebuilds a Record from one (timestamp, voltage, latitude,
// longitude, fix_time) row.
func scanRecord(row *sql.Row) (Record, error) {
	var (
		r       Record
		ts      string
		lat     sql.NullFloat64
		lon     sql.NullFloat64
		fixTime sql.NullString
	)
	if err := row.Scan(&ts, &r.Volts, &lat, &lon, &fixTime); err != nil {
		return Record{}, err
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return Record{}, err
	}
	r.Time = t
	if lat.Valid && lon.Valid && fixTime.Valid {
		ft, err := time.Parse(timeLayout, fixTime.String)
		if err != nil {
			return Record{}, err
		}
		r.Lat = lat.Float64
		r.Lon = lon.Float64
		r.FixTime = ft
		r.HasFix = true
	}
	return r, nil
}
