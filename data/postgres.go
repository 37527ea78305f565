// Copyright © 2024 Fluorologger Authors

package data

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type postgres_driver struct {
}

func init() {
	RegisterDBDriver("postgres", postgres_driver{})
}

func (postgres postgres_driver) OpenDatabase(db *sql.DB, table string) error {
	if _, err := db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id          serial primary key,
		timestamp   text not null,
		voltage     double precision not null,
		latitude    double precision,
		longitude   double precision,
		fix_time    text
	)`, table)); err != nil {
		db.Close()
		return err
	}

	return nil
}

func (postgres postgres_driver) Close(db *sql.DB) {
}

func (postgres postgres_driver) InsertRecord(db *sql.DB, table string, r Record) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (
		timestamp,
		voltage,
		latitude,
		longitude,
		fix_time
	) VALUES ($1, $2, $3, $4, $5)`, table)

	_, err := db.Exec(stmt,
		r.Time.UTC().Format(timeLayout),
		r.Volts,
		nullFloat(r.Lat, r.HasFix),
		nullFloat(r.Lon, r.HasFix),
		nullFixTime(r.FixTime, r.HasFix))
	return err
}

func (postgres postgres_driver) QueryLast(db *sql.DB, table string) (Record, error) {
	stmt := fmt.Sprintf(`SELECT timestamp, voltage, latitude, longitude, fix_time
		FROM %s
		ORDER BY id DESC
		LIMIT 1`, table)
	return scanRecord(db.QueryRow(stmt))
}
