package data

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Load SQLite DB driver
)

type sqlite_driver struct {
}

func init() {
	RegisterDBDriver("sqlite3", sqlite_driver{})
}

func (sqlite sqlite_driver) OpenDatabase(db *sql.DB, table string) error {
	_, err := db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id          integer primary key autoincrement,
		timestamp   text not null,
		voltage     real not null,
		latitude    real,
		longitude   real,
		fix_time    text
	)`, table))
	if err != nil {
		db.Close()
		return err
	}

	return nil
}

func (sqlite sqlite_driver) Close(db *sql.DB) {
}

func (sqlite sqlite_driver) InsertRecord(db *sql.DB, table string, r Record) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (
		timestamp,
		voltage,
		latitude,
		longitude,
		fix_time
	) VALUES (?, ?, ?, ?, ?)`, table)

	_, err := db.Exec(stmt,
		r.Time.UTC().Format(timeLayout),
		r.Volts,
		nullFloat(r.Lat, r.HasFix),
		nullFloat(r.Lon, r.HasFix),
		nullFixTime(r.FixTime, r.HasFix))
	return err
}

func (sqlite sqlite_driver) QueryLast(db *sql.DB, table string) (Record, error) {
	stmt := fmt.Sprintf(`SELECT timestamp, voltage, latitude, longitude, fix_time
		FROM %s
		ORDER BY id DESC
		LIMIT 1`, table)
	return scanRecord(db.QueryRow(stmt))
}
