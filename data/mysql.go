// Copyright © 2024 Fluorologger Authors

package data

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

type mysql_driver struct {
}

func init() {
	RegisterDBDriver("mysql", mysql_driver{})
}

func (mysql mysql_driver) OpenDatabase(db *sql.DB, table string) error {
	if _, err := db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id          integer primary key auto_increment,
		timestamp   varchar(64) not null,
		voltage     double not null,
		latitude    double,
		longitude   double,
		fix_time    varchar(64)
	)`, table)); err != nil {
		db.Close()
		return err
	}

	return nil
}

func (mysql mysql_driver) Close(db *sql.DB) {
}

func (mysql mysql_driver) InsertRecord(db *sql.DB, table string, r Record) error {
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

func (mysql mysql_driver) QueryLast(db *sql.DB, table string) (Record, error) {
	stmt := fmt.Sprintf(`SELECT timestamp, voltage, latitude, longitude, fix_time
		FROM %s
		ORDER BY id DESC
		LIMIT 1`, table)
	return scanRecord(db.QueryRow(stmt))
}
