package location

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"time"

	"go.trai.ch/zerr"
	_ "modernc.org/sqlite"

	"github.com/randytsao24/reachmap/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// OpenSQLite opens a catalog database. SQLite allows one writer, so the pool is
// pinned to a single connection, which also keeps ":memory:" databases alive.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "opening catalog database"), "path", path)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, zerr.With(zerr.Wrap(err, "pinging catalog database"), "path", path)
	}
	return conn, nil
}

// LoadSQLite reads the stations table in position order
func LoadSQLite(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT station_id, station_name, station_lat, station_lon, lines
		FROM stations
		ORDER BY position`)
	if err != nil {
		return nil, zerr.Wrap(err, "querying stations")
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		var lines string
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &lines); err != nil {
			return nil, zerr.Wrap(err, "scanning station row")
		}
		s.Lines = strings.Fields(lines)
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, "iterating stations")
	}

	if len(stations) == 0 {
		return nil, zerr.Wrap(ErrEmptyCatalog, "loading catalog from sqlite")
	}
	return NewCatalog(stations), nil
}

// WriteSQLite replaces the stations table with the given stations in one transaction
func WriteSQLite(ctx context.Context, db *sql.DB, stations []models.Station) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return zerr.Wrap(err, "ensuring schema")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stations`); err != nil {
		return zerr.Wrap(err, "clearing stations")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (position, station_id, station_name, station_lat, station_lon, lines)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return zerr.Wrap(err, "preparing insert")
	}
	defer stmt.Close()

	for i, s := range stations {
		if _, err := stmt.ExecContext(ctx, i, s.ID, s.Name, s.Latitude, s.Longitude, strings.Join(s.Lines, " ")); err != nil {
			return zerr.With(zerr.Wrap(err, "inserting station"), "station_id", s.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return zerr.Wrap(err, "committing stations")
	}
	return nil
}
