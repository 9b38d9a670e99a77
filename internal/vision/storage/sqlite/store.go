// Package sqlite persists person records to a local SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/gesture.report/internal/monitoring"
	"github.com/banshee-data/gesture.report/internal/vision/geom"
	"github.com/banshee-data/gesture.report/internal/vision/pipeline"
)

var logf = monitoring.Scoped("sqlite")

// PersonStore records classified persons per frame. One row per person,
// keyed by frame id and group id.
type PersonStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*PersonStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PersonStore{db: db}, nil
}

// MigrateUp applies all pending migrations from migrationsDir.
// Returns nil when the schema is already at the latest version.
func (s *PersonStore) MigrateUp(migrationsDir string) error {
	m, err := s.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	// Not closing m: it would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion reports the current schema version and dirty state.
// Returns 0, false, nil when no migrations have been applied yet.
func (s *PersonStore) MigrateVersion(migrationsDir string) (version uint, dirty bool, err error) {
	m, err := s.newMigrate(migrationsDir)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *PersonStore) newMigrate(migrationsDir string) (*migrate.Migrate, error) {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving migrations path: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", absPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// PersistPersons writes one row per person in the frame result. All rows
// for a frame are written in a single transaction.
func (s *PersonStore) PersistPersons(res *pipeline.Result) error {
	if len(res.Persons) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO persons (
			frame_id, sensor_id, frame_time, group_id,
			pos_x, pos_y, pos_z, tags,
			point_x, point_y, point_z,
			point_qw, point_qx, point_qy, point_qz
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range res.Persons {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags for group %d: %w", p.GroupID, err)
		}

		var px, py, pz, qw, qx, qy, qz sql.NullFloat64
		if p.Pointing != nil {
			px = sql.NullFloat64{Float64: p.Pointing.Position.X, Valid: true}
			py = sql.NullFloat64{Float64: p.Pointing.Position.Y, Valid: true}
			pz = sql.NullFloat64{Float64: p.Pointing.Position.Z, Valid: true}
			qw = sql.NullFloat64{Float64: p.Pointing.Orientation.Real, Valid: true}
			qx = sql.NullFloat64{Float64: p.Pointing.Orientation.Imag, Valid: true}
			qy = sql.NullFloat64{Float64: p.Pointing.Orientation.Jmag, Valid: true}
			qz = sql.NullFloat64{Float64: p.Pointing.Orientation.Kmag, Valid: true}
		}

		_, err = stmt.Exec(
			res.FrameID.String(), res.SensorID, res.Timestamp.UTC(), p.GroupID,
			p.Position.X, p.Position.Y, p.Position.Z, string(tags),
			px, py, pz, qw, qx, qy, qz,
		)
		if err != nil {
			return fmt.Errorf("inserting person group %d: %w", p.GroupID, err)
		}
	}

	return tx.Commit()
}

// PersonRecord is a stored person row.
type PersonRecord struct {
	FrameID   string
	SensorID  string
	Timestamp time.Time
	GroupID   int
	Position  r3.Vec
	Tags      []string
	Pointing  *geom.Pose
}

// RecentPersons returns up to limit person rows for a sensor, newest first.
func (s *PersonStore) RecentPersons(sensorID string, limit int) ([]PersonRecord, error) {
	rows, err := s.db.Query(`
		SELECT frame_id, sensor_id, frame_time, group_id,
		       pos_x, pos_y, pos_z, tags,
		       point_x, point_y, point_z,
		       point_qw, point_qx, point_qy, point_qz
		FROM persons
		WHERE sensor_id = ?
		ORDER BY frame_time DESC, id DESC
		LIMIT ?
	`, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	var records []PersonRecord
	for rows.Next() {
		var rec PersonRecord
		var tags string
		var px, py, pz, qw, qx, qy, qz sql.NullFloat64
		err := rows.Scan(
			&rec.FrameID, &rec.SensorID, &rec.Timestamp, &rec.GroupID,
			&rec.Position.X, &rec.Position.Y, &rec.Position.Z, &tags,
			&px, &py, &pz, &qw, &qx, &qy, &qz,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning person row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
		if px.Valid {
			rec.Pointing = &geom.Pose{
				Position: r3.Vec{X: px.Float64, Y: py.Float64, Z: pz.Float64},
				Orientation: quat.Number{
					Real: qw.Float64, Imag: qx.Float64,
					Jmag: qy.Float64, Kmag: qz.Float64,
				},
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database connection.
func (s *PersonStore) Close() error {
	return s.db.Close()
}
