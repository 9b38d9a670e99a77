package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/gesture.report/internal/vision/geom"
	"github.com/banshee-data/gesture.report/internal/vision/pipeline"
)

// repoMigrationsDir walks up from the package directory to the module root
// so tests exercise the real migration files.
func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getting working directory: %v", err)
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("migrations directory not found")
		}
		dir = parent
	}
}

func setupStore(t *testing.T) *PersonStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "persons.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.MigrateUp(repoMigrationsDir(t)); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return store
}

func TestMigrateUp_Idempotent(t *testing.T) {
	store := setupStore(t)

	// Second run is a no-op.
	if err := store.MigrateUp(repoMigrationsDir(t)); err != nil {
		t.Errorf("second MigrateUp: %v", err)
	}

	version, dirty, err := store.MigrateVersion(repoMigrationsDir(t))
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("schema reported dirty after clean migration")
	}
	if version == 0 {
		t.Error("expected non-zero schema version")
	}
}

func TestPersistAndQueryPersons(t *testing.T) {
	store := setupStore(t)

	frameID := uuid.New()
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	res := &pipeline.Result{
		FrameID:   frameID,
		SensorID:  "lobby",
		Timestamp: ts,
		Persons: []pipeline.Person{
			{
				GroupID:  0,
				Position: r3.Vec{X: 0.1, Y: -0.4, Z: 2.5},
				Tags:     []string{"RWave", "is_pointing"},
				Pointing: &geom.Pose{
					Position:    r3.Vec{X: 0.3, Y: -0.2, Z: 2.4},
					Orientation: quat.Number{Real: 1},
				},
			},
			{
				GroupID:  1,
				Position: r3.Vec{Z: 3.1},
				Tags:     nil,
			},
		},
	}

	require.NoError(t, store.PersistPersons(res))

	records, err := store.RecentPersons("lobby", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byGroup := map[int]PersonRecord{}
	for _, rec := range records {
		byGroup[rec.GroupID] = rec
	}

	first, ok := byGroup[0]
	require.True(t, ok, "missing record for group 0")
	assert.Equal(t, frameID.String(), first.FrameID)
	assert.True(t, first.Timestamp.Equal(ts), "timestamp = %v, want %v", first.Timestamp, ts)
	assert.Equal(t, 2.5, first.Position.Z)
	assert.Equal(t, []string{"RWave", "is_pointing"}, first.Tags)
	require.NotNil(t, first.Pointing)
	assert.Equal(t, 1.0, first.Pointing.Orientation.Real)
	assert.Equal(t, 0.3, first.Pointing.Position.X)

	second, ok := byGroup[1]
	require.True(t, ok, "missing record for group 1")
	assert.Nil(t, second.Pointing)
	assert.Empty(t, second.Tags)
}

func TestPersistPersons_EmptyResultIsNoop(t *testing.T) {
	store := setupStore(t)

	res := &pipeline.Result{
		FrameID:   uuid.New(),
		SensorID:  "lobby",
		Timestamp: time.Now(),
	}
	if err := store.PersistPersons(res); err != nil {
		t.Fatalf("PersistPersons: %v", err)
	}

	records, err := store.RecentPersons("lobby", 10)
	if err != nil {
		t.Fatalf("RecentPersons: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestRecentPersons_FiltersBySensor(t *testing.T) {
	store := setupStore(t)

	for _, sensor := range []string{"lobby", "atrium"} {
		res := &pipeline.Result{
			FrameID:   uuid.New(),
			SensorID:  sensor,
			Timestamp: time.Now(),
			Persons:   []pipeline.Person{{GroupID: 0, Position: r3.Vec{Z: 2}}},
		}
		if err := store.PersistPersons(res); err != nil {
			t.Fatalf("PersistPersons(%s): %v", sensor, err)
		}
	}

	records, err := store.RecentPersons("atrium", 10)
	if err != nil {
		t.Fatalf("RecentPersons: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].SensorID != "atrium" {
		t.Errorf("sensor = %q, want atrium", records[0].SensorID)
	}
}
