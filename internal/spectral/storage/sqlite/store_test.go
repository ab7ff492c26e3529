package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
	"github.com/banshee-data/spectrack/internal/spectral/l3tracks"
	"github.com/banshee-data/spectrack/internal/spectral/l5events"
	"github.com/banshee-data/spectrack/internal/spectral/pipeline"
	"github.com/banshee-data/spectrack/internal/testutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(testutil.TempDBPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDB_MigratesSchema(t *testing.T) {
	t.Parallel()

	path := testutil.TempDBPath(t)
	db, err := OpenDB(path)
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	counts, err := db.Counts()
	require.NoError(t, err)
	assert.Len(t, counts, len(resultTables))
	for table, n := range counts {
		assert.Zero(t, n, table)
	}
	require.NoError(t, db.Close())

	// Reopening an up-to-date database is a no-op migration.
	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.Equal(t, path, db.Path())
}

func TestMigrateDown(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	_, err = db.Counts()
	assert.Error(t, err)

	require.NoError(t, db.MigrateUp())
	_, err = db.Counts()
	assert.NoError(t, err)
}

func sampleEvent() spectral.Event {
	a := spectral.Track{ComponentID: 1, AcquisitionID: 7, TrackID: 0, StartTime: 0, EndTime: 1, StartFrequency: 100, EndFrequency: 110, TotalPower: 2}
	b := spectral.Track{ComponentID: 1, AcquisitionID: 7, TrackID: 1, StartTime: 0.01, EndTime: 1.2, StartFrequency: 300, EndFrequency: 320, TotalPower: 3}
	m := spectral.MultiPeakTrack{
		ComponentID: 1, AcquisitionID: 7, EventSequenceID: 0,
		MeanStartTime: 0.005, MeanEndTime: 1.1, Tracks: []spectral.Track{a, b},
	}
	return spectral.Event{
		ComponentID: 1, AcquisitionID: 7, EventID: 0,
		MultiPeakTracks: []spectral.MultiPeakTrack{m},
		TrackEndTimes:   []float64{1, 1.2},
		StartTime:       0, EndTime: 1.2,
		StartFrequency: 100, EndFrequency: 320,
		MinFrequency: 100, MaxFrequency: 320,
		TotalPower: 5,
	}
}

func TestResultStore_Sink(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewResultStore(db, "run-a", map[string]any{"min-points": 2})
	require.NoError(t, err)
	assert.Equal(t, "run-a", store.RunID())

	e := sampleEvent()
	for _, tr := range e.Tracks() {
		require.NoError(t, store.Track(tr))
	}
	cut := spectral.Track{ComponentID: 1, AcquisitionID: 7, TrackID: 2, StartTime: 3, EndTime: 4, IsCut: true, NPoints: 5, TimeBinWidth: 0.01, FreqBinWidth: 1}
	require.NoError(t, store.Track(cut))
	require.NoError(t, store.MultiPeakTrack(e.MultiPeakTracks[0]))
	require.NoError(t, store.Event(e))
	sum := spectral.AcquisitionSummary{ComponentID: 1, AcquisitionID: 7, Points: 40, Tracks: 3, CutTracks: 1, MultiPeakTracks: 1, Events: 1, Discarded: 2}
	require.NoError(t, store.EndAcquisition(sum))

	tracks, err := db.ListTracks("run-a", 1, 7)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, e.Tracks()[1], tracks[1])
	assert.True(t, tracks[2].IsCut)
	assert.Equal(t, 5, tracks[2].NPoints)
	assert.Equal(t, 0.01, tracks[2].TimeBinWidth)

	members, err := db.ListMultiPeakMembers("run-a", 1, 7)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}}, members)

	events, err := db.ListEvents("run-a")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventRecord{
		RunID: "run-a", ComponentID: 1, AcquisitionID: 7, EventID: 0,
		StartTime: 0, EndTime: 1.2, StartFrequency: 100, EndFrequency: 320,
		MinFrequency: 100, MaxFrequency: 320, TotalPower: 5,
		MultiPeakTracks: 1, Tracks: 2, TrackEndTimes: []float64{1, 1.2},
	}, events[0])

	sums, err := db.ListSummaries("run-a")
	require.NoError(t, err)
	assert.Equal(t, []spectral.AcquisitionSummary{sum}, sums)

	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.JSONEq(t, `{"min-points":2}`, runs[0].ParamsJSON)

	// Other runs see nothing.
	events, err = db.ListEvents("run-b")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestResultStore_DuplicateTrackRejected(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewResultStore(db, "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, store.RunID())

	tr := spectral.Track{ComponentID: 1, AcquisitionID: 1, TrackID: 4, EndTime: 1}
	require.NoError(t, store.Track(tr))
	assert.Error(t, store.Track(tr))

	// Re-registering an existing run is allowed.
	_, err = NewResultStore(db, store.RunID(), nil)
	assert.NoError(t, err)
}

func TestResultStore_PipelineEndToEnd(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewResultStore(db, "", nil)
	require.NoError(t, err)

	ctrl, err := pipeline.NewController(pipeline.Config{
		Tracks:       l3tracks.Config{Radii: [2]float64{0.02, 3}, MinPoints: 2, Backend: l1index.BackendDense},
		Strategy:     l5events.SweepStrategy{SidebandTolerance: 0.05, JumpTolerance: 0.2},
		FlushWorkers: 2,
		RunID:        store.RunID(),
	}, store)
	require.NoError(t, err)

	ctx := context.Background()
	for comp := 0; comp < 3; comp++ {
		batch := testutil.Batch(comp, 1, testutil.Chirp(0, 100, 1, 30, 1), testutil.Chirp(0, 400, 1, 30, 1))
		require.NoError(t, ctrl.AddBatch(ctx, batch))
	}
	require.NoError(t, ctrl.FlushAll(ctx))

	sums, err := db.ListSummaries(store.RunID())
	require.NoError(t, err)
	require.Len(t, sums, 3)
	for _, s := range sums {
		assert.Equal(t, 60, s.Points)
		assert.Equal(t, 2, s.Tracks)
		assert.Equal(t, 1, s.MultiPeakTracks)
		assert.Equal(t, 1, s.Events)

		members, err := db.ListMultiPeakMembers(store.RunID(), s.ComponentID, 1)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0, 1}}, members)
	}

	events, err := db.ListEvents(store.RunID())
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i, e.ComponentID)
		assert.Equal(t, 2, e.Tracks)
	}
}

func TestResultStore_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewResultStore(db, "concurrent", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for comp := 0; comp < 8; comp++ {
		wg.Add(1)
		go func(comp int) {
			defer wg.Done()
			for id := 0; id < 8; id++ {
				tr := spectral.Track{ComponentID: comp, AcquisitionID: 1, TrackID: id, StartTime: float64(id), EndTime: float64(id) + 1}
				if err := store.Track(tr); err != nil {
					errs <- fmt.Errorf("component %d track %d: %w", comp, id, err)
				}
			}
		}(comp)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	counts, err := db.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(64), counts["spectral_tracks"])
}

// debugGet serves a loopback GET, which tsweb's debug guard admits.
func debugGet(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:4321"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAttachAdminRoutes(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewResultStore(db, "admin", nil)
	require.NoError(t, err)
	require.NoError(t, store.Track(spectral.Track{ComponentID: 1, AcquisitionID: 1, EndTime: 1}))

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	t.Run("counts", func(t *testing.T) {
		w := debugGet(mux, "/debug/spectral-counts")
		testutil.AssertStatusCode(t, w.Code, http.StatusOK)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var counts TableCounts
		require.NoError(t, json.NewDecoder(w.Body).Decode(&counts))
		assert.Equal(t, int64(1), counts["spectral_runs"])
		assert.Equal(t, int64(1), counts["spectral_tracks"])
		assert.Zero(t, counts["spectral_events"])
	})

	t.Run("runs", func(t *testing.T) {
		w := debugGet(mux, "/debug/spectral-runs")
		testutil.AssertStatusCode(t, w.Code, http.StatusOK)

		var runs []Run
		require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "admin", runs[0].RunID)
	})

	t.Run("tailsql", func(t *testing.T) {
		w := debugGet(mux, "/debug/tailsql/")
		assert.NotEqual(t, http.StatusNotFound, w.Code)
	})

	t.Run("remote caller refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/spectral-counts", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		testutil.AssertStatusCode(t, w.Code, http.StatusForbidden)
	})
}

func TestAttachAdminRoutes_CountsError(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))
	require.NoError(t, db.MigrateDown())

	w := debugGet(mux, "/debug/spectral-counts")
	testutil.AssertStatusCode(t, w.Code, http.StatusInternalServerError)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body["error"], "spectral_runs")
}
