package sqlite

import (
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/spectrack/internal/httputil"
)

// TableCounts maps each result table to its row count.
type TableCounts map[string]int64

var resultTables = []string{
	"spectral_runs",
	"spectral_tracks",
	"spectral_multi_peak_tracks",
	"spectral_multi_peak_members",
	"spectral_events",
	"spectral_acquisitions",
}

// Counts returns the row count of every result table.
func (db *DB) Counts() (TableCounts, error) {
	counts := make(TableCounts, len(resultTables))
	for _, table := range resultTables {
		var n int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// AttachAdminRoutes mounts the debug routes for this database on mux:
// a live SQL console under /debug/tailsql/, row counts under
// /debug/spectral-counts and the run list under /debug/spectral-runs.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Spectrack results",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("spectral-counts", "Row counts of the result tables", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counts, err := db.Counts()
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err)
			return
		}
		httputil.WriteJSONOK(w, counts)
	}))

	debug.Handle("spectral-runs", "Runs recorded in this database", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runs, err := db.ListRuns()
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err)
			return
		}
		httputil.WriteJSONOK(w, runs)
	}))
	return nil
}
