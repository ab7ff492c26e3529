// Command spectrack reads discriminated spectral points (or upstream
// tracks) as JSON lines, assembles them into tracks, multi-peak tracks
// and events, and writes the results to the configured sinks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"tailscale.com/tsweb"

	"github.com/banshee-data/spectrack/internal/config"
	"github.com/banshee-data/spectrack/internal/httputil"
	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l3tracks"
	"github.com/banshee-data/spectrack/internal/spectral/l4multipeak"
	"github.com/banshee-data/spectrack/internal/spectral/l5events"
	"github.com/banshee-data/spectrack/internal/spectral/pipeline"
	"github.com/banshee-data/spectrack/internal/spectral/publish"
	"github.com/banshee-data/spectrack/internal/spectral/report"
	"github.com/banshee-data/spectrack/internal/spectral/storage/sqlite"
	"github.com/banshee-data/spectrack/internal/version"
)

type options struct {
	configPath  string
	inputPath   string
	dbPath      string
	mqttBroker  string
	mqttTopic   string
	plotPath    string
	htmlPath    string
	debugListen string
	runID       string
	verbose     bool
	trace       bool
	version     bool
}

func registerFlags(fs *flag.FlagSet, o *options) {
	fs.StringVar(&o.configPath, "config", "", "Tuning config file (.json, .yaml); built-in defaults when empty")
	fs.StringVar(&o.inputPath, "input", "-", "JSON-lines input file, - for stdin")
	fs.StringVar(&o.dbPath, "db", "", "SQLite result database; disabled when empty")
	fs.StringVar(&o.mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883; disabled when empty")
	fs.StringVar(&o.mqttTopic, "mqtt-topic", publish.DefaultPrefix, "MQTT topic prefix")
	fs.StringVar(&o.plotPath, "plot", "", "Write a PNG time-frequency plot to this path")
	fs.StringVar(&o.htmlPath, "html", "", "Write an HTML report to this path")
	fs.StringVar(&o.debugListen, "debug-listen", "", "Serve debug routes on this address once the input is processed")
	fs.StringVar(&o.runID, "run-id", "", "Run identifier stamped on every record; generated when empty")
	fs.BoolVar(&o.verbose, "v", false, "Log per-acquisition diagnostics")
	fs.BoolVar(&o.trace, "trace", false, "Log per-record telemetry")
	fs.BoolVar(&o.version, "version", false, "Print the build version and exit")
}

func main() {
	var o options
	registerFlags(flag.CommandLine, &o)
	flag.Parse()

	if o.version {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdin); err != nil {
		log.Fatal(err)
	}
}

// setLogWriters routes every layer's streams to stderr. The ops stream
// is always on.
func setLogWriters(verbose, trace bool) {
	var diagW, traceW io.Writer
	if verbose {
		diagW = os.Stderr
	}
	if trace {
		traceW = os.Stderr
	}
	l3tracks.SetLogWriters(os.Stderr, diagW, traceW)
	l4multipeak.SetLogWriters(os.Stderr, diagW, traceW)
	l5events.SetLogWriters(os.Stderr, diagW, traceW)
	pipeline.SetLogWriters(os.Stderr, diagW, traceW)
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func run(ctx context.Context, o options, stdin io.Reader) error {
	setLogWriters(o.verbose, o.trace)
	log.Printf("starting %s", version.String())

	tc, err := loadTuning(o.configPath)
	if err != nil {
		return err
	}
	cfg, err := pipeline.ConfigFromTuning(tc)
	if err != nil {
		return err
	}
	cfg.RunID = o.runID
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}

	var sinks spectral.MultiSink
	var collector *spectral.Collector
	if o.plotPath != "" || o.htmlPath != "" {
		collector = &spectral.Collector{}
		sinks = append(sinks, collector)
	}

	var db *sqlite.DB
	if o.dbPath != "" {
		db, err = sqlite.OpenDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open result database: %w", err)
		}
		defer db.Close()
		store, err := sqlite.NewResultStore(db, cfg.RunID, tc)
		if err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	if o.mqttBroker != "" {
		client, err := publish.Connect(publish.ClientConfig{Broker: o.mqttBroker, ClientID: clientID(cfg.RunID)})
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		pub, err := publish.NewPublisher(client, publish.Options{Prefix: o.mqttTopic, RunID: cfg.RunID, QoS: 1})
		if err != nil {
			return err
		}
		sinks = append(sinks, pub)
	}

	ctrl, err := pipeline.NewController(cfg, sinks)
	if err != nil {
		return err
	}

	in := stdin
	if o.inputPath != "" && o.inputPath != "-" {
		f, err := os.Open(o.inputPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	stats, feedErr := feed(ctx, in, ctrl)
	flushErr := ctrl.FlushAll(ctx)
	snap := ctrl.Stats()
	log.Printf("run %s: %d lines (%d rejected), %d acquisitions, %d tracks, %d multi-peak tracks, %d events, %d discarded, %d failed flushes",
		cfg.RunID, stats.Lines, stats.Rejected, snap.Acquisitions, snap.Tracks, snap.MultiPeakTracks, snap.Events, snap.Discarded, snap.Failures)

	if collector != nil {
		data := report.FromCollector(collector)
		title := "run " + cfg.RunID
		if o.plotPath != "" {
			if err := report.SavePNG(o.plotPath, data, report.PlotOptions{Title: title}); err != nil {
				return err
			}
		}
		if o.htmlPath != "" {
			if err := report.SaveHTML(o.htmlPath, data, title); err != nil {
				return err
			}
		}
	}

	if o.debugListen != "" && ctx.Err() == nil {
		if err := serveDebug(ctx, o.debugListen, newDebugMux(db, ctrl)); err != nil {
			return err
		}
	}
	return errors.Join(feedErr, flushErr)
}

// clientID derives an MQTT client id from the run id.
func clientID(runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return "spectrack-" + runID
}

// newDebugMux mounts the run statistics and, when a database is open,
// its admin routes.
func newDebugMux(db *sqlite.DB, ctrl *pipeline.Controller) *http.ServeMux {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)
	debug.Handle("spectral-stats", "Flush counters of this run", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, map[string]any{
			"run_id":  ctrl.RunID(),
			"version": version.Version,
			"stats":   ctrl.Stats(),
		})
	}))
	if db != nil {
		if err := db.AttachAdminRoutes(mux); err != nil {
			log.Printf("database debug routes unavailable: %v", err)
		}
	}
	return mux
}

// serveDebug serves mux on addr until ctx is cancelled.
func serveDebug(ctx context.Context, addr string, mux *http.ServeMux) error {
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving debug routes on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("failed to start debug server: %w", err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down debug server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("debug server force close error: %v", err)
		}
	}
	return nil
}
