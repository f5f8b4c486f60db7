// Command metricsserver demonstrates wiring a tinypg.Connection's
// metrics.Collector into an HTTP server: Prometheus scrape endpoint plus
// a liveness probe backed by internal/reconnect.Watcher. It is a sample
// for an application embedding the driver, not part of the driver's own
// API surface.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinypg/tinypg"
	"github.com/tinypg/tinypg/internal/metrics"
	"github.com/tinypg/tinypg/internal/reconnect"
)

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 5432, "server port")
	user := flag.String("user", "postgres", "username")
	password := flag.String("password", "", "password")
	database := flag.String("database", "postgres", "database name")
	bind := flag.String("bind", ":9090", "address to serve /metrics and /healthz on")
	flag.Parse()

	collector := metrics.New()

	conn, err := tinypg.Connect(*host, *port, *user, *password, *database, tinypg.WithMetrics(collector))
	if err != nil {
		slog.Error("connecting", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	watcher := reconnect.New(conn, reconnect.Options{Interval: 15 * time.Second})
	watcher.Start()
	defer watcher.Stop()

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := watcher.Status()
		w.Header().Set("Content-Type", "application/json")
		if status == reconnect.StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status.String()})
	})

	slog.Info("metricsserver listening", "addr", *bind)
	if err := http.ListenAndServe(*bind, r); err != nil {
		slog.Error("serving", "error", err)
		os.Exit(1)
	}
}
