// Command mock-datalake serves the synthetic demo dataset over the data-lake
// API so the sentinel service can be exercised without a real lake.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/synth"
)

type samplePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type eventRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Risk        string    `json:"risk"`
	Component   string    `json:"component"`
	Description string    `json:"description"`
}

type metricsRequest struct {
	Metric string    `json:"metric"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

type eventsRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	seed := flag.Int64("seed", 42, "fixture random seed")
	flag.Parse()

	cfg := synth.DefaultConfig()
	cfg.Seed = *seed
	dataset := synth.Generate(cfg)
	byName := map[string]models.MetricSeries{
		dataset.Revenue.Name: dataset.Revenue,
		dataset.Latency.Name: dataset.Latency,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/lake/metrics", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req metricsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		series, ok := byName[strings.ToLower(req.Metric)]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var samples []samplePoint
		for _, p := range series.Points {
			if inWindow(p.Date, req.Start, req.End) {
				samples = append(samples, samplePoint{Date: p.Date, Value: p.Value})
			}
		}
		writeJSON(w, map[string]any{"series": samples})
	})

	mux.HandleFunc("/api/v1/lake/events", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req eventsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var records []eventRecord
		for _, e := range dataset.Events {
			if inWindow(e.Timestamp, req.Start, req.End) {
				records = append(records, eventRecord{
					Timestamp:   e.Timestamp,
					Source:      string(e.Source),
					Risk:        string(e.Risk),
					Component:   e.Component,
					Description: e.Description,
				})
			}
		}
		writeJSON(w, map[string]any{"events": records})
	})

	logger := log.New(log.Writer(), "mock-datalake ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, mux),
	}

	logger.Printf("serving %d days of fixtures on %s", cfg.Days, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func inWindow(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
