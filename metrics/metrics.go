package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memory_match"

// Collector owns the game and HTTP collectors and the registry they are
// exposed from.
type Collector struct {
	registry *prometheus.Registry

	gamesStarted   *prometheus.CounterVec
	flips          *prometheus.CounterVec
	gamesCompleted prometheus.Counter
	movesPerGame   prometheus.Histogram
	scores         prometheus.Histogram
	gamesEvicted   prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Collector on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		gamesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games dealt, by deck theme.",
		}, []string{"config"}),
		flips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flips_total",
			Help:      "Card flips, by result.",
		}, []string{"result"}),
		gamesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Games with every pair found.",
		}),
		movesPerGame: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "moves_per_game",
			Help:      "Moves taken to complete a game.",
			Buckets:   prometheus.LinearBuckets(8, 4, 12),
		}),
		scores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "saved_scores",
			Help:      "Scores saved by players.",
			Buckets:   prometheus.LinearBuckets(1000, 1000, 10),
		}),
		gamesEvicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_evicted_total",
			Help:      "Games dropped because a session reached its game limit.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) GameStarted(config string) {
	if config == "" {
		config = "default"
	}
	c.gamesStarted.WithLabelValues(config).Inc()
}

// CardFlipped counts a flip. result is one of "open", "match", "no_match"
// or "ignored".
func (c *Collector) CardFlipped(result string) {
	c.flips.WithLabelValues(result).Inc()
}

func (c *Collector) GameCompleted(moves int) {
	c.gamesCompleted.Inc()
	c.movesPerGame.Observe(float64(moves))
}

func (c *Collector) ScoreSaved(score int) {
	c.scores.Observe(float64(score))
}

func (c *Collector) GamesEvicted(n int) {
	c.gamesEvicted.Add(float64(n))
}

// Middleware records request count and latency per mux route template.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack passes the connection through for websocket upgrades.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
