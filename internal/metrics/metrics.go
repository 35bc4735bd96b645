// Package metrics exposes poll and router client activity as Prometheus
// metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tonhe/fritzmon/internal/fritz"
)

const namespace = "fritzmon"

// Collector bundles the fritzmon metrics registered on one registry.
type Collector struct {
	gatherer prometheus.Gatherer

	Polls        *prometheus.CounterVec
	PollDuration prometheus.Histogram
	Requests     *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	Throughput   *prometheus.GaugeVec
	LineRate     *prometheus.GaugeVec
	LastSuccess  prometheus.Gauge
}

// NewCollector registers the metrics on reg. A nil reg gets a private
// registry so several collectors can coexist in tests.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Bandwidth polls by result.",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent authenticating and fetching one poll.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Router requests by kind and outcome.",
		}, []string{"kind", "type"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Router request failures by kind and reason.",
		}, []string{"kind", "reason"}),
		Throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_kbps",
			Help:      "Latest total throughput in kbit/s.",
		}, []string{"direction"}),
		LineRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "line_rate_kbps",
			Help:      "Line rates reported by the router in kbit/s.",
		}, []string{"direction", "rate"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful graph fetch.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.Polls, c.PollDuration, c.Requests, c.Errors, c.Throughput, c.LineRate, c.LastSuccess,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// ObservePoll records one poller attempt. Its signature matches
// engine.Config.OnPoll.
func (c *Collector) ObservePoll(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Polls.WithLabelValues(result).Inc()
	c.PollDuration.Observe(d.Seconds())
}

// Observe is a fritz.Observer.
func (c *Collector) Observe(ev fritz.Event) {
	kind := string(ev.Kind)
	c.Requests.WithLabelValues(kind, ev.Type.String()).Inc()
	if ev.Type == fritz.EventError {
		c.Errors.WithLabelValues(kind, Reason(ev.Err)).Inc()
		return
	}
	bw := ev.Bandwidth
	if bw == nil {
		return
	}
	c.Throughput.WithLabelValues(string(fritz.Upstream)).Set(bw.Upstream.Total)
	c.Throughput.WithLabelValues(string(fritz.Downstream)).Set(bw.Downstream.Total)
	c.LineRate.WithLabelValues(string(fritz.Upstream), "available").Set(bw.Available.Upstream)
	c.LineRate.WithLabelValues(string(fritz.Downstream), "available").Set(bw.Available.Downstream)
	c.LineRate.WithLabelValues(string(fritz.Upstream), "max").Set(bw.Max.Upstream)
	c.LineRate.WithLabelValues(string(fritz.Downstream), "max").Set(bw.Max.Downstream)
	c.LastSuccess.Set(float64(ev.At.Unix()))
}

// Reason maps an error to a low-cardinality label value.
func Reason(err error) string {
	var (
		exceeded  *fritz.AuthTriesExceededError
		sidErr    *fritz.SIDError
		challenge *fritz.ChallengeError
		parseErr  *fritz.ParseError
		fetchErr  *fritz.FetchError
		infoErr   *fritz.InfoError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &exceeded):
		return "auth_tries_exceeded"
	case errors.Is(err, fritz.ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &sidErr):
		return "sid_rejected"
	case errors.As(err, &challenge):
		return "challenge"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &infoErr):
		return "info"
	}
	return "other"
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return c.serve(ctx, ln, log)
}

func (c *Collector) serve(ctx context.Context, ln net.Listener, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
