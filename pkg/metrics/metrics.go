package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
)

const namespace = "notifykit"

// Send results used as the "result" label.
const (
	ResultSuccess   = "success"
	ResultTransient = "transient"
	ResultPermanent = "permanent"
)

// Collector holds every notifykit metric.
type Collector struct {
	jobsScheduled  *prometheus.CounterVec
	jobsDropped    *prometheus.CounterVec
	flushes        *prometheus.CounterVec
	flushDuration  *prometheus.HistogramVec
	flushBatchSize *prometheus.HistogramVec
	flushesActive  *prometheus.GaugeVec
	retryDelay     *prometheus.HistogramVec

	sends        *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
}

var _ scheduler.Observer = (*Collector)(nil)

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		jobsScheduled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs_scheduled_total",
			Help:      "Jobs accepted by a scheduler.",
		}, []string{"scheduler"}),
		jobsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs_dropped_total",
			Help:      "Pending jobs dropped on shutdown.",
		}, []string{"scheduler"}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_flushes_total",
			Help:      "Finished flushes by outcome.",
		}, []string{"scheduler", "outcome"}),
		flushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_flush_duration_seconds",
			Help:      "Handler run time of successful flushes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scheduler"}),
		flushBatchSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_flush_batch_size",
			Help:      "Jobs per flushed batch.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"scheduler"}),
		flushesActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_flushes_active",
			Help:      "Flushes currently running.",
		}, []string{"scheduler"}),
		retryDelay: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_retry_delay_seconds",
			Help:      "Delay before a retried batch runs again.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"scheduler"}),
		sends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Transport calls by channel and result.",
		}, []string{"channel", "result"}),
		sendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "channel_send_duration_seconds",
			Help:      "Transport call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
}

func (c *Collector) JobScheduled(name string) {
	c.jobsScheduled.WithLabelValues(name).Inc()
}

func (c *Collector) FlushStarted(name string, size int) {
	c.flushesActive.WithLabelValues(name).Inc()
	c.flushBatchSize.WithLabelValues(name).Observe(float64(size))
}

func (c *Collector) FlushCompleted(name string, _ int, elapsed time.Duration) {
	c.flushesActive.WithLabelValues(name).Dec()
	c.flushes.WithLabelValues(name, scheduler.OutcomeCompleted.String()).Inc()
	c.flushDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (c *Collector) FlushRetried(name string, _ int, _ int, after time.Duration) {
	c.flushesActive.WithLabelValues(name).Dec()
	c.flushes.WithLabelValues(name, scheduler.OutcomeRetry.String()).Inc()
	c.retryDelay.WithLabelValues(name).Observe(after.Seconds())
}

func (c *Collector) FlushFailed(name string, _ int, _ error) {
	c.flushesActive.WithLabelValues(name).Dec()
	c.flushes.WithLabelValues(name, scheduler.OutcomeFailed.String()).Inc()
}

func (c *Collector) JobsDropped(name string, n int) {
	c.jobsDropped.WithLabelValues(name).Add(float64(n))
}

// Channel wraps ch so its sends are recorded.
func (c *Collector) Channel(ch channel.Channel) channel.Channel {
	return &instrumented{Channel: ch, collector: c}
}

type instrumented struct {
	channel.Channel
	collector *Collector
}

func (i *instrumented) Send(ctx context.Context, msg channel.Message) error {
	start := time.Now()
	err := i.Channel.Send(ctx, msg)

	id := i.Channel.ID()
	i.collector.sendDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())
	i.collector.sends.WithLabelValues(id, result(err)).Inc()
	return err
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case channel.IsPermanent(err):
		return ResultPermanent
	default:
		return ResultTransient
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
