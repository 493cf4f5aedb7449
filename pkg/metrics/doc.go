// Package metrics exposes Prometheus collectors for the scheduler and the
// channel transports.
//
// Collector implements scheduler.Observer and wraps channels so every Send
// is counted and timed:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	sched, _ := scheduler.New(handler, scheduler.WithObserver(m))
//	email := m.Channel(email.NewChannel(sender))
//
// Handler serves the registry for the ops server.
package metrics
