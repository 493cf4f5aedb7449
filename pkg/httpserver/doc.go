// Package httpserver runs the notifykit ops server: a net/http server with
// graceful shutdown and named readiness checks.
//
// Run blocks until its context is cancelled and then drains in-flight
// requests within the shutdown timeout, so it fits an errgroup next to the
// schedulers:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// HealthCheckHandler answers liveness probes when built without checks and
// readiness probes otherwise. The body is a JSON object listing the failed
// checks.
package httpserver
