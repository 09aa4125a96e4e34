/*
Package server hosts the dispatcher.

A gin engine carries the host concerns: panic recovery, tracing, request
metrics, optional CORS and rate limiting. Requests gin does not route itself
are first offered to the static file handler and then handed to the kernel,
which owns routing for the application.

	srv := server.New(cfg, application.Kernel(), server.Options{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	})
	go srv.Run()
	defer srv.Shutdown(ctx)
*/
package server
