/*
Package monitoring provides Prometheus metrics for the framework host.

# Overview

Every Metrics value owns a private registry. The host exposes it on the
configured metrics path; tests can create as many instances as they like.

# Metrics

- HTTP host metrics (requests, latency, response size)
- Dispatch metrics by matched route pattern and status
- Dispatch errors by exception kind
- Registered route count
- Background job throughput and duration
- Go runtime, process and uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "reports.build")
	// ... run the job ...
	timer.Stop("success")
*/
package monitoring
