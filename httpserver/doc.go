/*
Package httpserver implements the operations HTTP server that runs next to
the engine. It reports health and handle pool occupancy and supports graceful
draining. It never exposes engine commands.

# Endpoints

  - GET /api/v1/pools - Capacity and allocation of every handle pool
  - GET /api/v1/pools/{pool} - One pool by name
  - GET /api/v1/status - Build version and scratch object slot
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof - When EnablePprof is set

Prometheus metrics, including per-pool handle gauges, are served separately
on MetricsAddr.

# Example Usage

	handler := httpserver.NewHandler(eng, logger)
	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               ":8080",
		MetricsAddr:              ":9090",
		Log:                      logger,
		DrainDuration:            45 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
	}, handler)
	if err != nil {
		return err
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package httpserver
