// Package api hosts the status server. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs/current for the live status of the latest run.
//   - GET /v1/runs and /v1/runs/{run_id} for run history via store.RunRepository.
package api
