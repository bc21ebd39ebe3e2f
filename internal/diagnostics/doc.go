// Package diagnostics runs the health checks behind `hybridqa doctor`:
// data sources, model backends, credentials and host resources.
//
// Checks run concurrently with a per-check timeout. A failing required
// check fails the report; optional checks only warn.
package diagnostics
