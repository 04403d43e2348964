// Package api exposes a running pool over HTTP.
//
// Routes:
//
//	GET /api/status    run state and live prime count (JSON)
//	GET /api/metrics   metrics.Snapshot (JSON)
//	GET /metrics       Prometheus exposition
//	    /ws            websocket stream of pool events and periodic status
//
// The server only reads pool state through metrics and the event bus; it
// never touches slots or the controller.
package api
