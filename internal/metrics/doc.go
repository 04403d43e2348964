// Package metrics collects counters and latency samples for a pool run.
//
// All Record* methods are safe for concurrent use by the controller and
// every worker. Counters are plain atomics; oracle latencies are kept in a
// bounded sample used for the P99 estimate.
//
// # Basic Usage
//
//	m := metrics.New()
//	cfg.Metrics = m
//	count, err := p.Run(ctx, tasks)
//
//	snap := m.Snapshot()
//	fmt.Printf("processed=%d primes=%d p99=%v\n",
//	    snap.TasksProcessed, snap.PrimesFound, snap.P99Latency)
//
// # Prometheus
//
// NewCollector wraps a Metrics as a prometheus.Collector so it can be
// registered on any registry and scraped through promhttp.
package metrics
