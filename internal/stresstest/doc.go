/*
Package stresstest runs the synthetic request pipeline and measures response latency.

# Overview

A run pushes RequestCount synthetic requests through a fixed pool of
workers and reports the latency of every response:

	generator -> request queue (cap 1) -> workers -> response queue (cap N) -> collector -> report

The package consists of these components:

 1. Executor (executor.go): owns every goroutine of a run, the queues and the stop flag
 2. Generator (generator.go): produces requests in index order, paced by the request queue
 3. Pool (pool.go): workers running the workload
 4. Collector (collector.go): drains responses, decides completion or abort, finalizes
 5. Stats and report (stats.go, report.go): summary statistics and the latency dump
 6. Manager (manager.go, analytics.go): SQLite persistence of runs and samples, per-parameter aggregates
 7. Metrics (metrics.go): Prometheus counters written as a textfile

# Backpressure

The request queue holds a single request, so the generator is never more
than one request ahead of the workers. The response queue holds one
response per worker. There is no other rate limiting.

# Stop flag and completion

Any generator or worker whose blocking queue operation is cancelled sets
the shared StopFlag and exits; failures never cross goroutine boundaries
otherwise. The collector waits up to DrainTimeout for each response:

  - response received: recorded, keep draining
  - timeout, flag clear: workers are slow, keep draining
  - timeout, flag set: abort with the samples collected so far

Once RequestCount responses are in, or on abort, the collector force-stops
the pool, sorts the samples and writes the report.

# Report Format

One line per latency sample in milliseconds, sorted ascending, followed by

	Response time: average <A>, median <M>, minimum <MIN>, maximum <MAX>.

The median is the sample at index count/2. With no samples the summary line
is replaced by "Response time: no samples collected."

# Example Usage

	out, err := os.Create("response_times.txt")
	if err != nil {
		return err
	}
	defer out.Close()

	executor, err := NewExecutor(&Config{
		ResponseSize: 1024,
		RequestCount: 100000,
		Workers:      8,
	}, out, WithLogger(logger))
	if err != nil {
		return err
	}

	result, err := executor.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Println(result.SummaryLine)

# Thread Safety

Executor.Snapshot and Executor.Stop may be called from any goroutine while
a run is in progress. Progress sinks receive events from several goroutines
at once.
*/
package stresstest
