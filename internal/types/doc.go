/*
Package types defines the records that flow through the request pipeline.

# Request

Request carries a sequence index and its creation time. It is created by
the generator and handed to exactly one worker through the request queue.

# Response

Response is built by a worker from a Request:
  - StartedAt is the request's creation time
  - FinishedAt is the time the worker finished the workload
  - Latency is FinishedAt - StartedAt
  - Value and Fingerprint are the workload output

Both records are values; they are never mutated after construction.
*/
package types
