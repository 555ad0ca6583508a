package types

import "time"

// Request is a synthetic request produced by the generator
type Request struct {
	Index     int       `json:"index" yaml:"index"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// NewRequest stamps a request with the current time
func NewRequest(index int) Request {
	return Request{Index: index, CreatedAt: time.Now()}
}

// Response is the processed form of a Request
type Response struct {
	Index       int           `json:"index" yaml:"index"`
	StartedAt   time.Time     `json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt" yaml:"finishedAt"`
	Latency     time.Duration `json:"latency" yaml:"latency"`
	Value       string        `json:"value" yaml:"value"`
	Fingerprint uint64        `json:"fingerprint" yaml:"fingerprint"`
}

// NewResponse builds a response for req finished at finishedAt.
// The latency is measured from the request's creation, so it includes queueing time.
func NewResponse(req Request, finishedAt time.Time, value string, fingerprint uint64) Response {
	return Response{
		Index:       req.Index,
		StartedAt:   req.CreatedAt,
		FinishedAt:  finishedAt,
		Latency:     finishedAt.Sub(req.CreatedAt),
		Value:       value,
		Fingerprint: fingerprint,
	}
}

// LatencyMs returns the latency truncated to whole milliseconds
func (r Response) LatencyMs() int64 {
	return r.Latency.Milliseconds()
}
