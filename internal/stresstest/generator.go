package stresstest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/studiowebux/reqproc/internal/queue"
	"github.com/studiowebux/reqproc/internal/types"
	"go.uber.org/zap"
)

// generator pushes RequestCount requests in index order onto the request queue.
// The queue's blocking push is its only pacing.
type generator struct {
	total    int
	step     int
	requests *queue.Bounded[types.Request]
	stop     *StopFlag
	progress ProgressSink
	metrics  *Metrics
	logger   *zap.Logger

	generated atomic.Int64
}

// run generates requests until done or until a push is cancelled.
// A cancelled push signals the stop flag; the remaining indices are never generated.
func (g *generator) run(ctx context.Context) {
	for i := 0; i < g.total; i++ {
		if err := g.requests.Push(ctx, types.NewRequest(i)); err != nil {
			g.stop.Signal()
			g.logger.Warn("Request generation interrupted",
				zap.Int("index", i),
				zap.Int("total", g.total),
				zap.Error(err))
			break
		}

		n := int(g.generated.Add(1))
		g.metrics.requestsGenerated.Inc()

		if i == g.total-1 || i%g.step == 0 {
			g.progress.Progress(ProgressEvent{
				Stage:     StageGenerating,
				Message:   fmt.Sprintf("generated %d/%d requests", n, g.total),
				Generated: n,
				Total:     g.total,
			})
		}
	}

	n := g.count()
	g.progress.Progress(ProgressEvent{
		Stage:     StageGeneratorDone,
		Message:   fmt.Sprintf("finished generating requests (%d/%d)", n, g.total),
		Generated: n,
		Total:     g.total,
	})
}

func (g *generator) count() int {
	return int(g.generated.Load())
}
