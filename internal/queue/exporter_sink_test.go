package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsaso/argus-sub001/internal/exporter"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func (q *recordingQueue) Enqueue(_ context.Context, _ string, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *recordingQueue) Consume(context.Context, string, int, Handler) error { return nil }
func (q *recordingQueue) Close() error                                       { return nil }

func TestExporterSinkEnqueuesOneJobPerItem(t *testing.T) {
	rq := &recordingQueue{}
	s := ExporterSink{Queue: rq}

	batch := exporter.Batch{
		BlockHeight: 42,
		Items: []exporter.Item{
			{Handler: "wasm/stateEvent", ID: "a", Data: map[string]any{"k": "v"}, BlockHeight: 42},
			{Handler: "bank/balance", ID: "b", Data: map[string]any{"k": 2}, BlockHeight: 42},
		},
	}

	err := s.Enqueue(context.Background(), "extract", batch)
	require.NoError(t, err)
	require.Len(t, rq.jobs, 2)
	assert.Equal(t, "wasm/stateEvent", rq.jobs[0].Extractor)
	assert.Equal(t, "bank/balance", rq.jobs[1].Extractor)
	assert.Equal(t, uint64(42), rq.jobs[0].BlockHeight)
}
