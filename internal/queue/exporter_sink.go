package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/exporter"
)

// ExporterSink adapts a Queue into the exporter.Sink the Batched Trace
// Exporter flushes into: one queue.Job per exported item, named by the
// item's Handler (the extractor to run).
type ExporterSink struct {
	Queue Queue
}

var _ exporter.Sink = ExporterSink{}

// Enqueue publishes every item in batch as its own extract job on topic.
func (s ExporterSink) Enqueue(ctx context.Context, topic string, batch exporter.Batch) error {
	for _, item := range batch.Items {
		data, err := json.Marshal(item.Data)
		if err != nil {
			return fmt.Errorf("exporter sink: marshal item %s/%s: %w", item.Handler, item.ID, err)
		}
		job := NewJob(item.Handler, data, "", batch.BlockHeight, 0)
		if err := s.Queue.Enqueue(ctx, topic, job); err != nil {
			return fmt.Errorf("exporter sink: enqueue %s/%s: %w", item.Handler, item.ID, err)
		}
	}
	return nil
}
