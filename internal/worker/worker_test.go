package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/noahsaso/argus-sub001/internal/extractregistry"
	"github.com/noahsaso/argus-sub001/internal/queue"
	"github.com/noahsaso/argus-sub001/internal/sink"
	"github.com/noahsaso/argus-sub001/internal/state"
	"github.com/noahsaso/argus-sub001/internal/testutil"
)

func TestHandleFailsFatallyOnUnknownExtractor(t *testing.T) {
	w := New(nil, state.New(nil), extractregistry.NewRegistry(),
		sink.LoggingSearchSink{Logger: testutil.NewTestLogger(t)},
		sink.LoggingWebhookSink{Logger: testutil.NewTestLogger(t)},
		testutil.NewTestLogger(t), Config{})

	job := queue.NewJob("does/notExist", []byte(`{}`), "abc", 10, 1000)
	err := w.Handle(context.Background(), job)

	testutil.AssertError(t, err)
	testutil.AssertTrue(t, errors.Is(err, ErrExtractorNotFound))

	var fatal *queue.FatalError
	testutil.AssertTrue(t, errors.As(err, &fatal), "expected ExtractorNotFound to be wrapped as queue.Fatal")
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	testutil.AssertTrue(t, cfg.Timeout > 0)
	testutil.AssertTrue(t, cfg.MaxAttempts > 0)
	testutil.AssertTrue(t, cfg.BackoffBase > 0)
}
