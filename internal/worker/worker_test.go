package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/cache"
	"github.com/stretchr/testify/assert"
)

// request handler stub that counts handled requests
type countingHandler struct {
	handled atomic.Int32
}

func (h *countingHandler) Handle(request interface{}) {
	h.handled.Add(1)
}

// finalizer stub that records whether it ran
type recordingFinalizer struct {
	finalized atomic.Bool
}

func (f *recordingFinalizer) Finalize() {
	f.finalized.Store(true)
}

func TestNewWorker(t *testing.T) {
	assertion := assert.New(t)

	var (
		validConfig = WorkerConfig{
			Ctx:          context.Background(),
			Id:           "testWorker",
			Wg:           new(sync.WaitGroup),
			RequestChan:  make(chan interface{}, 1),
			ErrorChan:    make(chan error, 1),
			ResultsCache: cache.NewDecodeResultsCache(),
		}
		workerTests = []struct {
			name               string
			input              WorkerConfig
			expectedValidValue bool
			expectedError      error
		}{
			{"valid worker config", validConfig, true, nil},
			{
				"missing id", WorkerConfig{
					Ctx:          context.Background(),
					Wg:           new(sync.WaitGroup),
					RequestChan:  make(chan interface{}, 1),
					ErrorChan:    make(chan error, 1),
					ResultsCache: cache.NewDecodeResultsCache(),
				}, false, errors.New("id is required"),
			},
			{
				"missing wait group", WorkerConfig{
					Ctx:          context.Background(),
					Id:           "testWorker",
					RequestChan:  make(chan interface{}, 1),
					ErrorChan:    make(chan error, 1),
					ResultsCache: cache.NewDecodeResultsCache(),
				}, false, errors.New("wg is required"),
			},
			{
				"missing request channel", WorkerConfig{
					Ctx:          context.Background(),
					Id:           "testWorker",
					Wg:           new(sync.WaitGroup),
					ErrorChan:    make(chan error, 1),
					ResultsCache: cache.NewDecodeResultsCache(),
				}, false, errors.New("request channel is required"),
			},
			{
				"missing error channel", WorkerConfig{
					Ctx:          context.Background(),
					Id:           "testWorker",
					Wg:           new(sync.WaitGroup),
					RequestChan:  make(chan interface{}, 1),
					ResultsCache: cache.NewDecodeResultsCache(),
				}, false, errors.New("error channel is required"),
			},
			{
				"missing results cache", WorkerConfig{
					Ctx:         context.Background(),
					Id:          "testWorker",
					Wg:          new(sync.WaitGroup),
					RequestChan: make(chan interface{}, 1),
					ErrorChan:   make(chan error, 1),
				}, false, errors.New("decode results cache is required"),
			},
		}
	)

	// loop through test cases and create new worker for each test case
	for _, test := range workerTests {
		t.Run(test.name, func(t *testing.T) {
			w, err := NewWorker(test.input)
			if test.expectedValidValue {
				assertion.NoError(err)
				assertion.NotNil(w)
				assertion.Equal("testWorker", w.GetId())
				assertion.False(w.IsRequestHandlerSet())
				assertion.False(w.IsFinalizerSet())
				assertion.NotNil(w.GetResultsCache())
				assertion.NotNil(w.GetErrorChannel())
				assertion.NotNil(w.GetWaitGroup())
			} else {
				assertion.Error(err)
				assertion.Contains(err.Error(), test.expectedError.Error())
			}
		})
	}

	close(validConfig.RequestChan) // close request channel to end worker loop
	validConfig.Wg.Wait()          // wait for worker to complete
	close(validConfig.ErrorChan)   // close error channel
}

func TestWorkerRun(t *testing.T) {
	assertion := assert.New(t)

	config := WorkerConfig{
		Ctx:          context.Background(),
		Id:           "testWorker",
		Wg:           new(sync.WaitGroup),
		RequestChan:  make(chan interface{}, 5),
		ErrorChan:    make(chan error, 5),
		ResultsCache: cache.NewDecodeResultsCache(),
	}

	w, err := NewWorker(config)
	assertion.NoError(err)

	handler := &countingHandler{}
	finalizer := &recordingFinalizer{}
	w.SetRequestHandler(handler)
	w.SetFinalizer(finalizer)
	assertion.True(w.IsRequestHandlerSet())
	assertion.True(w.IsFinalizerSet())

	for i := 0; i < 3; i++ {
		config.RequestChan <- i
	}
	close(config.RequestChan) // close request channel to end worker loop
	w.Wait()                  // wait for worker to complete
	close(config.ErrorChan)   // close error channel

	assertion.Equal(int32(3), handler.handled.Load())
	assertion.True(finalizer.finalized.Load())
	assertion.Empty(config.ErrorChan)
}

func TestWorkerRunWithoutHandler(t *testing.T) {
	assertion := assert.New(t)

	config := WorkerConfig{
		Ctx:          context.Background(),
		Id:           "testWorker",
		Wg:           new(sync.WaitGroup),
		RequestChan:  make(chan interface{}, 1),
		ErrorChan:    make(chan error, 1),
		ResultsCache: cache.NewDecodeResultsCache(),
	}

	w, err := NewWorker(config)
	assertion.NoError(err)

	// requests received before a handler is set are reported on the error channel
	config.RequestChan <- "orphan request"
	close(config.RequestChan)
	w.Wait()

	handlerErr := <-config.ErrorChan
	assertion.Error(handlerErr)
	assertion.Contains(handlerErr.Error(), "handler was set")
}

func TestWorkerContextCancellation(t *testing.T) {
	assertion := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	config := WorkerConfig{
		Ctx:          ctx,
		Id:           "testWorker",
		Wg:           new(sync.WaitGroup),
		RequestChan:  make(chan interface{}),
		ErrorChan:    make(chan error, 1),
		ResultsCache: cache.NewDecodeResultsCache(),
	}

	w, err := NewWorker(config)
	assertion.NoError(err)

	finalizer := &recordingFinalizer{}
	w.SetFinalizer(finalizer)

	cancel()
	w.Wait() // worker exits without the request channel being closed

	// finalizer is skipped on cancellation, the report would be incomplete
	assertion.False(finalizer.finalized.Load())
}
