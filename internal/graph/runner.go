package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/log"
	"firestige.xyz/pktgraph/internal/source"
)

const defaultBufferSize = 1024

// Runner feeds a graph from a source: one goroutine captures into a buffered
// channel, another pushes each packet through the graph.
type Runner struct {
	graph  *Graph
	source source.Source
	logger log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	packets chan *core.Packet

	received   atomic.Uint64
	pushErrors atomic.Uint64

	errMu      sync.Mutex
	captureErr error
}

// RunnerStats is a snapshot of runner counters.
type RunnerStats struct {
	Received   uint64 `json:"received"`
	PushErrors uint64 `json:"push_errors"`
}

func NewRunner(g *Graph, src source.Source, bufferSize int) *Runner {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		graph:   g,
		source:  src,
		logger:  log.GetLogger().WithField("source", src.Name()),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		packets: make(chan *core.Packet, bufferSize),
	}
}

// Start launches the capture and process goroutines.
func (r *Runner) Start() error {
	r.logger.Info("runner starting")

	r.wg.Add(2)
	go r.captureLoop()
	go r.processLoop()
	return nil
}

// Done is closed once the source is exhausted and every packet it produced
// has been pushed, or the runner was stopped.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Stop cancels capture, waits for both goroutines and returns the capture
// error, if any.
func (r *Runner) Stop() error {
	r.logger.Info("runner stopping")
	r.cancel()
	r.wg.Wait()

	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.logger.WithField("received", r.received.Load()).Info("runner stopped")
	return r.captureErr
}

func (r *Runner) captureLoop() {
	defer r.wg.Done()
	defer close(r.packets)

	if err := r.source.Capture(r.ctx, r.packets); err != nil && r.ctx.Err() == nil {
		r.logger.WithError(err).Error("capture failed")
		r.errMu.Lock()
		r.captureErr = err
		r.errMu.Unlock()
		return
	}
	r.logger.Debug("capture finished")
}

func (r *Runner) processLoop() {
	defer r.wg.Done()
	defer close(r.done)

	for {
		select {
		case <-r.ctx.Done():
			return
		case p, ok := <-r.packets:
			if !ok {
				return
			}
			r.received.Add(1)
			if err := r.graph.Push(p); err != nil {
				r.pushErrors.Add(1)
				if errors.Is(err, core.ErrGraphStopped) {
					return
				}
				r.logger.WithError(err).Debug("push failed")
			}
		}
	}
}

// Stats returns runner statistics.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Received:   r.received.Load(),
		PushErrors: r.pushErrors.Load(),
	}
}
