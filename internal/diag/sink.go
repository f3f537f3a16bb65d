package diag

import (
	"sync"
	"sync/atomic"

	"firestige.xyz/pktgraph/internal/log"
	"firestige.xyz/pktgraph/internal/metrics"
)

// maxNotices bounds the lines Notice holds aside while the queue is full.
const maxNotices = 64

// LogSink queues lines for a background writer. When the queue is full the
// line is dropped and counted; Chatter never waits. Lines given to Notice are
// held aside instead of dropped, up to maxNotices.
type LogSink struct {
	logger  log.Logger
	queue   chan string
	wake    chan struct{}
	dropped atomic.Uint64

	noticeMu sync.Mutex
	notices  []string

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewLogSink(logger log.Logger, size int) *LogSink {
	if logger == nil {
		logger = log.GetLogger()
	}
	if size <= 0 {
		size = 1
	}
	s := &LogSink{
		logger: logger,
		queue:  make(chan string, size),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *LogSink) Chatter(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop()
		return
	}
	select {
	case s.queue <- line:
	default:
		s.drop()
	}
}

// Notice queues line like Chatter, but a full queue sets it aside for the
// writer rather than dropping it. After Close the line is written directly.
func (s *LogSink) Notice(line string) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		s.logger.Info(line)
		return
	}
	defer s.mu.RUnlock()
	select {
	case s.queue <- line:
		return
	default:
	}

	s.noticeMu.Lock()
	if len(s.notices) >= maxNotices {
		s.noticeMu.Unlock()
		s.drop()
		return
	}
	s.notices = append(s.notices, line)
	s.noticeMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *LogSink) drop() {
	s.dropped.Add(1)
	metrics.DiagLinesDroppedTotal.Inc()
}

// Dropped returns the number of lines lost to a full or closed queue.
func (s *LogSink) Dropped() uint64 { return s.dropped.Load() }

// Close flushes queued lines and stops the writer.
func (s *LogSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *LogSink) loop() {
	defer close(s.done)
	for {
		select {
		case line, ok := <-s.queue:
			if !ok {
				s.flushNotices()
				return
			}
			s.logger.Info(line)
		case <-s.wake:
			s.flushNotices()
		}
	}
}

func (s *LogSink) flushNotices() {
	s.noticeMu.Lock()
	pending := s.notices
	s.notices = nil
	s.noticeMu.Unlock()
	for _, line := range pending {
		s.logger.Info(line)
	}
}
